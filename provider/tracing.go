package provider

import (
	"context"

	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/observability"
)

// WithTracing returns a Middleware that runs each Execute call in a span
// named "{serviceName}.{providerName}". Middlewares inside it can annotate
// the span through the context.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{wrapped: wrapped[I, O]{inner: inner}, serviceName: serviceName}
	}
}

type tracingRR[I, O any] struct {
	wrapped[I, O]
	serviceName string
}

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := observability.StartSpan(ctx, t.serviceName+"."+t.inner.Name())
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrProvider, t.inner.Name())
	if id := logger.CorrelationID(ctx); id != "" {
		observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
	}

	output, err := t.inner.Execute(ctx, input)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return output, err
}
