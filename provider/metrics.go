package provider

import (
	"context"
	"time"
)

// RecordFunc receives the outcome of one Execute call.
type RecordFunc[O any] func(ctx context.Context, name string, output O, err error, elapsed time.Duration)

// WithMetrics returns a Middleware that times each Execute call and hands
// the outcome to record. Instruments live with the caller, which knows
// what the output carries.
func WithMetrics[I, O any](record RecordFunc[O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{wrapped: wrapped[I, O]{inner: inner}, record: record}
	}
}

type metricsRR[I, O any] struct {
	wrapped[I, O]
	record RecordFunc[O]
}

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)
	m.record(ctx, m.inner.Name(), output, err, time.Since(start))
	return output, err
}
