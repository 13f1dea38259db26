package provider

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/resilience"
)

// WithCircuitBreaker returns a Middleware that runs each Execute call
// through cb. While the circuit is open, or half-open with every probe slot
// taken, the call is rejected without reaching the inner provider and the
// error wraps resilience.ErrCircuitOpen.
func WithCircuitBreaker[I, O any](cb *resilience.CircuitBreaker) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &resilientRR[I, O]{wrapped: wrapped[I, O]{inner: inner}, cb: cb}
	}
}

type resilientRR[I, O any] struct {
	wrapped[I, O]
	cb *resilience.CircuitBreaker
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	var output O
	var callErr error
	cbErr := r.cb.Execute(func() error {
		output, callErr = r.inner.Execute(ctx, input)
		return callErr
	})
	if cbErr != nil && callErr == nil {
		return output, wrapResilienceError(r.inner.Name(), cbErr)
	}
	return output, callErr
}

// wrapResilienceError converts a breaker rejection to an AppError, keeping
// resilience.ErrCircuitOpen reachable through errors.Is.
func wrapResilienceError(name string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok || !errors.Is(err, resilience.ErrCircuitOpen) {
		return err
	}
	return apperrors.Transport(fmt.Sprintf("call %s (circuit open)", name), err)
}
