package provider

import (
	"context"
	"errors"
)

// ErrNoneAvailable is returned when no candidate is available.
var ErrNoneAvailable = errors.New("no available provider")

// Selector picks a provider from an ordered candidate list.
type Selector[T Provider] interface {
	Select(ctx context.Context, candidates []T) (T, error)
}

// PrioritySelector returns the first available candidate in list order.
type PrioritySelector[T Provider] struct {
	// Skip excludes candidates before availability is checked, for example
	// providers already attempted or behind an open circuit breaker.
	Skip func(T) bool
}

// Select returns the first available provider in priority order.
func (s *PrioritySelector[T]) Select(ctx context.Context, candidates []T) (T, error) {
	for _, p := range candidates {
		if s.Skip != nil && s.Skip(p) {
			continue
		}
		if p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoneAvailable
}

// Available filters candidates down to those currently available, keeping order.
func Available[T Provider](ctx context.Context, candidates []T) []T {
	out := make([]T, 0, len(candidates))
	for _, p := range candidates {
		if p.IsAvailable(ctx) {
			out = append(out, p)
		}
	}
	return out
}
