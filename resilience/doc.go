// Package resilience provides the fault-tolerance primitives sttkit wraps
// around provider calls.
//
//   - CircuitBreaker: stops routing to a provider that keeps failing
//   - RateLimiter: token bucket pacing outbound vendor requests
//   - Bulkhead: bounds concurrent transcriptions in a batch
//   - Retry: exponential backoff for idempotent deliveries such as webhooks
//
// Breakers and limiters are safe for concurrent use and are typically shared
// per provider:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:        "openai",
//	    MaxFailures: 3,
//	    IsFailure:   transcription.IsFallbackEligible,
//	})
//	if cb.Allow() {
//	    err := cb.Execute(func() error { ... })
//	}
package resilience
