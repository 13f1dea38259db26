package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(RateLimiterConfig{Name: "openai", Rate: rate, Burst: burst})
	rl.now = clock.now
	rl.lastRefill = clock.t
	return rl, clock
}

func TestRateLimiter_BurstThenLimited(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.Allow() {
		t.Error("expected request beyond burst to be limited")
	}
	if err := rl.Execute(func() error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl, clock := newTestLimiter(2, 2)
	rl.Allow()
	rl.Allow()
	clock.advance(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected one token after half a second at 2/s")
	}
	clock.advance(time.Hour)
	if got := rl.Tokens(); got != 2 {
		t.Errorf("tokens should cap at burst, got %v", got)
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should succeed immediately: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.config.Rate != 5 || rl.config.Burst != 5 {
		t.Errorf("unexpected defaults: %+v", rl.config)
	}
}
