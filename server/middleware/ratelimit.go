package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/resilience"
)

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the number of requests a client may make at once.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// RateLimit returns a Gin middleware that applies a token bucket per client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	var mu sync.Mutex
	limiters := make(map[string]*resilience.RateLimiter)
	limiterFor := func(key string) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		rl, ok := limiters[key]
		if !ok {
			rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Name:  "http:" + key,
				Rate:  cfg.RequestsPerSecond,
				Burst: cfg.Burst,
			})
			limiters[key] = rl
		}
		return rl
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			appErr := errors.RateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.ToResponse())
			return
		}
		c.Next()
	}
}
