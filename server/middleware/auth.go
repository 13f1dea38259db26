package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/sttkit/errors"
)

// AuthConfig configures static API key authentication.
type AuthConfig struct {
	// Keys are the accepted bearer tokens. An empty list disables the check.
	Keys []string
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth returns a Gin middleware that requires "Authorization: Bearer <key>"
// with one of the configured keys.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.Keys) == 0 {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || !validKey(strings.TrimSpace(token), cfg.Keys) {
			appErr := errors.New(errors.ErrCodeUnauthorized, "A valid API key is required.", http.StatusUnauthorized)
			appErr.Retryable = false
			c.AbortWithStatusJSON(http.StatusUnauthorized, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

func validKey(token string, keys []string) bool {
	if token == "" {
		return false
	}
	var match int
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(k))
	}
	return match == 1
}
