package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/sttkit/observability"
)

// Metrics returns a Gin middleware that records request count, duration and
// in-flight requests on m. A nil m records nothing.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
