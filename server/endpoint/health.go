package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health returns a liveness handler. It only confirms the process can serve
// HTTP; provider state is reported by Readiness.
func Health(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	}
}
