package endpoint

import "github.com/gin-gonic/gin"

// Providers lists every registered provider with its capabilities and
// current availability, in priority order.
func Providers(d Describer) gin.HandlerFunc {
	return func(c *gin.Context) {
		RespondOK(c, d.Describe(c.Request.Context()))
	}
}
