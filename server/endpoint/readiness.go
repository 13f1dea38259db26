package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/provider"
	"github.com/kbukum/sttkit/transcription"
)

// Describer reports per-provider state. *transcription.Registry implements it.
type Describer interface {
	Describe(ctx context.Context) []transcription.ProviderInfo
}

// Readiness returns a handler that is ready while at least one provider can
// take requests. Unconfigured providers are listed but do not fail the check.
func Readiness(serviceName, version string, d Describer) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := ProviderHealth(c.Request.Context(), serviceName, version, d)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}

// ProviderHealth aggregates provider state into a service health report.
func ProviderHealth(ctx context.Context, serviceName, version string, d Describer) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(serviceName, version)
	var usable int
	for _, info := range d.Describe(ctx) {
		h := observability.Health{Name: info.Name, Message: info.Health.Message}
		switch info.Health.Status {
		case provider.StatusHealthy:
			h.Status = observability.HealthStatusUp
			usable++
			sh.AddComponent(h)
		case provider.StatusDegraded:
			h.Status = observability.HealthStatusDegraded
			usable++
			sh.AddComponent(h)
		default:
			h.Status = observability.HealthStatusDown
			sh.Components = append(sh.Components, h)
		}
	}
	if usable == 0 {
		sh.Status = observability.HealthStatusDown
	}
	return sh
}
