package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/infrastructure/metrics"
)

// Metrics records request count, latency and in-flight requests. Paths are
// the route templates, so /shipments/:id is one series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.HTTPRequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		m.HTTPRequestsInFlight.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
