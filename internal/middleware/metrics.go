package middleware

import (
	"strconv"
	"time"

	"github.com/SscSPs/ledgerbook/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request latency keyed by the matched route template,
// so /journals/7 and /journals/8 share one series.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
