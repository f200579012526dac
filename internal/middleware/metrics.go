package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymkhana-api/internal/service"
)

// Metrics records method, route template, status and latency for every
// request. Operational endpoints are skipped so scrapes and probes do not
// drown out the workflow traffic.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || isOperationalPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		// Prefer the route template so /calendars/:id stays one series
		// regardless of the identifier.
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func isOperationalPath(path string) bool {
	switch {
	case path == "/metrics", path == "/health", path == "/ready":
		return true
	case strings.HasPrefix(path, "/docs"):
		return true
	default:
		return false
	}
}
