package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/service"
)

const anonymousRole = "anonymous"

// Metrics observes every request against its route template and the caller's role. The role is
// read after the handler chain so claims set by JWT on secured groups are visible.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		role := anonymousRole
		if claims := Claims(c); claims != nil && claims.Role != "" {
			role = string(claims.Role)
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, role, c.Writer.Status(), time.Since(start))
	}
}
