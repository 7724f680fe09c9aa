package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/middleware/requestid"
)

// ActivityRecorder stores audit entries outside a transaction.
type ActivityRecorder interface {
	Record(ctx context.Context, actor models.Actor, action models.ActivityAction, details map[string]interface{}, meta models.RequestMeta)
}

// Audit records an admin_request entry for every successful mutating request made by an administrator.
func Audit(recorder ActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if recorder == nil || c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}
		claims := Claims(c)
		if claims == nil || claims.Role != models.RoleAdmin {
			return
		}

		details := map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		}
		if reqID := requestid.Value(c); reqID != "" {
			details["request_id"] = reqID
		}
		recorder.Record(c.Request.Context(), claims.Actor(), models.ActivityAdminRequest, details, RequestMeta(c))
	}
}

// RequestMeta captures the client address and user agent of the request.
func RequestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
