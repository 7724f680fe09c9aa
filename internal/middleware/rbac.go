package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

// RequireRoles aborts requests whose token role is not listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff admits callers linked to a staff record.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.StaffID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no staff record linked to this account"))
			c.Abort()
			return
		}
		c.Next()
	}
}
