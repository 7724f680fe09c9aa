package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type tokenMap map[string]*models.JWTClaims

func (m tokenMap) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := m[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type recordedActivity struct {
	actor   models.Actor
	action  models.ActivityAction
	details map[string]interface{}
}

type activitySpy struct{ entries []recordedActivity }

func (s *activitySpy) Record(_ context.Context, actor models.Actor, action models.ActivityAction, details map[string]interface{}, _ models.RequestMeta) {
	s.entries = append(s.entries, recordedActivity{actor: actor, action: action, details: details})
}

var tokens = tokenMap{
	"admin": {UserID: "admin-user", Role: models.RoleAdmin},
	"staff": {UserID: "u1", StaffID: "s1", Role: models.RoleStaff},
}

func newEngine(spy *activitySpy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(tokens), Audit(spy))
	r.GET("/stats", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/leave-requests/:id/approve", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/leave-requests", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func serve(r *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newEngine(&activitySpy{})
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Token admin")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	r := newEngine(&activitySpy{})
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/stats", "staff"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/stats", "admin"))
}

func TestAuditRecordsAdminMutationsOnly(t *testing.T) {
	spy := &activitySpy{}
	r := newEngine(spy)

	serve(r, http.MethodGet, "/stats", "admin")
	serve(r, http.MethodPost, "/leave-requests", "staff")
	serve(r, http.MethodPost, "/leave-requests/l1/approve", "staff")
	require.Empty(t, spy.entries)

	serve(r, http.MethodPost, "/leave-requests/l1/approve", "admin")
	require.Len(t, spy.entries, 1)
	assert.Equal(t, models.ActivityAdminRequest, spy.entries[0].action)
	assert.Equal(t, "admin-user", spy.entries[0].actor.UserID)
	assert.Equal(t, "/leave-requests/:id/approve", spy.entries[0].details["path"])
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, true, meta["cache_hit"])
}
