package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/service"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

// AuditHandler exposes activity and access logs.
type AuditHandler struct {
	service *service.ActivityService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(svc *service.ActivityService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// ActivityLogs godoc
// @Summary Latest activity log entries
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activity-logs [get]
func (h *AuditHandler) ActivityLogs(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ActivityLogs(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// AccessLogs godoc
// @Summary Latest login sessions
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /access-logs [get]
func (h *AuditHandler) AccessLogs(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.AccessLogs(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
