package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

type attendanceService interface {
	List(ctx context.Context, actor models.Actor, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Mark(ctx context.Context, actor models.Actor, req models.MarkAttendanceRequest, meta models.RequestMeta) (*models.AttendanceRecord, error)
	Override(ctx context.Context, actor models.Actor, id string, req models.OverrideAttendanceRequest, meta models.RequestMeta) (*models.AttendanceRecord, error)
}

// AttendanceHandler exposes daily attendance.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// List godoc
// @Summary List attendance
// @Tags Attendance
// @Produce json
// @Param staff_id query string false "Staff ID (admin only)"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, models.AttendanceFilter{StaffID: c.Query("staff_id"), From: from, To: to})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Mark godoc
// @Summary Mark today's attendance
// @Description Days covered by approved leave are recorded as leave and locked regardless of the requested status.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	record, err := h.service.Mark(c.Request.Context(), actor, req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Override godoc
// @Summary Override an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body models.OverrideAttendanceRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/override [post]
func (h *AttendanceHandler) Override(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.OverrideAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid override payload"))
		return
	}
	record, err := h.service.Override(c.Request.Context(), actor, c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}
