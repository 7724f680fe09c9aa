package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

type leaveService interface {
	List(ctx context.Context, actor models.Actor, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	RequestLeave(ctx context.Context, actor models.Actor, req models.RequestLeaveRequest, meta models.RequestMeta) (*models.LeaveRequest, error)
	ApproveLeave(ctx context.Context, actor models.Actor, leaveID string, req models.ApproveLeaveRequest, meta models.RequestMeta) (*models.ApproveLeaveResult, error)
	RejectLeave(ctx context.Context, actor models.Actor, leaveID string, req models.RejectLeaveRequest, meta models.RequestMeta) (*models.LeaveRequest, error)
	ListAvailableReplacements(ctx context.Context, leaveID string) ([]models.Staff, error)
}

// LeaveHandler exposes the leave workflow.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// List godoc
// @Summary List leave requests
// @Description Staff callers only see their own requests
// @Tags Leave
// @Produce json
// @Param staff_id query string false "Staff ID (admin only)"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Router /leave-requests [get]
func (h *LeaveHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.LeaveFilter{StaffID: c.Query("staff_id"), Status: models.LeaveStatus(c.Query("status"))}
	items, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Request godoc
// @Summary Apply for leave
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body models.RequestLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leave-requests [post]
func (h *LeaveHandler) Request(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.RequestLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid leave payload"))
		return
	}
	leave, err := h.service.RequestLeave(c.Request.Context(), actor, req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Approve godoc
// @Summary Approve leave
// @Description Approves a pending request, assigns the replacement to affected classes and locks attendance.
// @Description Dates where the replacement was busy are returned as uncovered_dates.
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body models.ApproveLeaveRequest false "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ApproveLeaveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid approval payload"))
		return
	}
	result, err := h.service.ApproveLeave(c.Request.Context(), actor, c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Reject godoc
// @Summary Reject leave
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body models.RejectLeaveRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.RejectLeaveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid rejection payload"))
		return
	}
	leave, err := h.service.RejectLeave(c.Request.Context(), actor, c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, leave)
}

// Replacements godoc
// @Summary Staff free to cover a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Router /leave-requests/{id}/replacements [get]
func (h *LeaveHandler) Replacements(c *gin.Context) {
	items, err := h.service.ListAvailableReplacements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
