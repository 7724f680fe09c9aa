package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/internal/service"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

// AssignmentHandler exposes replacement assignments.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

func assignmentFilter(c *gin.Context) (models.AssignmentFilter, bool) {
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return models.AssignmentFilter{}, false
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return models.AssignmentFilter{}, false
	}
	return models.AssignmentFilter{From: from, To: to, ReplacementStaffID: c.Query("replacement_staff_id")}, true
}

// List godoc
// @Summary List schedule assignments
// @Description Defaults to the seven days ending today
// @Tags Assignments
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param replacement_staff_id query string false "Replacement staff ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, ok := assignmentFilter(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// ScheduledClasses godoc
// @Summary Classes covered by replacements
// @Description Staff callers only see classes they cover
// @Tags Assignments
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /scheduled-classes [get]
func (h *AssignmentHandler) ScheduledClasses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, ok := assignmentFilter(c)
	if !ok {
		return
	}
	items, err := h.service.ScheduledClasses(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Override godoc
// @Summary Reassign a replacement
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.OverrideAssignmentRequest true "New replacement"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule-assignments/{id}/override [post]
func (h *AssignmentHandler) Override(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.OverrideAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid override payload"))
		return
	}
	assignment, err := h.service.Override(c.Request.Context(), actor, c.Param("id"), req, middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignment)
}
