package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/internal/service"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

type reportService interface {
	GenerateAttendance(ctx context.Context, actor models.Actor, req models.AttendanceReportRequest) (*models.ReportResult, error)
	Download(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes report exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Attendance godoc
// @Summary Export attendance
// @Description Renders attendance as csv, pdf or xlsx and returns a signed download link
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.AttendanceReportRequest true "Report request"
// @Success 201 {object} response.Envelope
// @Router /reports/attendance [post]
func (h *ReportHandler) Attendance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.AttendanceReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid report payload"))
		return
	}
	result, err := h.service.GenerateAttendance(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered report
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
