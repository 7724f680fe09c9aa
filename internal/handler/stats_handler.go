package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/response"
)

type statsService interface {
	Dashboard(ctx context.Context, actor models.Actor) (*models.Stats, bool, error)
	Metrics(actor models.Actor) (models.MetricsSnapshot, error)
}

// StatsHandler serves dashboard counters.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Dashboard godoc
// @Summary Staffing counters
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	stats, hit, err := h.service.Dashboard(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Metrics godoc
// @Summary Process metrics summary
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/metrics [get]
func (h *StatsHandler) Metrics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	snapshot, err := h.service.Metrics(actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snapshot)
}
