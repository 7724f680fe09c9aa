package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

const auditListLimit = 500

type activityLogStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, log *models.ActivityLog) error
	List(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type accessLogReader interface {
	ListAccessLogs(ctx context.Context, limit int) ([]models.AccessLog, error)
}

// ActivityService exposes the audit trail to administrators and records request-level audit entries.
type ActivityService struct {
	activity activityLogStore
	access   accessLogReader
	logger   *zap.Logger
}

// NewActivityService constructs the audit service.
func NewActivityService(activity activityLogStore, access accessLogReader, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{activity: activity, access: access, logger: logger}
}

// ActivityLogs returns the newest activity entries.
func (s *ActivityService) ActivityLogs(ctx context.Context, actor models.Actor) ([]models.ActivityLog, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view activity logs")
	}
	items, err := s.activity.List(ctx, auditListLimit)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list activity logs")
	}
	if items == nil {
		items = []models.ActivityLog{}
	}
	return items, nil
}

// AccessLogs returns the newest login sessions.
func (s *ActivityService) AccessLogs(ctx context.Context, actor models.Actor) ([]models.AccessLog, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view access logs")
	}
	items, err := s.access.ListAccessLogs(ctx, auditListLimit)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list access logs")
	}
	if items == nil {
		items = []models.AccessLog{}
	}
	return items, nil
}

// Record stores an entry outside any transaction. Failures are logged only.
func (s *ActivityService) Record(ctx context.Context, actor models.Actor, action models.ActivityAction, details map[string]interface{}, meta models.RequestMeta) {
	if err := s.activity.Create(ctx, nil, activityEntry(actor, action, details, meta)); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", string(action)), zap.Error(err))
	}
}
