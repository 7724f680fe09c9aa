package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

const notificationListLimit = 50

type notificationInbox interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService serves a user's in-app notifications.
type NotificationService struct {
	repo   notificationInbox
	logger *zap.Logger
}

// NewNotificationService constructs the inbox service.
func NewNotificationService(repo notificationInbox, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the caller's newest notifications.
func (s *NotificationService) List(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, actor.UserID, notificationListLimit)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Storage(err, "failed to update notification")
	}
	return nil
}
