package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type stubInbox struct {
	items []models.Notification
	limit int
	read  map[string]string
}

func (s *stubInbox) ListByUser(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.limit = limit
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubInbox) MarkRead(_ context.Context, id, userID string) error {
	for _, n := range s.items {
		if n.ID == id && n.UserID == userID {
			s.read[id] = userID
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestNotificationListScopesToCaller(t *testing.T) {
	inbox := &stubInbox{items: []models.Notification{
		{ID: "n1", UserID: "u1", Title: "Leave Approved"},
		{ID: "n2", UserID: "u2", Title: "Replacement Assignment"},
	}, read: map[string]string{}}
	svc := NewNotificationService(inbox, nil)

	items, err := svc.List(context.Background(), staffActor)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, 50, inbox.limit)

	empty, err := svc.List(context.Background(), models.Actor{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestNotificationMarkReadRequiresOwnership(t *testing.T) {
	inbox := &stubInbox{items: []models.Notification{{ID: "n2", UserID: "u2"}}, read: map[string]string{}}
	svc := NewNotificationService(inbox, nil)

	err := svc.MarkRead(context.Background(), staffActor, "n2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.MarkRead(context.Background(), models.Actor{UserID: "u2"}, "n2"))
	assert.Equal(t, "u2", inbox.read["n2"])
}
