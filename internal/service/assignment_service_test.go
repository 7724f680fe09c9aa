package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type memAssignmentStore struct {
	*memStore
	lastFilter models.AssignmentFilter
}

func (m *memAssignmentStore) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.ScheduleAssignment, error) {
	for _, a := range m.assignments {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAssignmentStore) Override(_ context.Context, _ sqlx.ExtContext, id, replacementStaffID string) error {
	for i := range m.assignments {
		if m.assignments[i].ID == id {
			m.assignments[i].ReplacementStaffID = &replacementStaffID
			m.assignments[i].Status = models.AssignmentStatusOverridden
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memAssignmentStore) ListClasses(_ context.Context, filter models.AssignmentFilter) ([]models.ScheduledClass, error) {
	m.lastFilter = filter
	return nil, nil
}

// newAssignmentFixture expects one transaction when commits is set, ending in commit or rollback.
func newAssignmentFixture(t *testing.T, commits *bool) (*AssignmentService, *memAssignmentStore, *recordingQueue) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	bala := store.addStaff(staffBala, "u2", "Bala")
	messenger := int64(5)
	bala.MessengerUserID = &messenger
	store.addStaff(staffChitra, "u3", "Chitra")
	chitra := staffChitra
	store.assignments = append(store.assignments, models.ScheduleAssignment{
		ID: "as-1", TimetableID: "t1", OriginalStaffID: staffAsha, ReplacementStaffID: &chitra,
		ScheduledDate: mustDate("2024-03-11"), Status: models.AssignmentStatusPending,
	})
	repo := &memAssignmentStore{memStore: store}
	queue := &recordingQueue{}
	tx, mock := newTxProviderMock(t)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	if commits != nil {
		mock.ExpectBegin()
		if *commits {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}

	svc := NewAssignmentService(tx, repo, store, NewAvailabilityChecker(store, store),
		NewNotifier(memNotifications{store}, queue, nil, nil), memActivity{store}, nil, time.UTC, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC) }
	return svc, repo, queue
}

func TestOverrideAssignmentNotifiesNewReplacement(t *testing.T) {
	commit := true
	svc, repo, queue := newAssignmentFixture(t, &commit)

	a, err := svc.Override(context.Background(), adminActor, "as-1", models.OverrideAssignmentRequest{ReplacementStaffID: staffBala}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusOverridden, a.Status)
	assert.Equal(t, staffBala, *repo.assignments[0].ReplacementStaffID)

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, "u2", repo.notifications[0].UserID)
	assert.Equal(t, models.NotificationReplacementAssigned, repo.notifications[0].Type)
	require.Len(t, repo.activity, 1)
	assert.Equal(t, models.ActivityAssignmentOverride, repo.activity[0].Action)
	assert.Len(t, queue.jobs, 1)
}

func TestOverrideAssignmentRejectsBusyReplacement(t *testing.T) {
	rollback := false
	svc, repo, _ := newAssignmentFixture(t, &rollback)
	bala := staffBala
	repo.assignments = append(repo.assignments, models.ScheduleAssignment{
		ID: "as-2", ReplacementStaffID: &bala, ScheduledDate: mustDate("2024-03-11"),
	})
	_, err := svc.Override(context.Background(), adminActor, "as-1", models.OverrideAssignmentRequest{ReplacementStaffID: staffBala}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, repo.notifications)
}

func TestAssignmentListDefaultsToLastWeek(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(t, nil)

	_, err := svc.List(context.Background(), staffActor, models.AssignmentFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	classes, err := svc.List(context.Background(), adminActor, models.AssignmentFilter{})
	require.NoError(t, err)
	assert.NotNil(t, classes)
	assert.Equal(t, mustDate("2024-03-04"), repo.lastFilter.From)
	assert.Equal(t, mustDate("2024-03-11"), repo.lastFilter.To)
}

func TestScheduledClassesScopeToCaller(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(t, nil)

	_, err := svc.ScheduledClasses(context.Background(), staffActor, models.AssignmentFilter{ReplacementStaffID: staffBala})
	require.NoError(t, err)
	assert.Equal(t, staffAsha, repo.lastFilter.ReplacementStaffID)
	assert.Equal(t, mustDate("2024-04-10"), repo.lastFilter.To)
}
