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

type mockTimetableStore struct {
	slots      map[string]*models.TimetableSlot
	lastFilter models.TimetableFilter
}

func (m *mockTimetableStore) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error) {
	m.lastFilter = filter
	return nil, nil
}

func (m *mockTimetableStore) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	slot, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return slot, nil
}

func (m *mockTimetableStore) Create(ctx context.Context, slot *models.TimetableSlot) error {
	slot.ID = "slot-new"
	m.slots[slot.ID] = slot
	return nil
}

func (m *mockTimetableStore) Update(ctx context.Context, slot *models.TimetableSlot) error {
	m.slots[slot.ID] = slot
	return nil
}

func (m *mockTimetableStore) Deactivate(ctx context.Context, id string) error {
	if _, ok := m.slots[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.slots, id)
	return nil
}

func timetableRequest(day string, from, to int) models.TimetableRequest {
	return models.TimetableRequest{
		StaffID:    staffAsha,
		CourseName: "Thermodynamics",
		DayOfWeek:  day,
		StartTime:  models.NewTimeOfDay(from, 0, 0),
		EndTime:    models.NewTimeOfDay(to, 0, 0),
	}
}

func TestTimetableCreateNormalizesDay(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	repo := &mockTimetableStore{slots: map[string]*models.TimetableSlot{}}
	svc := NewTimetableService(repo, store, nil, nil)

	slot, err := svc.Create(context.Background(), adminActor, timetableRequest("mon", 9, 10))
	require.NoError(t, err)
	assert.Equal(t, "Monday", slot.DayOfWeek)
	assert.True(t, slot.Active)
}

func TestTimetableCreateValidation(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	svc := NewTimetableService(&mockTimetableStore{slots: map[string]*models.TimetableSlot{}}, store, nil, nil)

	_, err := svc.Create(context.Background(), adminActor, timetableRequest("Funday", 9, 10))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), adminActor, timetableRequest("Monday", 10, 9))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req := timetableRequest("Monday", 9, 10)
	req.StaffID = staffDev
	_, err = svc.Create(context.Background(), adminActor, req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(context.Background(), models.Actor{Role: models.RoleStaff, StaffID: staffAsha}, timetableRequest("Monday", 9, 10))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestTimetableListScopesStaff(t *testing.T) {
	repo := &mockTimetableStore{}
	svc := NewTimetableService(repo, newMemStore(), nil, nil)

	slots, err := svc.List(context.Background(), models.Actor{Role: models.RoleStaff, StaffID: staffAsha}, models.TimetableFilter{StaffID: staffBala, DayOfWeek: "tue"})
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Equal(t, staffAsha, repo.lastFilter.StaffID)
	assert.Equal(t, "Tuesday", repo.lastFilter.DayOfWeek)
}

func TestTimetableDeleteMissing(t *testing.T) {
	svc := NewTimetableService(&mockTimetableStore{slots: map[string]*models.TimetableSlot{}}, newMemStore(), nil, nil)
	err := svc.Delete(context.Background(), adminActor, "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
