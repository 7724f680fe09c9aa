package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type memAttendance struct{ *memStore }

func (m memAttendance) Override(_ context.Context, id string, status models.AttendanceStatus, reason, overriddenBy string) (*models.AttendanceRecord, error) {
	for _, rec := range m.attendance {
		if rec.ID == id {
			rec.Status = status
			rec.OverrideReason = &reason
			rec.OverriddenBy = &overriddenBy
			rec.IsLocked = false
			cp := *rec
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memAttendance) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range m.attendance {
		if filter.StaffID == "" || rec.StaffID == filter.StaffID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

var staffActor = models.Actor{UserID: "u1", StaffID: staffAsha, Role: models.RoleStaff}

func newAttendanceFixture(t *testing.T, clock time.Time) (*AttendanceService, *memStore, func(commit bool)) {
	store := newMemStore()
	tx, mock := newTxProviderMock(t)
	svc := NewAttendanceService(tx, memAttendance{store}, store, memActivity{store}, NewMetricsService(),
		AttendancePolicy{Location: time.UTC, CutoffHour: 10}, nil, nil)
	svc.now = func() time.Time { return clock }
	expect := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return svc, store, expect
}

func TestMarkPresentBeforeCutoffLocks(t *testing.T) {
	svc, store, expect := newAttendanceFixture(t, time.Date(2024, 3, 11, 9, 15, 30, 0, time.UTC))
	expect(true)

	rec, err := svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: models.AttendanceStatusPresent,
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, rec.IsLocked)
	assert.Equal(t, "09:15:30", rec.CheckInTime.String())
	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityAttendanceMarked, store.activity[0].Action)
}

func TestMarkRejectsOtherDaysAndLatePresence(t *testing.T) {
	svc, _, _ := newAttendanceFixture(t, time.Date(2024, 3, 11, 10, 0, 1, 0, time.UTC))

	_, err := svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-10"), Status: models.AttendanceStatusAbsent,
	}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: models.AttendanceStatusPresent,
	}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "10:00")

	_, err = svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: "late",
	}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMarkAbsentAfterCutoffStaysUnlocked(t *testing.T) {
	svc, _, expect := newAttendanceFixture(t, time.Date(2024, 3, 11, 14, 0, 0, 0, time.UTC))
	expect(true)

	rec, err := svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: models.AttendanceStatusAbsent,
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, rec.IsLocked)
}

func TestMarkLockedRowFailsWithInvalidState(t *testing.T) {
	svc, store, expect := newAttendanceFixture(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	store.attendance[attendanceKey(staffAsha, mustDate("2024-03-11"))] = &models.AttendanceRecord{
		ID: "a1", StaffID: staffAsha, Date: mustDate("2024-03-11"), Status: models.AttendanceStatusLeave, IsLocked: true,
	}
	expect(false)

	_, err := svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: models.AttendanceStatusPresent,
	}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Equal(t, models.AttendanceStatusLeave, store.attendance[attendanceKey(staffAsha, mustDate("2024-03-11"))].Status)
}

func TestMarkUsesApprovedLeave(t *testing.T) {
	svc, store, expect := newAttendanceFixture(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	morning := models.SessionMorning
	store.addLeave(models.LeaveRequest{
		ID: "l", StaffID: staffAsha, LeaveType: models.LeaveTypeHalfDay, Session: &morning, Status: models.LeaveStatusApproved,
		StartDate: mustDate("2024-03-11"), EndDate: mustDate("2024-03-11"),
	})
	expect(true)

	rec, err := svc.Mark(context.Background(), staffActor, models.MarkAttendanceRequest{
		Date: mustDate("2024-03-11"), Status: models.AttendanceStatusPresent,
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusHalfDay, rec.Status)
	assert.True(t, rec.IsLocked)
	assert.Equal(t, models.SessionMorning, *rec.LeaveSession)
}

func TestOverrideUnlocksRow(t *testing.T) {
	svc, store, _ := newAttendanceFixture(t, time.Now())
	store.attendance[attendanceKey(staffAsha, mustDate("2024-03-11"))] = &models.AttendanceRecord{
		ID: "a1", StaffID: staffAsha, Status: models.AttendanceStatusPresent, IsLocked: true,
	}

	_, err := svc.Override(context.Background(), staffActor, "a1", models.OverrideAttendanceRequest{Status: models.AttendanceStatusAbsent, Reason: "x"}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	rec, err := svc.Override(context.Background(), adminActor, "a1", models.OverrideAttendanceRequest{Status: models.AttendanceStatusAbsent, Reason: "left early"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, rec.IsLocked)
	assert.Equal(t, "admin-user", *rec.OverriddenBy)
	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityAttendanceOverride, store.activity[0].Action)

	_, err = svc.Override(context.Background(), adminActor, "missing", models.OverrideAttendanceRequest{Status: models.AttendanceStatusAbsent, Reason: "x"}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceListScopesStaff(t *testing.T) {
	svc, store, _ := newAttendanceFixture(t, time.Now())
	store.attendance["x"] = &models.AttendanceRecord{ID: "1", StaffID: staffAsha}
	store.attendance["y"] = &models.AttendanceRecord{ID: "2", StaffID: staffBala}

	records, err := svc.List(context.Background(), staffActor, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, staffAsha, records[0].StaffID)
}
