package service

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

var adminActor = models.Actor{UserID: "admin-user", Role: models.RoleAdmin}

const (
	staffAsha   = "11111111-1111-4111-8111-111111111111"
	staffBala   = "22222222-2222-4222-8222-222222222222"
	staffChitra = "33333333-3333-4333-8333-333333333333"
	staffDev    = "44444444-4444-4444-8444-444444444444"
)

// seedMarch adds a pending full-day leave for Asha over 2024-03-10 (a Sunday) to 2024-03-12.
func seedMarch(store *memStore) {
	store.addStaff(staffAsha, "u1", "Asha")
	messenger := int64(77)
	s2 := store.addStaff(staffBala, "u2", "Bala")
	s2.MessengerUserID = &messenger
	store.addStaff(staffChitra, "u3", "Chitra")
	store.addLeave(models.LeaveRequest{
		ID:        "leave-1",
		StaffID:   staffAsha,
		LeaveType: models.LeaveTypeFullDay,
		StartDate: mustDate("2024-03-10"),
		EndDate:   mustDate("2024-03-12"),
	})
}

func TestApproveFullDayCoversEveryDate(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-sun", staffAsha, "Sunday", 9)
	store.addSlot("t-mon", staffAsha, "Monday", 9)
	store.addSlot("t-mon-pm", staffAsha, "Monday", 14)
	store.addSlot("t-tue", staffAsha, "Tuesday", 11)
	store.addSlot("t-other", staffChitra, "Monday", 9)

	svc, mock, queue := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	replacement := staffBala
	result, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &replacement}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, models.LeaveStatusApproved, result.LeaveRequest.Status)
	assert.Empty(t, result.UncoveredDates)
	assert.NotNil(t, result.UncoveredDates)
	require.Len(t, result.Assignments, 4)
	for _, a := range result.Assignments {
		assert.Equal(t, models.AssignmentStatusPending, a.Status)
		assert.Equal(t, staffBala, *a.ReplacementStaffID)
		assert.Equal(t, staffAsha, a.OriginalStaffID)
		assert.True(t, a.ScheduledDate.Within(mustDate("2024-03-10"), mustDate("2024-03-12")))
	}

	require.Len(t, store.attendance, 3)
	for _, day := range []string{"2024-03-10", "2024-03-11", "2024-03-12"} {
		rec := store.attendance[attendanceKey(staffAsha, mustDate(day))]
		require.NotNil(t, rec, day)
		assert.Equal(t, models.AttendanceStatusLeave, rec.Status)
		assert.True(t, rec.IsLocked)
	}

	require.Len(t, store.notifications, 2)
	assert.Equal(t, models.NotificationLeaveApproved, store.notifications[0].Type)
	assert.Equal(t, "u1", store.notifications[0].UserID)
	assert.Equal(t, "Your full-day leave from 2024-03-10 to 2024-03-12 has been approved.", store.notifications[0].Message)
	assert.Equal(t, models.NotificationReplacementAssigned, store.notifications[1].Type)
	assert.Equal(t, "u2", store.notifications[1].UserID)
	assert.Contains(t, store.notifications[1].Message, "2024-03-10, 2024-03-11, 2024-03-12")

	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityLeaveApproved, store.activity[0].Action)

	require.Len(t, queue.jobs, 1)
	delivery := queue.jobs[0].Payload.(Delivery)
	assert.Equal(t, int64(77), delivery.MessengerUserID)
}

func TestApproveReportsUncoveredDates(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-mon", staffAsha, "Monday", 9)
	store.addSlot("t-tue", staffAsha, "Tuesday", 9)
	busy := staffBala
	store.assignments = append(store.assignments, models.ScheduleAssignment{
		ID: "existing", TimetableID: "t-x", OriginalStaffID: staffChitra, ReplacementStaffID: &busy,
		ScheduledDate: mustDate("2024-03-11"), Status: models.AssignmentStatusPending,
	})

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &busy}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []models.Date{mustDate("2024-03-11")}, result.UncoveredDates)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "t-tue", result.Assignments[0].TimetableID)
	assert.Len(t, store.attendance, 3)
}

func TestApproveTwiceFailsWithInvalidState(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-mon", staffAsha, "Monday", 9)

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	replacement := staffBala
	req := models.ApproveLeaveRequest{ReplacementStaffID: &replacement}
	_, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", req, models.RequestMeta{})
	require.NoError(t, err)
	assignments := len(store.assignments)
	attendance := len(store.attendance)

	_, err = svc.ApproveLeave(context.Background(), adminActor, "leave-1", req, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Len(t, store.assignments, assignments)
	assert.Len(t, store.attendance, attendance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRaceLosesConditionalUpdate(t *testing.T) {
	store := newMemStore()
	seedMarch(store)

	tx, mock := newTxProviderMock(t)
	leaves := &racingLeaves{memLeaves: memLeaves{store}}
	svc := NewLeaveService(tx, leaves, store, NewSlotResolver(store),
		NewAssignmentMaterializer(memAssignments{store}, NewAvailabilityChecker(store, store)),
		NewAttendanceSynchronizer(store), NewNotifier(memNotifications{store}, nil, nil, nil),
		memActivity{store}, nil, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	assert.Empty(t, store.attendance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// racingLeaves approves the leave from "another request" between the read and the conditional update.
type racingLeaves struct {
	memLeaves
}

func (r *racingLeaves) TransitionFromPending(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, decidedBy string, comments *string) (*models.LeaveRequest, error) {
	if _, err := r.memLeaves.TransitionFromPending(ctx, exec, id, models.LeaveStatusApproved, "other-admin", nil); err != nil {
		return nil, err
	}
	return r.memLeaves.TransitionFromPending(ctx, exec, id, status, decidedBy, comments)
}

func TestApproveMorningHalfDayTargetsMorningSlots(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	store.addStaff(staffBala, "u2", "Bala")
	morning := models.SessionMorning
	store.addLeave(models.LeaveRequest{
		ID: "leave-h", StaffID: staffAsha, LeaveType: models.LeaveTypeHalfDay, Session: &morning,
		StartDate: mustDate("2024-03-11"), EndDate: mustDate("2024-03-11"),
	})
	store.addSlot("t-early", staffAsha, "Monday", 8)
	store.addSlot("t-late-morning", staffAsha, "Monday", 11)
	store.addSlot("t-noon", staffAsha, "Monday", 12)
	store.addSlot("t-afternoon", staffAsha, "Monday", 15)

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	replacement := staffBala
	result, err := svc.ApproveLeave(context.Background(), adminActor, "leave-h", models.ApproveLeaveRequest{ReplacementStaffID: &replacement}, models.RequestMeta{})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 2)
	for _, a := range result.Assignments {
		assert.Contains(t, []string{"t-early", "t-late-morning"}, a.TimetableID)
		require.NotNil(t, a.Session)
		assert.Equal(t, models.SessionMorning, *a.Session)
	}
	rec := store.attendance[attendanceKey(staffAsha, mustDate("2024-03-11"))]
	require.NotNil(t, rec)
	assert.Equal(t, models.AttendanceStatusHalfDay, rec.Status)
	assert.Equal(t, models.SessionMorning, *rec.LeaveSession)
	assert.Contains(t, store.notifications[1].Message, "(morning session)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveHalfDayTreatsWholeDayCoverAsBusy(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	store.addStaff(staffBala, "u2", "Bala")
	morning := models.SessionMorning
	store.addLeave(models.LeaveRequest{
		ID: "leave-h", StaffID: staffAsha, LeaveType: models.LeaveTypeHalfDay, Session: &morning,
		StartDate: mustDate("2024-03-11"), EndDate: mustDate("2024-03-11"),
	})
	store.addSlot("t-early", staffAsha, "Monday", 9)
	busy := staffBala
	store.assignments = append(store.assignments, models.ScheduleAssignment{
		ID: "whole-day", TimetableID: "t-x", OriginalStaffID: staffChitra, ReplacementStaffID: &busy,
		ScheduledDate: mustDate("2024-03-11"), Status: models.AssignmentStatusPending,
	})

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.ApproveLeave(context.Background(), adminActor, "leave-h", models.ApproveLeaveRequest{ReplacementStaffID: &busy}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []models.Date{mustDate("2024-03-11")}, result.UncoveredDates)
	assert.Empty(t, result.Assignments)
	assert.Len(t, store.assignments, 1)
}

func TestApproveWithoutReplacementOnlySyncsAttendance(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-mon", staffAsha, "Monday", 9)

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
	assert.Empty(t, result.UncoveredDates)
	assert.Len(t, store.attendance, 3)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotificationLeaveApproved, store.notifications[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveValidatesReplacementBeforeWriting(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.staff[staffChitra].Active = false
	svc, mock, _ := buildLeaveService(t, store)

	self := staffAsha
	_, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &self}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	missing := "8d3c2b52-4a0f-4f49-9d7b-2f1f1b1b1b1b"
	_, err = svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &missing}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	inactive := staffChitra
	_, err = svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &inactive}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.ApproveLeave(context.Background(), adminActor, "missing", models.ApproveLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.Equal(t, models.LeaveStatusPending, store.leaves["leave-1"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequiresAdmin(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	svc, _, _ := buildLeaveService(t, store)

	_, err := svc.ApproveLeave(context.Background(), models.Actor{UserID: "u2", StaffID: staffBala, Role: models.RoleStaff}, "leave-1", models.ApproveLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestApproveRollsBackOnStorageFailure(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-mon", staffAsha, "Monday", 9)
	store.failAssignmentCreate = true

	svc, mock, queue := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	replacement := staffBala
	_, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{ReplacementStaffID: &replacement}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, queue.jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRollsBackWhenNotificationFails(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.failNotify = true

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ApproveLeave(context.Background(), adminActor, "leave-1", models.ApproveLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectWritesOneNotificationOnly(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addSlot("t-mon", staffAsha, "Monday", 9)

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	comments := "exam week"
	leave, err := svc.RejectLeave(context.Background(), adminActor, "leave-1", models.RejectLeaveRequest{Comments: &comments}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusRejected, leave.Status)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotificationLeaveRejected, store.notifications[0].Type)
	assert.Equal(t, "Your leave request has been rejected. exam week", store.notifications[0].Message)
	assert.Empty(t, store.attendance)
	assert.Empty(t, store.assignments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectDecidedLeave(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.leaves["leave-1"].Status = models.LeaveStatusApproved

	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.RejectLeave(context.Background(), adminActor, "leave-1", models.RejectLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.RejectLeave(context.Background(), adminActor, "nope", models.RejectLeaveRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, store.notifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLeaveNormalizesSession(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	actor := models.Actor{UserID: "u1", StaffID: staffAsha, Role: models.RoleStaff}
	leave, err := svc.RequestLeave(context.Background(), actor, models.RequestLeaveRequest{
		StaffID:   "b0f1c7de-3c39-4c1c-8d53-1b2f33f0d2a1",
		LeaveType: models.LeaveTypeHalfDay,
		Session:   "AN",
		StartDate: mustDate("2024-03-11"),
	}, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, staffAsha, leave.StaffID)
	require.NotNil(t, leave.Session)
	assert.Equal(t, models.SessionAfternoon, *leave.Session)
	assert.Equal(t, leave.StartDate, leave.EndDate)
	assert.Equal(t, models.LeaveStatusPending, leave.Status)
	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityLeaveRequested, store.activity[0].Action)
	assert.Equal(t, "10.0.0.1", *store.activity[0].IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLeaveValidation(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	svc, _, _ := buildLeaveService(t, store)
	actor := models.Actor{UserID: "u1", StaffID: staffAsha, Role: models.RoleStaff}

	cases := map[string]models.RequestLeaveRequest{
		"missing session": {LeaveType: models.LeaveTypeHalfDay, StartDate: mustDate("2024-03-11")},
		"bad session":     {LeaveType: models.LeaveTypeHalfDay, Session: "evening", StartDate: mustDate("2024-03-11")},
		"reversed range":  {LeaveType: models.LeaveTypeFullDay, StartDate: mustDate("2024-03-12"), EndDate: mustDate("2024-03-10")},
		"no start":        {LeaveType: models.LeaveTypeFullDay},
		"bad type":        {LeaveType: "sabbatical", StartDate: mustDate("2024-03-11")},
		"span too long":   {LeaveType: models.LeaveTypeFullDay, StartDate: mustDate("2024-01-01"), EndDate: mustDate("2025-01-01")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RequestLeave(context.Background(), actor, req, models.RequestMeta{})
			assert.True(t, errors.Is(err, appErrors.ErrValidation), "got %v", err)
		})
	}
}

func TestRequestLeaveDropsSessionForFullDay(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	svc, mock, _ := buildLeaveService(t, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	leave, err := svc.RequestLeave(context.Background(), models.Actor{UserID: "u1", StaffID: staffAsha, Role: models.RoleStaff}, models.RequestLeaveRequest{
		LeaveType: models.LeaveTypeFullDay,
		Session:   "FN",
		StartDate: mustDate("2024-03-10"),
		EndDate:   mustDate("2024-03-12"),
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, leave.Session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailableReplacementsExcludesBusyStaff(t *testing.T) {
	store := newMemStore()
	store.addStaff(staffAsha, "u1", "Asha")
	store.addStaff(staffBala, "u2", "Bala")
	store.addStaff(staffChitra, "u3", "Chitra")
	store.addStaff(staffDev, "u4", "Dev")
	morning := models.SessionMorning
	store.addLeave(models.LeaveRequest{
		ID: "leave-h", StaffID: staffAsha, LeaveType: models.LeaveTypeHalfDay, Session: &morning,
		StartDate: mustDate("2024-03-11"), EndDate: mustDate("2024-03-11"),
	})
	busy := staffBala
	store.assignments = append(store.assignments, models.ScheduleAssignment{
		ReplacementStaffID: &busy, ScheduledDate: mustDate("2024-03-11"), Session: &morning,
	})
	store.addLeave(models.LeaveRequest{
		ID: "leave-s3", StaffID: staffChitra, LeaveType: models.LeaveTypeFullDay, Status: models.LeaveStatusApproved,
		StartDate: mustDate("2024-03-10"), EndDate: mustDate("2024-03-15"),
	})

	svc, _, _ := buildLeaveService(t, store)
	staff, err := svc.ListAvailableReplacements(context.Background(), "leave-h")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, staffDev, staff[0].ID)

	_, err = svc.ListAvailableReplacements(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestListAvailableReplacementsChecksEveryLeaveDate(t *testing.T) {
	store := newMemStore()
	seedMarch(store)
	store.addStaff(staffDev, "u4", "Dev")
	busy := staffBala
	store.assignments = append(store.assignments, models.ScheduleAssignment{
		ReplacementStaffID: &busy, ScheduledDate: mustDate("2024-03-11"),
	})
	store.addLeave(models.LeaveRequest{
		ID: "leave-dev", StaffID: staffDev, LeaveType: models.LeaveTypeFullDay, Status: models.LeaveStatusApproved,
		StartDate: mustDate("2024-03-12"), EndDate: mustDate("2024-03-12"),
	})

	svc, _, _ := buildLeaveService(t, store)
	staff, err := svc.ListAvailableReplacements(context.Background(), "leave-1")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, staffChitra, staff[0].ID)
}

func buildLeaveService(t *testing.T, store *memStore) (*LeaveService, sqlmock.Sqlmock, *recordingQueue) {
	tx, mock := newTxProviderMock(t)
	queue := &recordingQueue{}
	svc := NewLeaveService(
		tx,
		memLeaves{store},
		store,
		NewSlotResolver(store),
		NewAssignmentMaterializer(memAssignments{store}, NewAvailabilityChecker(store, store)),
		NewAttendanceSynchronizer(store),
		NewNotifier(memNotifications{store}, queue, nil, nil),
		memActivity{store},
		nil,
		NewMetricsService(),
		nil,
		nil,
	)
	return svc, mock, queue
}
