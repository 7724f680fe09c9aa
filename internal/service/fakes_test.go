package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/jobs"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

var errStoreDown = errors.New("store down")

// memStore is an in-memory stand-in for every repository the scheduling services use.
// Writes made through it are not rolled back; tests assert on the sqlmock expectations for that.
type memStore struct {
	staff         map[string]*models.Staff
	leaves        map[string]*models.LeaveRequest
	slots         []models.TimetableSlot
	assignments   []models.ScheduleAssignment
	attendance    map[string]*models.AttendanceRecord
	notifications []models.Notification
	activity      []models.ActivityLog

	failAssignmentCreate bool
	failNotify           bool
}

func newMemStore() *memStore {
	return &memStore{
		staff:      map[string]*models.Staff{},
		leaves:     map[string]*models.LeaveRequest{},
		attendance: map[string]*models.AttendanceRecord{},
	}
}

func (m *memStore) addStaff(id, userID, name string) *models.Staff {
	s := &models.Staff{ID: id, UserID: userID, Name: name, Email: id + "@college.edu", Active: true}
	m.staff[id] = s
	return s
}

func (m *memStore) addLeave(l models.LeaveRequest) *models.LeaveRequest {
	if l.Status == "" {
		l.Status = models.LeaveStatusPending
	}
	m.leaves[l.ID] = &l
	return &l
}

func (m *memStore) addSlot(id, staffID, day string, hour int) {
	m.slots = append(m.slots, models.TimetableSlot{
		ID: id, StaffID: staffID, CourseName: "Course " + id, DayOfWeek: day,
		StartTime: models.NewTimeOfDay(hour, 0, 0), EndTime: models.NewTimeOfDay(hour+1, 0, 0), Active: true,
	})
}

// staff

func (m *memStore) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Staff, error) {
	s, ok := m.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListAvailableReplacements(_ context.Context, leave *models.LeaveRequest) ([]models.Staff, error) {
	var out []models.Staff
	for _, s := range m.staff {
		if s.ID == leave.StaffID || !s.Active {
			continue
		}
		free := true
		for _, day := range leave.StartDate.DaysThrough(leave.CoverageEnd()) {
			onLeave, _ := m.HasApprovedCovering(context.Background(), nil, s.ID, day)
			busy, _ := m.ExistsForReplacement(context.Background(), nil, s.ID, day, leave.Session)
			if onLeave || busy {
				free = false
				break
			}
		}
		if free {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// leaves

type memLeaves struct{ *memStore }

func (m memLeaves) Create(_ context.Context, _ sqlx.ExtContext, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = "leave-new"
	}
	cp := *leave
	m.leaves[leave.ID] = &cp
	return nil
}

func (m memLeaves) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.LeaveRequest, error) {
	l, ok := m.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m memLeaves) List(_ context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, l := range m.leaves {
		if filter.StaffID != "" && l.StaffID != filter.StaffID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (m memLeaves) TransitionFromPending(_ context.Context, _ sqlx.ExtContext, id string, status models.LeaveStatus, decidedBy string, comments *string) (*models.LeaveRequest, error) {
	l, ok := m.leaves[id]
	if !ok || l.Status != models.LeaveStatusPending {
		return nil, sql.ErrNoRows
	}
	l.Status = status
	l.ApprovedBy = &decidedBy
	l.AdminComments = comments
	cp := *l
	return &cp, nil
}

func (m *memStore) HasApprovedCovering(_ context.Context, _ sqlx.ExtContext, staffID string, date models.Date) (bool, error) {
	for _, l := range m.leaves {
		if l.StaffID == staffID && l.Status == models.LeaveStatusApproved && l.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindApprovedCovering(_ context.Context, _ sqlx.ExtContext, staffID string, date models.Date) (*models.LeaveRequest, error) {
	for _, l := range m.leaves {
		if l.StaffID == staffID && l.Status == models.LeaveStatusApproved && l.Covers(date) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// timetables

func (m *memStore) ListActiveByStaff(_ context.Context, _ sqlx.ExtContext, staffID string) ([]models.TimetableSlot, error) {
	var out []models.TimetableSlot
	for _, s := range m.slots {
		if s.StaffID == staffID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

// assignments

type memAssignments struct{ *memStore }

func (m memAssignments) Create(_ context.Context, _ sqlx.ExtContext, a *models.ScheduleAssignment) error {
	if m.failAssignmentCreate {
		return errStoreDown
	}
	if a.ID == "" {
		a.ID = "assignment-" + a.TimetableID + "-" + a.ScheduledDate.String()
	}
	m.assignments = append(m.assignments, *a)
	return nil
}

func (m *memStore) ExistsForReplacement(_ context.Context, _ sqlx.ExtContext, staffID string, date models.Date, session *models.LeaveSession) (bool, error) {
	for _, a := range m.assignments {
		if a.ReplacementStaffID == nil || *a.ReplacementStaffID != staffID || !a.ScheduledDate.Equal(date) {
			continue
		}
		if session != nil && a.Session != nil && *a.Session != *session {
			continue
		}
		return true, nil
	}
	return false, nil
}

// attendance

func attendanceKey(staffID string, date models.Date) string {
	return staffID + "|" + date.String()
}

func (m *memStore) Upsert(_ context.Context, _ sqlx.ExtContext, r *models.AttendanceRecord) error {
	key := attendanceKey(r.StaffID, r.Date)
	if existing, ok := m.attendance[key]; ok {
		r.ID = existing.ID
		if r.CheckInTime == nil {
			r.CheckInTime = existing.CheckInTime
		}
	} else if r.ID == "" {
		r.ID = "att-" + key
	}
	cp := *r
	m.attendance[key] = &cp
	return nil
}

func (m *memStore) FindByStaffDate(_ context.Context, _ sqlx.ExtContext, staffID string, date models.Date) (*models.AttendanceRecord, error) {
	r, ok := m.attendance[attendanceKey(staffID, date)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

// notifications and activity

type memNotifications struct{ *memStore }

func (m memNotifications) Create(_ context.Context, _ sqlx.ExtContext, n *models.Notification) error {
	if m.failNotify {
		return errStoreDown
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

type memActivity struct{ *memStore }

func (m memActivity) Create(_ context.Context, _ sqlx.ExtContext, log *models.ActivityLog) error {
	m.activity = append(m.activity, *log)
	return nil
}

// queue

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func mustDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
