package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type attendanceStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
	FindByStaffDate(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (*models.AttendanceRecord, error)
	Override(ctx context.Context, id string, status models.AttendanceStatus, reason, overriddenBy string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type approvedLeaveFinder interface {
	FindApprovedCovering(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (*models.LeaveRequest, error)
}

// AttendancePolicy governs self-service marking.
type AttendancePolicy struct {
	Location     *time.Location
	CutoffHour   int
	CutoffMinute int
}

// AttendanceService records daily staff attendance.
type AttendanceService struct {
	tx        txProvider
	repo      attendanceStore
	leaves    approvedLeaveFinder
	activity  activityWriter
	metrics   *MetricsService
	policy    AttendancePolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService. A nil policy location means time.Local.
func NewAttendanceService(tx txProvider, repo attendanceStore, leaves approvedLeaveFinder, activity activityWriter, metrics *MetricsService, policy AttendancePolicy, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy.Location == nil {
		policy.Location = time.Local
	}
	return &AttendanceService{
		tx:        tx,
		repo:      repo,
		leaves:    leaves,
		activity:  activity,
		metrics:   metrics,
		policy:    policy,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns attendance rows. Staff only see their own.
func (s *AttendanceService) List(ctx context.Context, actor models.Actor, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if !actor.IsAdmin() {
		filter.StaffID = actor.StaffID
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

// Mark records today's attendance for the caller. Days covered by approved leave are set from
// the leave instead of the requested status. Locked rows can only change through Override.
func (s *AttendanceService) Mark(ctx context.Context, actor models.Actor, req models.MarkAttendanceRequest, meta models.RequestMeta) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	staffID := actor.StaffID
	if actor.IsAdmin() && req.StaffID != "" {
		staffID = req.StaffID
	}
	if staffID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no staff record for this account")
	}

	now := s.now().In(s.policy.Location)
	today := models.DateOf(now)
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if !req.Date.Equal(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance can only be marked for today")
	}
	if req.Status == models.AttendanceStatusPresent && s.pastCutoff(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("attendance marking closed, cut-off time is %02d:%02d", s.policy.CutoffHour, s.policy.CutoffMinute))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.repo.FindByStaffDate(ctx, tx, staffID, today)
	switch {
	case err == nil:
		if existing.IsLocked || existing.Status == models.AttendanceStatusPresent {
			err = appErrors.Clone(appErrors.ErrInvalidState, "attendance is locked and can only be changed by an administrator")
			return nil, err
		}
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		err = appErrors.Storage(err, "failed to load attendance")
		return nil, err
	}

	checkIn := models.ClockOf(now)
	record := &models.AttendanceRecord{
		StaffID:     staffID,
		Date:        today,
		Status:      req.Status,
		CheckInTime: &checkIn,
		IsLocked:    req.Status == models.AttendanceStatusPresent,
	}

	leave, err := s.leaves.FindApprovedCovering(ctx, tx, staffID, today)
	switch {
	case err == nil:
		record.Status = models.AttendanceStatusForLeave(leave.LeaveType)
		record.LeaveSession = leave.Session
		record.IsLocked = true
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		err = appErrors.Storage(err, "failed to check approved leave")
		return nil, err
	}

	if err = s.repo.Upsert(ctx, tx, record); err != nil {
		err = appErrors.Storage(err, "failed to mark attendance")
		return nil, err
	}
	details := map[string]interface{}{"date": today, "status": record.Status}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityAttendanceMarked, details, meta)); err != nil {
		err = appErrors.Storage(err, "failed to record activity")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit attendance")
		return nil, err
	}

	s.metrics.RecordAttendanceMark(record.Status)
	return record, nil
}

// Override lets an administrator correct any row. The row is unlocked afterwards.
func (s *AttendanceService) Override(ctx context.Context, actor models.Actor, id string, req models.OverrideAttendanceRequest, meta models.RequestMeta) (*models.AttendanceRecord, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can override attendance")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}

	record, err := s.repo.Override(ctx, id, req.Status, req.Reason, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Storage(err, "failed to override attendance")
	}

	details := map[string]interface{}{"attendance_id": id, "status": req.Status, "reason": req.Reason}
	if err := s.activity.Create(ctx, nil, activityEntry(actor, models.ActivityAttendanceOverride, details, meta)); err != nil {
		s.logger.Warn("failed to record attendance override activity", zap.Error(err))
	}
	return record, nil
}

func (s *AttendanceService) pastCutoff(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.policy.CutoffHour, s.policy.CutoffMinute, 0, 0, now.Location())
	return now.After(cutoff)
}
