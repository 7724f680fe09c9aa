package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type leaveStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	TransitionFromPending(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, decidedBy string, comments *string) (*models.LeaveRequest, error)
}

type leaveStaffReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error)
	ListAvailableReplacements(ctx context.Context, leave *models.LeaveRequest) ([]models.Staff, error)
}

type slotResolver interface {
	AffectedSlots(ctx context.Context, exec sqlx.ExtContext, staffID string, leaveType models.LeaveType, session *models.LeaveSession) ([]models.TimetableSlot, error)
}

type assignmentMaterializer interface {
	Materialize(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest, slots []models.TimetableSlot, replacementID *string) ([]models.ScheduleAssignment, []models.Date, error)
}

type attendanceSynchronizer interface {
	SyncLeave(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error
}

type notificationSink interface {
	Notify(ctx context.Context, exec sqlx.ExtContext, userID string, kind models.NotificationType, title, message string) (*models.Notification, error)
	Dispatch(deliveries ...Delivery)
}

type cacheStore interface {
	Remember(ctx context.Context, key string, dest interface{}, load func() error) (bool, error)
	Invalidate(ctx context.Context, pattern string)
}

// LeaveService runs the leave request workflow: application, approval with replacement
// scheduling, and rejection.
type LeaveService struct {
	tx           txProvider
	leaves       leaveStore
	staff        leaveStaffReader
	slots        slotResolver
	materializer assignmentMaterializer
	attendance   attendanceSynchronizer
	notifier     notificationSink
	activity     activityWriter
	cache        cacheStore
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewLeaveService constructs the service. cache and metrics may be nil.
func NewLeaveService(
	tx txProvider,
	leaves leaveStore,
	staff leaveStaffReader,
	slots slotResolver,
	materializer assignmentMaterializer,
	attendance attendanceSynchronizer,
	notifier notificationSink,
	activity activityWriter,
	cache cacheStore,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		tx:           tx,
		leaves:       leaves,
		staff:        staff,
		slots:        slots,
		materializer: materializer,
		attendance:   attendance,
		notifier:     notifier,
		activity:     activity,
		cache:        cache,
		metrics:      metrics,
		validator:    ensureValidator(validate),
		logger:       logger,
	}
}

// List returns leave requests; staff only see their own.
func (s *LeaveService) List(ctx context.Context, actor models.Actor, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	if !actor.IsAdmin() {
		if actor.StaffID == "" {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no staff record for this account")
		}
		filter.StaffID = actor.StaffID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid leave status")
	}
	leaves, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list leave requests")
	}
	return leaves, nil
}

// RequestLeave records a pending leave request for the caller (or, for admins, the named staff member).
func (s *LeaveService) RequestLeave(ctx context.Context, actor models.Actor, req models.RequestLeaveRequest, meta models.RequestMeta) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave request payload")
	}

	staffID := actor.StaffID
	if actor.IsAdmin() && req.StaffID != "" {
		staffID = req.StaffID
	}
	if staffID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff_id is required")
	}

	leave, err := buildLeave(staffID, req)
	if err != nil {
		return nil, err
	}

	staff, err := s.staff.FindByID(ctx, nil, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Storage(err, "failed to load staff")
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff member is inactive")
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

	if err = s.leaves.Create(ctx, tx, leave); err != nil {
		return nil, appErrors.Storage(err, "failed to create leave request")
	}
	details := map[string]interface{}{"leave_id": leave.ID, "staff_id": staffID, "leave_type": leave.LeaveType}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityLeaveRequested, details, meta)); err != nil {
		return nil, appErrors.Storage(err, "failed to record activity")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit leave request")
	}

	s.logger.Info("leave requested", zap.String("leave_id", leave.ID), zap.String("staff_id", staffID))
	return leave, nil
}

// maxLeaveDays bounds a single request to one academic year.
const maxLeaveDays = 366

func buildLeave(staffID string, req models.RequestLeaveRequest) (*models.LeaveRequest, error) {
	if req.StartDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date is required")
	}
	end := req.EndDate
	if end.IsZero() {
		end = req.StartDate
	}
	if end.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if end.After(req.StartDate.AddDays(maxLeaveDays - 1)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("leave may not span more than %d days", maxLeaveDays))
	}

	leave := &models.LeaveRequest{
		StaffID:          staffID,
		LeaveType:        req.LeaveType,
		StartDate:        req.StartDate,
		EndDate:          end,
		Reason:           req.Reason,
		EmergencyContact: req.EmergencyContact,
		Status:           models.LeaveStatusPending,
	}
	if req.LeaveType == models.LeaveTypeHalfDay {
		session, ok := models.NormalizeSession(req.Session)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "half-day leave requires a session")
		}
		leave.Session = &session
	}
	return leave, nil
}

// ApproveLeave approves a pending request, locks attendance for its dates and hands its classes
// to the optional replacement. Dates the replacement cannot cover are reported, not fatal.
// Everything up to the in-app notifications commits atomically.
func (s *LeaveService) ApproveLeave(ctx context.Context, actor models.Actor, leaveID string, req models.ApproveLeaveRequest, meta models.RequestMeta) (*models.ApproveLeaveResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can approve leave")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	replacementID := req.ReplacementStaffID
	if replacementID != nil && strings.TrimSpace(*replacementID) == "" {
		replacementID = nil
	}

	current, err := s.loadLeave(ctx, nil, leaveID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("leave request is already %s", current.Status))
	}
	var replacement *models.Staff
	if replacementID != nil {
		if replacement, err = s.validateReplacement(ctx, current, *replacementID); err != nil {
			return nil, err
		}
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

	leave, err := s.transition(ctx, tx, leaveID, models.LeaveStatusApproved, actor.UserID, req.Comments)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.AffectedSlots(ctx, tx, leave.StaffID, leave.LeaveType, leave.Session)
	if err != nil {
		err = storageError(err, "failed to resolve affected classes")
		return nil, err
	}
	if err = s.attendance.SyncLeave(ctx, tx, leave); err != nil {
		err = storageError(err, "failed to sync attendance")
		return nil, err
	}
	created, uncovered, err := s.materializer.Materialize(ctx, tx, leave, slots, replacementID)
	if err != nil {
		err = storageError(err, "failed to create schedule assignments")
		return nil, err
	}

	requester, err := s.staff.FindByID(ctx, tx, leave.StaffID)
	if err != nil {
		err = storageError(err, "failed to load requester")
		return nil, err
	}

	var deliveries []Delivery
	title, message := approvedMessage(leave)
	if _, err = s.notifier.Notify(ctx, tx, requester.UserID, models.NotificationLeaveApproved, title, message); err != nil {
		err = storageError(err, "failed to notify requester")
		return nil, err
	}
	if d, ok := DeliveryFor(requester, title, message); ok {
		deliveries = append(deliveries, d)
	}
	if replacement != nil && len(created) > 0 {
		title, message := assignedMessage(created, leave.Session)
		if _, err = s.notifier.Notify(ctx, tx, replacement.UserID, models.NotificationReplacementAssigned, title, message); err != nil {
			err = storageError(err, "failed to notify replacement")
			return nil, err
		}
		if d, ok := DeliveryFor(replacement, title, message); ok {
			deliveries = append(deliveries, d)
		}
	}

	details := map[string]interface{}{
		"leave_id":             leave.ID,
		"replacement_staff_id": replacementID,
		"assignments":          len(created),
		"uncovered_dates":      uncovered,
	}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityLeaveApproved, details, meta)); err != nil {
		err = storageError(err, "failed to record activity")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit leave approval")
		return nil, err
	}

	s.afterDecision(ctx, leave, deliveries, len(created), len(uncovered))
	if len(uncovered) > 0 {
		s.logger.Warn("replacement unavailable on some dates",
			zap.String("leave_id", leave.ID),
			zap.Int("uncovered", len(uncovered)),
		)
	}
	return &models.ApproveLeaveResult{LeaveRequest: leave, Assignments: created, UncoveredDates: uncovered}, nil
}

// RejectLeave rejects a pending request and notifies the requester. Attendance and assignments
// are left untouched.
func (s *LeaveService) RejectLeave(ctx context.Context, actor models.Actor, leaveID string, req models.RejectLeaveRequest, meta models.RequestMeta) (*models.LeaveRequest, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reject leave")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
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

	leave, err := s.transition(ctx, tx, leaveID, models.LeaveStatusRejected, actor.UserID, req.Comments)
	if err != nil {
		return nil, err
	}
	requester, err := s.staff.FindByID(ctx, tx, leave.StaffID)
	if err != nil {
		err = storageError(err, "failed to load requester")
		return nil, err
	}

	title, message := rejectedMessage(req.Comments)
	if _, err = s.notifier.Notify(ctx, tx, requester.UserID, models.NotificationLeaveRejected, title, message); err != nil {
		err = storageError(err, "failed to notify requester")
		return nil, err
	}
	details := map[string]interface{}{"leave_id": leave.ID}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityLeaveRejected, details, meta)); err != nil {
		err = storageError(err, "failed to record activity")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit leave rejection")
		return nil, err
	}

	var deliveries []Delivery
	if d, ok := DeliveryFor(requester, title, message); ok {
		deliveries = append(deliveries, d)
	}
	s.afterDecision(ctx, leave, deliveries, 0, 0)
	return leave, nil
}

// ListAvailableReplacements lists active staff able to cover the leave's first day.
func (s *LeaveService) ListAvailableReplacements(ctx context.Context, leaveID string) ([]models.Staff, error) {
	leave, err := s.loadLeave(ctx, nil, leaveID)
	if err != nil {
		return nil, err
	}

	var staff []models.Staff
	load := func() error {
		var loadErr error
		staff, loadErr = s.staff.ListAvailableReplacements(ctx, leave)
		return loadErr
	}
	if s.cache == nil {
		err = load()
	} else {
		_, err = s.cache.Remember(ctx, replacementsCacheKey(leave.ID), &staff, load)
	}
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list replacement staff")
	}
	if staff == nil {
		staff = []models.Staff{}
	}
	return staff, nil
}

func (s *LeaveService) loadLeave(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRequest, error) {
	leave, err := s.leaves.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Storage(err, "failed to load leave request")
	}
	return leave, nil
}

func (s *LeaveService) validateReplacement(ctx context.Context, leave *models.LeaveRequest, replacementID string) (*models.Staff, error) {
	if replacementID == leave.StaffID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "replacement must differ from the staff member on leave")
	}
	replacement, err := s.staff.FindByID(ctx, nil, replacementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "replacement staff not found")
		}
		return nil, appErrors.Storage(err, "failed to load replacement staff")
	}
	if !replacement.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "replacement staff is inactive")
	}
	return replacement, nil
}

// transition applies the pending -> status update. When no row changes it distinguishes a missing
// request from one that was already decided.
func (s *LeaveService) transition(ctx context.Context, tx *sqlx.Tx, id string, status models.LeaveStatus, decidedBy string, comments *string) (*models.LeaveRequest, error) {
	leave, err := s.leaves.TransitionFromPending(ctx, tx, id, status, decidedBy, comments)
	if err == nil {
		return leave, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Storage(err, "failed to update leave request")
	}
	existing, err := s.loadLeave(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("leave request is already %s", existing.Status))
}

func (s *LeaveService) afterDecision(ctx context.Context, leave *models.LeaveRequest, deliveries []Delivery, assignments, uncovered int) {
	s.notifier.Dispatch(deliveries...)
	if s.cache != nil {
		s.cache.Invalidate(ctx, replacementsCachePrefix+":*")
		s.cache.Invalidate(ctx, statsCacheKey)
	}
	s.metrics.RecordLeaveDecision(leave.Status, assignments, uncovered)
	s.logger.Info("leave decided",
		zap.String("leave_id", leave.ID),
		zap.String("status", string(leave.Status)),
		zap.Int("assignments", assignments),
	)
}

func approvedMessage(leave *models.LeaveRequest) (string, string) {
	kind := strings.ReplaceAll(string(leave.LeaveType), "_", "-")
	return "Leave Request Approved",
		fmt.Sprintf("Your %s leave from %s to %s has been approved.", kind, leave.StartDate, leave.EndDate)
}

func assignedMessage(created []models.ScheduleAssignment, session *models.LeaveSession) (string, string) {
	var dates []string
	seen := make(map[models.Date]bool)
	for _, a := range created {
		if !seen[a.ScheduledDate] {
			seen[a.ScheduledDate] = true
			dates = append(dates, a.ScheduledDate.String())
		}
	}
	message := "You have been assigned to cover classes on " + strings.Join(dates, ", ")
	if session != nil {
		message += fmt.Sprintf(" (%s session)", *session)
	}
	return "New Class Assignment", message
}

func rejectedMessage(comments *string) (string, string) {
	message := "Your leave request has been rejected."
	if comments != nil && strings.TrimSpace(*comments) != "" {
		message += " " + strings.TrimSpace(*comments)
	}
	return "Leave Request Rejected", message
}
