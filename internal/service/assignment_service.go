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

type assignmentStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleAssignment, error)
	Override(ctx context.Context, exec sqlx.ExtContext, id, replacementStaffID string) error
	ListClasses(ctx context.Context, filter models.AssignmentFilter) ([]models.ScheduledClass, error)
}

const (
	assignmentLookback  = 7
	assignmentLookahead = 30
)

// AssignmentService exposes replacement assignments and admin corrections to them.
type AssignmentService struct {
	tx           txProvider
	repo         assignmentStore
	staff        leaveStaffReader
	availability availabilityChecker
	notifier     notificationSink
	activity     activityWriter
	cache        cacheStore
	validator    *validator.Validate
	logger       *zap.Logger
	location     *time.Location
	now          func() time.Time
}

// NewAssignmentService constructs an AssignmentService. cache may be nil.
func NewAssignmentService(tx txProvider, repo assignmentStore, staff leaveStaffReader, availability availabilityChecker, notifier notificationSink, activity activityWriter, cache cacheStore, location *time.Location, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if location == nil {
		location = time.Local
	}
	return &AssignmentService{
		tx:           tx,
		repo:         repo,
		staff:        staff,
		availability: availability,
		notifier:     notifier,
		activity:     activity,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		location:     location,
		now:          time.Now,
	}
}

// List returns assignments for the admin view, defaulting to the last week.
func (s *AssignmentService) List(ctx context.Context, actor models.Actor, filter models.AssignmentFilter) ([]models.ScheduledClass, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can list all assignments")
	}
	today := s.today()
	if filter.To.IsZero() {
		filter.To = today
	}
	if filter.From.IsZero() {
		filter.From = filter.To.AddDays(-assignmentLookback)
	}
	return s.list(ctx, filter)
}

// ScheduledClasses returns the classes the caller covers, from last week to a month ahead.
func (s *AssignmentService) ScheduledClasses(ctx context.Context, actor models.Actor, filter models.AssignmentFilter) ([]models.ScheduledClass, error) {
	if !actor.IsAdmin() {
		if actor.StaffID == "" {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no staff record for this account")
		}
		filter.ReplacementStaffID = actor.StaffID
	}
	today := s.today()
	if filter.From.IsZero() {
		filter.From = today.AddDays(-assignmentLookback)
	}
	if filter.To.IsZero() {
		filter.To = today.AddDays(assignmentLookahead)
	}
	return s.list(ctx, filter)
}

func (s *AssignmentService) list(ctx context.Context, filter models.AssignmentFilter) ([]models.ScheduledClass, error) {
	if filter.To.Before(filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	classes, err := s.repo.ListClasses(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list schedule assignments")
	}
	if classes == nil {
		classes = []models.ScheduledClass{}
	}
	return classes, nil
}

// Override hands an assignment to a different replacement, who must be free on that date.
func (s *AssignmentService) Override(ctx context.Context, actor models.Actor, id string, req models.OverrideAssignmentRequest, meta models.RequestMeta) (*models.ScheduleAssignment, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can override assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
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

	assignment, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
			return nil, err
		}
		err = appErrors.Storage(err, "failed to load assignment")
		return nil, err
	}
	if req.ReplacementStaffID == assignment.OriginalStaffID {
		err = appErrors.Clone(appErrors.ErrValidation, "replacement must differ from the original staff member")
		return nil, err
	}
	replacement, err := s.staff.FindByID(ctx, tx, req.ReplacementStaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "replacement staff not found")
			return nil, err
		}
		err = appErrors.Storage(err, "failed to load replacement staff")
		return nil, err
	}
	if !replacement.Active {
		err = appErrors.Clone(appErrors.ErrValidation, "replacement staff is inactive")
		return nil, err
	}
	available, err := s.availability.IsAvailable(ctx, tx, replacement.ID, assignment.ScheduledDate, assignment.Session)
	if err != nil {
		err = appErrors.Storage(err, "failed to check availability")
		return nil, err
	}
	if !available {
		err = appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("replacement staff is not available on %s", assignment.ScheduledDate))
		return nil, err
	}

	if err = s.repo.Override(ctx, tx, id, replacement.ID); err != nil {
		err = appErrors.Storage(err, "failed to override assignment")
		return nil, err
	}
	previous := assignment.ReplacementStaffID
	assignment.ReplacementStaffID = &replacement.ID
	assignment.Status = models.AssignmentStatusOverridden

	title, message := assignedMessage([]models.ScheduleAssignment{*assignment}, assignment.Session)
	if _, err = s.notifier.Notify(ctx, tx, replacement.UserID, models.NotificationReplacementAssigned, title, message); err != nil {
		err = storageError(err, "failed to notify replacement")
		return nil, err
	}
	details := map[string]interface{}{
		"assignment_id":           id,
		"previous_replacement_id": previous,
		"replacement_staff_id":    replacement.ID,
		"scheduled_date":          assignment.ScheduledDate,
	}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityAssignmentOverride, details, meta)); err != nil {
		err = appErrors.Storage(err, "failed to record activity")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit assignment override")
		return nil, err
	}

	if d, ok := DeliveryFor(replacement, title, message); ok {
		s.notifier.Dispatch(d)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, replacementsCachePrefix+":*")
	}
	s.logger.Info("assignment overridden", zap.String("assignment_id", id), zap.String("replacement_staff_id", replacement.ID))
	return assignment, nil
}

func (s *AssignmentService) today() models.Date {
	return models.DateOf(s.now().In(s.location))
}
