package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/database"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type timetableStore interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimetableSlot, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Update(ctx context.Context, slot *models.TimetableSlot) error
	Deactivate(ctx context.Context, id string) error
}

// TimetableService manages the weekly teaching timetable.
type TimetableService struct {
	repo      timetableStore
	staff     leaveStaffReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableStore, staff leaveStaffReader, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, staff: staff, validator: ensureValidator(validate), logger: logger}
}

// List returns timetable slots. Staff only see their own.
func (s *TimetableService) List(ctx context.Context, actor models.Actor, filter models.TimetableFilter) ([]models.TimetableSlot, error) {
	if !actor.IsAdmin() {
		filter.StaffID = actor.StaffID
	}
	if filter.DayOfWeek != "" {
		wd, ok := models.ParseWeekday(filter.DayOfWeek)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day_of_week")
		}
		filter.DayOfWeek = wd.String()
	}
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list timetable")
	}
	if slots == nil {
		slots = []models.TimetableSlot{}
	}
	return slots, nil
}

// Create adds a slot to a staff member's timetable.
func (s *TimetableService) Create(ctx context.Context, actor models.Actor, req models.TimetableRequest) (*models.TimetableSlot, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit the timetable")
	}
	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "staff_id references no staff member")
		}
		return nil, appErrors.Storage(err, "failed to create timetable slot")
	}
	return slot, nil
}

// Update replaces a slot's fields.
func (s *TimetableService) Update(ctx context.Context, actor models.Actor, id string, req models.TimetableRequest) (*models.TimetableSlot, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit the timetable")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
		}
		return nil, appErrors.Storage(err, "failed to load timetable slot")
	}
	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	slot.ID = existing.ID
	slot.Active = existing.Active
	slot.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
		}
		return nil, appErrors.Storage(err, "failed to update timetable slot")
	}
	return slot, nil
}

// Delete removes a slot from the active timetable. Past assignments keep referencing it.
func (s *TimetableService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit the timetable")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
		}
		return appErrors.Storage(err, "failed to delete timetable slot")
	}
	return nil
}

func (s *TimetableService) buildSlot(ctx context.Context, req models.TimetableRequest) (*models.TimetableSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	staff, err := s.staff.FindByID(ctx, nil, req.StaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Storage(err, "failed to load staff")
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff member is inactive")
	}
	wd, _ := models.ParseWeekday(req.DayOfWeek)
	return &models.TimetableSlot{
		StaffID:    req.StaffID,
		CourseName: req.CourseName,
		CourseCode: req.CourseCode,
		DayOfWeek:  wd.String(),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Classroom:  req.Classroom,
		Batch:      req.Batch,
		Semester:   req.Semester,
		Active:     true,
	}, nil
}
