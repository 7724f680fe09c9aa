package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/database"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type staffStore interface {
	List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error)
	Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error
	Update(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error
}

type staffUserWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error
}

// StaffService manages staff records and their login accounts.
type StaffService struct {
	tx        txProvider
	staff     staffStore
	users     staffUserWriter
	activity  activityWriter
	cache     cacheStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService. cache may be nil.
func NewStaffService(tx txProvider, staff staffStore, users staffUserWriter, activity activityWriter, cache cacheStore, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{tx: tx, staff: staff, users: users, activity: activity, cache: cache, validator: validate, logger: logger}
}

// List returns paginated staff and pagination metadata.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, *models.Pagination, error) {
	staff, total, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list staff")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return staff, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a staff member by ID.
func (s *StaffService) Get(ctx context.Context, id string) (*models.Staff, error) {
	staff, err := s.staff.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Storage(err, "failed to load staff")
	}
	return staff, nil
}

// Me returns the caller's own staff record.
func (s *StaffService) Me(ctx context.Context, actor models.Actor) (*models.Staff, error) {
	if actor.StaffID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no staff record for this account")
	}
	return s.Get(ctx, actor.StaffID)
}

// Create adds a staff member and their STAFF login account in one transaction.
func (s *StaffService) Create(ctx context.Context, actor models.Actor, req models.CreateStaffRequest, meta models.RequestMeta) (*models.Staff, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can create staff")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create staff payload")
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     req.Name,
		Role:         models.RoleStaff,
		Active:       true,
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

	if err = s.users.Create(ctx, tx, user); err != nil {
		err = createStaffError(err)
		return nil, err
	}
	staff := &models.Staff{
		UserID:          user.ID,
		Name:            req.Name,
		Email:           email,
		Department:      req.Department,
		Phone:           req.Phone,
		Qualification:   req.Qualification,
		HireDate:        req.HireDate,
		MessengerUserID: req.MessengerUserID,
		Active:          true,
	}
	if err = s.staff.Create(ctx, tx, staff); err != nil {
		err = createStaffError(err)
		return nil, err
	}
	details := map[string]interface{}{"staff_id": staff.ID, "email": email}
	if err = s.activity.Create(ctx, tx, activityEntry(actor, models.ActivityStaffCreated, details, meta)); err != nil {
		err = appErrors.Storage(err, "failed to record activity")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit staff creation")
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("staff created", zap.String("staff_id", staff.ID))
	return staff, nil
}

// Update changes a staff member's details. Deactivation also disables the login account.
func (s *StaffService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateStaffRequest) (*models.Staff, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can update staff")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update staff payload")
	}
	return s.mutate(ctx, id, func(staff *models.Staff) {
		staff.Name = req.Name
		staff.Department = req.Department
		staff.Phone = req.Phone
		staff.Qualification = req.Qualification
		staff.HireDate = req.HireDate
		staff.MessengerUserID = req.MessengerUserID
		if req.Active != nil {
			staff.Active = *req.Active
		}
	})
}

// Deactivate marks a staff member and their account inactive.
func (s *StaffService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can deactivate staff")
	}
	_, err := s.mutate(ctx, id, func(staff *models.Staff) { staff.Active = false })
	return err
}

func (s *StaffService) mutate(ctx context.Context, id string, apply func(*models.Staff)) (*models.Staff, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	staff, err := s.staff.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "staff not found")
			return nil, err
		}
		err = appErrors.Storage(err, "failed to load staff")
		return nil, err
	}
	wasActive := staff.Active
	apply(staff)

	if err = s.staff.Update(ctx, tx, staff); err != nil {
		err = appErrors.Storage(err, "failed to update staff")
		return nil, err
	}
	if staff.Active != wasActive {
		if err = s.users.SetActive(ctx, tx, staff.UserID, staff.Active); err != nil {
			err = appErrors.Storage(err, "failed to update account status")
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit staff update")
		return nil, err
	}

	s.invalidate(ctx)
	return staff, nil
}

func (s *StaffService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, statsCacheKey)
	s.cache.Invalidate(ctx, replacementsCachePrefix+":*")
}

func createStaffError(err error) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "Email already exists")
	}
	return appErrors.Storage(err, "failed to create staff")
}
