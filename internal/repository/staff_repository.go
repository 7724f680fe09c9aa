package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
)

const staffColumns = `id, user_id, name, email, department, phone, qualification, hire_date, messenger_user_id, active, created_at, updated_at`

// StaffRepository persists staff members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns staff ordered by name together with the total count.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error) {
	base := ` FROM staff WHERE 1=1`
	var args []interface{}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		base += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		base += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY name ASC LIMIT %d OFFSET %d", staffColumns, base, size, (page-1)*size)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}
	return staff, total, nil
}

// FindByID loads a staff member.
func (r *StaffRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	var staff models.Staff
	if err := sqlx.GetContext(ctx, r.exec(exec), &staff, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return &staff, nil
}

// FindByUserID loads the staff record attached to a login account.
func (r *StaffRepository) FindByUserID(ctx context.Context, userID string) (*models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE user_id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by user: %w", err)
	}
	return &staff, nil
}

// Create inserts a staff row.
func (r *StaffRepository) Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	const query = `
INSERT INTO staff (id, user_id, name, email, department, phone, qualification, hire_date, messenger_user_id, active, created_at, updated_at)
VALUES (:id, :user_id, :name, :email, :department, :phone, :qualification, :hire_date, :messenger_user_id, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update writes mutable staff fields.
func (r *StaffRepository) Update(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE staff SET name = :name, department = :department, phone = :phone, qualification = :qualification,
	hire_date = :hire_date, messenger_user_id = :messenger_user_id, active = :active, updated_at = :updated_at
WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, staff)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return requireAffected(result, "update staff")
}

// CountActive counts active staff.
func (r *StaffRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM staff WHERE active`); err != nil {
		return 0, fmt.Errorf("count active staff: %w", err)
	}
	return count, nil
}

// ListAvailableReplacements returns active staff other than the leave's requester that are, on every
// date needing cover, neither on approved leave nor already covering a class in the same session.
func (r *StaffRepository) ListAvailableReplacements(ctx context.Context, leave *models.LeaveRequest) ([]models.Staff, error) {
	const query = `
SELECT s.id, s.user_id, s.name, s.email, s.department, s.phone, s.qualification, s.hire_date, s.messenger_user_id, s.active, s.created_at, s.updated_at
FROM staff s
WHERE s.id <> $1
	AND s.active
	AND NOT EXISTS (
		SELECT 1 FROM leave_requests lr
		JOIN generate_series($2::date, $3::date, interval '1 day') AS d(day)
			ON d.day::date BETWEEN lr.start_date AND lr.end_date
		WHERE lr.staff_id = s.id
			AND lr.status = 'approved'
	)
	AND NOT EXISTS (
		SELECT 1 FROM schedule_assignments sa
		JOIN generate_series($2::date, $3::date, interval '1 day') AS d(day)
			ON sa.scheduled_date = d.day::date
		WHERE sa.replacement_staff_id = s.id
			AND ($4::text IS NULL OR sa.session IS NULL OR sa.session = $4)
	)
ORDER BY s.name ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, leave.StaffID, leave.StartDate, leave.CoverageEnd(), sessionArg(leave.Session)); err != nil {
		return nil, fmt.Errorf("list available replacements: %w", err)
	}
	return staff, nil
}

func sessionArg(session *models.LeaveSession) interface{} {
	if session == nil || *session == "" {
		return nil
	}
	return string(*session)
}
