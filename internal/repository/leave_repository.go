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

const leaveColumns = `id, staff_id, leave_type, session, start_date, end_date, reason, emergency_contact, status, approved_by, admin_comments, created_at, updated_at`

// LeaveRepository persists leave requests and their approval state.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a pending leave request.
func (r *LeaveRepository) Create(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt = now
	leave.UpdatedAt = now
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}
	const query = `
INSERT INTO leave_requests (id, staff_id, leave_type, session, start_date, end_date, reason, emergency_contact, status, created_at, updated_at)
VALUES (:id, :staff_id, :leave_type, :session, :start_date, :end_date, :reason, :emergency_contact, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID loads a leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	var leave models.LeaveRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &leave, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &leave, nil
}

// List returns leave requests newest first, joined with the staff name.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT lr.id, lr.staff_id, s.name AS staff_name, lr.leave_type, lr.session, lr.start_date, lr.end_date, lr.reason,
	lr.emergency_contact, lr.status, lr.approved_by, lr.admin_comments, lr.created_at, lr.updated_at
FROM leave_requests lr
JOIN staff s ON s.id = lr.staff_id
WHERE 1=1`)
	var args []interface{}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		fmt.Fprintf(&query, " AND lr.staff_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&query, " AND lr.status = $%d", len(args))
	}
	query.WriteString(" ORDER BY lr.created_at DESC")

	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return leaves, nil
}

// TransitionFromPending moves a pending request to status and returns the updated row.
// It returns sql.ErrNoRows when the request does not exist or is no longer pending.
func (r *LeaveRepository) TransitionFromPending(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, decidedBy string, comments *string) (*models.LeaveRequest, error) {
	query := `
UPDATE leave_requests
SET status = $2, approved_by = $3, admin_comments = $4, updated_at = $5
WHERE id = $1 AND status = 'pending'
RETURNING ` + leaveColumns
	var leave models.LeaveRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &leave, query, id, status, decidedBy, comments, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("transition leave request: %w", err)
	}
	return &leave, nil
}

// FindApprovedCovering returns the approved leave of the staff member covering date.
func (r *LeaveRepository) FindApprovedCovering(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests
WHERE staff_id = $1 AND status = 'approved' AND $2 BETWEEN start_date AND end_date
ORDER BY updated_at DESC LIMIT 1`
	var leave models.LeaveRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &leave, query, staffID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find covering leave: %w", err)
	}
	return &leave, nil
}

// HasApprovedCovering reports whether an approved leave of the staff member covers date.
func (r *LeaveRepository) HasApprovedCovering(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM leave_requests
	WHERE staff_id = $1 AND status = 'approved' AND $2 BETWEEN start_date AND end_date
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, staffID, date); err != nil {
		return false, fmt.Errorf("check covering leave: %w", err)
	}
	return exists, nil
}

// CountPending counts requests awaiting a decision.
func (r *LeaveRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'`); err != nil {
		return 0, fmt.Errorf("count pending leave requests: %w", err)
	}
	return count, nil
}
