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

const attendanceColumns = `id, staff_id, date, status, check_in_time, leave_session, is_locked, override_reason, overridden_by, created_at, updated_at`

// AttendanceRepository persists daily staff attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert writes the row keyed by (staff_id, date), replacing status and lock state of an existing row.
func (r *AttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `
INSERT INTO attendance (id, staff_id, date, status, check_in_time, leave_session, is_locked, created_at, updated_at)
VALUES (:id, :staff_id, :date, :status, :check_in_time, :leave_session, :is_locked, :created_at, :updated_at)
ON CONFLICT (staff_id, date) DO UPDATE SET
	status = EXCLUDED.status,
	check_in_time = COALESCE(EXCLUDED.check_in_time, attendance.check_in_time),
	leave_session = EXCLUDED.leave_session,
	is_locked = EXCLUDED.is_locked,
	updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns
	bound, args, err := sqlx.Named(query, record)
	if err != nil {
		return fmt.Errorf("bind attendance upsert: %w", err)
	}
	target := r.exec(exec)
	bound = target.Rebind(bound)
	if err := sqlx.GetContext(ctx, target, record, bound, args...); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// FindByStaffDate loads the staff member's row for date.
func (r *AttendanceRepository) FindByStaffDate(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE staff_id = $1 AND date = $2`
	var record models.AttendanceRecord
	if err := sqlx.GetContext(ctx, r.exec(exec), &record, query, staffID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// Override applies an admin correction and unlocks the row.
func (r *AttendanceRepository) Override(ctx context.Context, id string, status models.AttendanceStatus, reason, overriddenBy string) (*models.AttendanceRecord, error) {
	query := `
UPDATE attendance
SET status = $2, override_reason = $3, overridden_by = $4, is_locked = FALSE, updated_at = $5
WHERE id = $1
RETURNING ` + attendanceColumns
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id, status, reason, overriddenBy, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("override attendance: %w", err)
	}
	return &record, nil
}

// List returns attendance rows newest first, joined with the staff name.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT a.id, a.staff_id, s.name AS staff_name, a.date, a.status, a.check_in_time, a.leave_session, a.is_locked,
	a.override_reason, a.overridden_by, a.created_at, a.updated_at
FROM attendance a
JOIN staff s ON s.id = a.staff_id
WHERE 1=1`)
	var args []interface{}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		fmt.Fprintf(&query, " AND a.staff_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&query, " AND a.date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&query, " AND a.date <= $%d", len(args))
	}
	query.WriteString(" ORDER BY a.date DESC, s.name ASC")

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}
