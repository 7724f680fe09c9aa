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

const timetableColumns = `t.id, t.staff_id, t.course_name, t.course_code, t.day_of_week, t.start_time, t.end_time, t.classroom, t.batch, t.semester, t.active, t.created_at, t.updated_at`

// TimetableRepository persists weekly timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns active slots joined with the staff name.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + timetableColumns + `, s.name AS staff_name
FROM timetables t
JOIN staff s ON s.id = t.staff_id
WHERE t.active`)
	var args []interface{}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		fmt.Fprintf(&query, " AND t.staff_id = $%d", len(args))
	}
	if filter.DayOfWeek != "" {
		args = append(args, filter.DayOfWeek)
		fmt.Fprintf(&query, " AND t.day_of_week = $%d", len(args))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		fmt.Fprintf(&query, " AND t.semester = $%d", len(args))
	}
	query.WriteString(" ORDER BY t.day_of_week, t.start_time")

	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return slots, nil
}

// ListActiveByStaff returns every active slot taught by the staff member.
func (r *TimetableRepository) ListActiveByStaff(ctx context.Context, exec sqlx.ExtContext, staffID string) ([]models.TimetableSlot, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables t WHERE t.staff_id = $1 AND t.active ORDER BY t.start_time`
	var slots []models.TimetableSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, staffID); err != nil {
		return nil, fmt.Errorf("list staff timetable: %w", err)
	}
	return slots, nil
}

// FindByID loads a timetable slot.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables t WHERE t.id = $1`
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable: %w", err)
	}
	return &slot, nil
}

// Create inserts a timetable slot.
func (r *TimetableRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	slot.Active = true
	const query = `
INSERT INTO timetables (id, staff_id, course_name, course_code, day_of_week, start_time, end_time, classroom, batch, semester, active, created_at, updated_at)
VALUES (:id, :staff_id, :course_name, :course_code, :day_of_week, :start_time, :end_time, :classroom, :batch, :semester, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a slot.
func (r *TimetableRepository) Update(ctx context.Context, slot *models.TimetableSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE timetables SET staff_id = :staff_id, course_name = :course_name, course_code = :course_code, day_of_week = :day_of_week,
	start_time = :start_time, end_time = :end_time, classroom = :classroom, batch = :batch, semester = :semester, updated_at = :updated_at
WHERE id = :id AND active`
	result, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	return requireAffected(result, "update timetable")
}

// Deactivate soft deletes a slot.
func (r *TimetableRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE timetables SET active = FALSE, updated_at = $2 WHERE id = $1 AND active`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate timetable: %w", err)
	}
	return requireAffected(result, "deactivate timetable")
}
