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

const assignmentColumns = `id, timetable_id, original_staff_id, replacement_staff_id, leave_request_id, scheduled_date, session, status, created_at, updated_at`

// AssignmentRepository persists schedule assignments created for staff on leave.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ScheduleAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusPending
	}
	const query = `
INSERT INTO schedule_assignments (id, timetable_id, original_staff_id, replacement_staff_id, leave_request_id, scheduled_date, session, status, created_at, updated_at)
VALUES (:id, :timetable_id, :original_staff_id, :replacement_staff_id, :leave_request_id, :scheduled_date, :session, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment); err != nil {
		return fmt.Errorf("create schedule assignment: %w", err)
	}
	return nil
}

// ExistsForReplacement reports whether the staff member already covers a class on date.
// A non-nil session narrows the check to that session and to whole-day rows.
func (r *AssignmentRepository) ExistsForReplacement(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date, session *models.LeaveSession) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM schedule_assignments
	WHERE replacement_staff_id = $1 AND scheduled_date = $2 AND ($3::text IS NULL OR session IS NULL OR session = $3)
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, staffID, date, sessionArg(session)); err != nil {
		return false, fmt.Errorf("check replacement assignment: %w", err)
	}
	return exists, nil
}

// FindByID loads an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM schedule_assignments WHERE id = $1`
	var assignment models.ScheduleAssignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule assignment: %w", err)
	}
	return &assignment, nil
}

// Override replaces the covering staff member and marks the assignment overridden.
func (r *AssignmentRepository) Override(ctx context.Context, exec sqlx.ExtContext, id, replacementStaffID string) error {
	const query = `UPDATE schedule_assignments SET replacement_staff_id = $2, status = 'overridden', updated_at = $3 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, replacementStaffID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("override schedule assignment: %w", err)
	}
	return requireAffected(result, "override schedule assignment")
}

// ListClasses returns assignments in the date range joined with timetable and staff names.
func (r *AssignmentRepository) ListClasses(ctx context.Context, filter models.AssignmentFilter) ([]models.ScheduledClass, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT sa.id, sa.timetable_id, sa.original_staff_id, sa.replacement_staff_id, sa.leave_request_id, sa.scheduled_date,
	sa.session, sa.status, sa.created_at, sa.updated_at,
	t.course_name, t.course_code, t.classroom, t.start_time, t.end_time,
	os.name AS original_staff_name, rs.name AS replacement_staff_name
FROM schedule_assignments sa
JOIN timetables t ON t.id = sa.timetable_id
JOIN staff os ON os.id = sa.original_staff_id
LEFT JOIN staff rs ON rs.id = sa.replacement_staff_id
WHERE sa.scheduled_date BETWEEN $1 AND $2`)
	args := []interface{}{filter.From, filter.To}
	if filter.ReplacementStaffID != "" {
		args = append(args, filter.ReplacementStaffID)
		fmt.Fprintf(&query, " AND sa.replacement_staff_id = $%d", len(args))
	}
	query.WriteString(" ORDER BY sa.scheduled_date DESC, t.start_time ASC")

	var classes []models.ScheduledClass
	if err := r.db.SelectContext(ctx, &classes, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list scheduled classes: %w", err)
	}
	return classes, nil
}
