package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
)

type assignmentWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ScheduleAssignment) error
}

type availabilityChecker interface {
	IsAvailable(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date, session *models.LeaveSession) (bool, error)
}

// AssignmentMaterializer writes the schedule assignments handing a leave's classes to a replacement.
type AssignmentMaterializer struct {
	assignments  assignmentWriter
	availability availabilityChecker
}

// NewAssignmentMaterializer constructs the materializer.
func NewAssignmentMaterializer(assignments assignmentWriter, availability availabilityChecker) *AssignmentMaterializer {
	return &AssignmentMaterializer{assignments: assignments, availability: availability}
}

// Materialize creates one pending assignment per affected slot occurrence. Dates on which the
// replacement is unavailable are skipped and returned as uncovered; dates without a class are
// neither. A nil replacement produces nothing.
func (m *AssignmentMaterializer) Materialize(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest, slots []models.TimetableSlot, replacementID *string) ([]models.ScheduleAssignment, []models.Date, error) {
	created := []models.ScheduleAssignment{}
	uncovered := []models.Date{}
	if replacementID == nil || *replacementID == "" || len(slots) == 0 {
		return created, uncovered, nil
	}

	var session *models.LeaveSession
	dates := leave.StartDate.DaysThrough(leave.CoverageEnd())
	if leave.LeaveType == models.LeaveTypeHalfDay {
		session = leave.Session
	}

	leaveID := leave.ID
	for _, date := range dates {
		var due []models.TimetableSlot
		for _, slot := range slots {
			if slot.OccursOn(date) {
				due = append(due, slot)
			}
		}
		if len(due) == 0 {
			continue
		}

		ok, err := m.availability.IsAvailable(ctx, exec, *replacementID, date, session)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			uncovered = append(uncovered, date)
			continue
		}

		for _, slot := range due {
			replacement := *replacementID
			assignment := models.ScheduleAssignment{
				TimetableID:        slot.ID,
				OriginalStaffID:    leave.StaffID,
				ReplacementStaffID: &replacement,
				LeaveRequestID:     &leaveID,
				ScheduledDate:      date,
				Session:            session,
				Status:             models.AssignmentStatusPending,
			}
			if err := m.assignments.Create(ctx, exec, &assignment); err != nil {
				return nil, nil, err
			}
			created = append(created, assignment)
		}
	}
	return created, uncovered, nil
}
