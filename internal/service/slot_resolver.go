package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type timetableReader interface {
	ListActiveByStaff(ctx context.Context, exec sqlx.ExtContext, staffID string) ([]models.TimetableSlot, error)
}

// SlotResolver finds the timetable slots a leave takes the staff member away from.
type SlotResolver struct {
	timetables timetableReader
}

// NewSlotResolver constructs the resolver.
func NewSlotResolver(timetables timetableReader) *SlotResolver {
	return &SlotResolver{timetables: timetables}
}

// AffectedSlots returns every active slot of the staff member, restricted to the session for
// half-day leave.
func (r *SlotResolver) AffectedSlots(ctx context.Context, exec sqlx.ExtContext, staffID string, leaveType models.LeaveType, session *models.LeaveSession) ([]models.TimetableSlot, error) {
	if leaveType == models.LeaveTypeHalfDay && (session == nil || !session.Valid()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "half-day leave requires a session")
	}
	slots, err := r.timetables.ListActiveByStaff(ctx, exec, staffID)
	if err != nil {
		return nil, err
	}
	if leaveType != models.LeaveTypeHalfDay {
		return slots, nil
	}
	filtered := make([]models.TimetableSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.InSession(*session) {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}
