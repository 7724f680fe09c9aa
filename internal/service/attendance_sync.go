package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
)

type attendanceUpserter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
}

// AttendanceSynchronizer keeps attendance rows in line with approved leave.
type AttendanceSynchronizer struct {
	attendance attendanceUpserter
}

// NewAttendanceSynchronizer constructs the synchronizer.
func NewAttendanceSynchronizer(attendance attendanceUpserter) *AttendanceSynchronizer {
	return &AttendanceSynchronizer{attendance: attendance}
}

// SyncLeave writes a locked leave or half-day row for every date of the leave, replacing
// whatever was recorded for those days.
func (s *AttendanceSynchronizer) SyncLeave(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error {
	status := models.AttendanceStatusForLeave(leave.LeaveType)
	for _, date := range leave.StartDate.DaysThrough(leave.EndDate) {
		record := &models.AttendanceRecord{
			StaffID:      leave.StaffID,
			Date:         date,
			Status:       status,
			LeaveSession: leave.Session,
			IsLocked:     true,
		}
		if err := s.attendance.Upsert(ctx, exec, record); err != nil {
			return err
		}
	}
	return nil
}
