package models

import "time"

// AssignmentStatus is the lifecycle state of a schedule assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusOverridden AssignmentStatus = "overridden"
)

// ScheduleAssignment moves one class occurrence to a replacement.
type ScheduleAssignment struct {
	ID                 string           `db:"id" json:"id"`
	TimetableID        string           `db:"timetable_id" json:"timetable_id"`
	OriginalStaffID    string           `db:"original_staff_id" json:"original_staff_id"`
	ReplacementStaffID *string          `db:"replacement_staff_id" json:"replacement_staff_id,omitempty"`
	LeaveRequestID     *string          `db:"leave_request_id" json:"leave_request_id,omitempty"`
	ScheduledDate      Date             `db:"scheduled_date" json:"scheduled_date"`
	Session            *LeaveSession    `db:"session" json:"session,omitempty"`
	Status             AssignmentStatus `db:"status" json:"status"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduledClass is an assignment joined with its timetable and staff names.
type ScheduledClass struct {
	ScheduleAssignment
	CourseName           string    `db:"course_name" json:"course_name"`
	CourseCode           *string   `db:"course_code" json:"course_code,omitempty"`
	Classroom            *string   `db:"classroom" json:"classroom,omitempty"`
	StartTime            TimeOfDay `db:"start_time" json:"start_time"`
	EndTime              TimeOfDay `db:"end_time" json:"end_time"`
	OriginalStaffName    string    `db:"original_staff_name" json:"original_staff_name"`
	ReplacementStaffName *string   `db:"replacement_staff_name" json:"replacement_staff_name,omitempty"`
}

// AssignmentFilter selects assignments by date range and optional staff.
type AssignmentFilter struct {
	From               Date
	To                 Date
	ReplacementStaffID string
}

// OverrideAssignmentRequest swaps the replacement on an assignment.
type OverrideAssignmentRequest struct {
	ReplacementStaffID string `json:"replacement_staff_id" validate:"required,uuid4"`
}
