package models

import "time"

// AttendanceStatus enumerates attendance states for a staff day.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLeave   AttendanceStatus = "leave"
	AttendanceStatusHalfDay AttendanceStatus = "half-day"
)

// Valid reports whether the status is known.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLeave, AttendanceStatusHalfDay:
		return true
	}
	return false
}

// AttendanceStatusForLeave returns the status written for days covered by leave.
func AttendanceStatusForLeave(t LeaveType) AttendanceStatus {
	if t == LeaveTypeHalfDay {
		return AttendanceStatusHalfDay
	}
	return AttendanceStatusLeave
}

// AttendanceRecord is one staff member's attendance for one day.
type AttendanceRecord struct {
	ID             string           `db:"id" json:"id"`
	StaffID        string           `db:"staff_id" json:"staff_id"`
	StaffName      *string          `db:"staff_name" json:"staff_name,omitempty"`
	Date           Date             `db:"date" json:"date"`
	Status         AttendanceStatus `db:"status" json:"status"`
	CheckInTime    *TimeOfDay       `db:"check_in_time" json:"check_in_time,omitempty"`
	LeaveSession   *LeaveSession    `db:"leave_session" json:"leave_session,omitempty"`
	IsLocked       bool             `db:"is_locked" json:"is_locked"`
	OverrideReason *string          `db:"override_reason" json:"override_reason,omitempty"`
	OverriddenBy   *string          `db:"overridden_by" json:"overridden_by,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter selects attendance rows.
type AttendanceFilter struct {
	StaffID string
	From    Date
	To      Date
}

// MarkAttendanceRequest is the self-service attendance payload.
type MarkAttendanceRequest struct {
	StaffID string           `json:"staff_id" validate:"omitempty,uuid4"`
	Date    Date             `json:"date"`
	Status  AttendanceStatus `json:"status" validate:"required,oneof=present absent leave half-day"`
}

// OverrideAttendanceRequest is the admin correction payload.
type OverrideAttendanceRequest struct {
	Status AttendanceStatus `json:"status" validate:"required,oneof=present absent leave half-day"`
	Reason string           `json:"reason" validate:"required,max=1000"`
}
