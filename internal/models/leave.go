package models

import (
	"strings"
	"time"
)

// SessionBoundaryHour splits the day: slots starting before it belong to the morning session.
const SessionBoundaryHour = 12

// LeaveType distinguishes whole-day from half-day leave.
type LeaveType string

const (
	LeaveTypeFullDay LeaveType = "full_day"
	LeaveTypeHalfDay LeaveType = "half_day"
)

// Valid reports whether the leave type is known.
func (t LeaveType) Valid() bool {
	return t == LeaveTypeFullDay || t == LeaveTypeHalfDay
}

// LeaveSession identifies the half of the day covered by half-day leave.
type LeaveSession string

const (
	SessionMorning   LeaveSession = "morning"
	SessionAfternoon LeaveSession = "afternoon"
)

// NormalizeSession maps accepted spellings, including the FN/AN forms, to a session.
func NormalizeSession(raw string) (LeaveSession, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "morning", "fn", "forenoon":
		return SessionMorning, true
	case "afternoon", "an":
		return SessionAfternoon, true
	}
	return "", false
}

// Valid reports whether the session is a stored value.
func (s LeaveSession) Valid() bool {
	return s == SessionMorning || s == SessionAfternoon
}

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// Valid reports whether the status is known.
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected:
		return true
	}
	return false
}

// LeaveRequest is a staff member's application for absence.
type LeaveRequest struct {
	ID               string        `db:"id" json:"id"`
	StaffID          string        `db:"staff_id" json:"staff_id"`
	StaffName        *string       `db:"staff_name" json:"staff_name,omitempty"`
	LeaveType        LeaveType     `db:"leave_type" json:"leave_type"`
	Session          *LeaveSession `db:"session" json:"session,omitempty"`
	StartDate        Date          `db:"start_date" json:"start_date"`
	EndDate          Date          `db:"end_date" json:"end_date"`
	Reason           *string       `db:"reason" json:"reason,omitempty"`
	EmergencyContact *string       `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Status           LeaveStatus   `db:"status" json:"status"`
	ApprovedBy       *string       `db:"approved_by" json:"approved_by,omitempty"`
	AdminComments    *string       `db:"admin_comments" json:"admin_comments,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Covers reports whether d falls inside the leave's date range.
func (l LeaveRequest) Covers(d Date) bool {
	return d.Within(l.StartDate, l.EndDate)
}

// CoverageEnd is the last date a replacement is needed for. Half-day leave is covered on its
// start date only.
func (l LeaveRequest) CoverageEnd() Date {
	if l.LeaveType == LeaveTypeHalfDay || l.EndDate.IsZero() {
		return l.StartDate
	}
	return l.EndDate
}

// LeaveFilter captures supported leave list filters.
type LeaveFilter struct {
	StaffID string
	Status  LeaveStatus
}

// RequestLeaveRequest is the payload for applying for leave.
type RequestLeaveRequest struct {
	StaffID          string    `json:"staff_id" validate:"omitempty,uuid4"`
	LeaveType        LeaveType `json:"leave_type" validate:"required,oneof=full_day half_day"`
	Session          string    `json:"session" validate:"omitempty,leavesession"`
	StartDate        Date      `json:"start_date"`
	EndDate          Date      `json:"end_date"`
	Reason           *string   `json:"reason" validate:"omitempty,max=1000"`
	EmergencyContact *string   `json:"emergency_contact" validate:"omitempty,max=255"`
}

// ApproveLeaveRequest is the admin payload for approving leave.
type ApproveLeaveRequest struct {
	ReplacementStaffID *string `json:"replacement_staff_id" validate:"omitempty,uuid4"`
	Comments           *string `json:"comments" validate:"omitempty,max=1000"`
}

// RejectLeaveRequest is the admin payload for rejecting leave.
type RejectLeaveRequest struct {
	Comments *string `json:"comments" validate:"omitempty,max=1000"`
}

// ApproveLeaveResult reports what an approval produced.
type ApproveLeaveResult struct {
	LeaveRequest   *LeaveRequest        `json:"leave_request"`
	Assignments    []ScheduleAssignment `json:"assignments"`
	UncoveredDates []Date               `json:"uncovered_dates"`
}
