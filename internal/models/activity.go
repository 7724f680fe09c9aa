package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ActivityAction names a recorded user action.
type ActivityAction string

const (
	ActivityLogin              ActivityAction = "login"
	ActivityLogout             ActivityAction = "logout"
	ActivityLeaveRequested     ActivityAction = "leave_requested"
	ActivityLeaveApproved      ActivityAction = "leave_approved"
	ActivityLeaveRejected      ActivityAction = "leave_rejected"
	ActivityAttendanceMarked   ActivityAction = "attendance_marked"
	ActivityAttendanceOverride ActivityAction = "attendance_override"
	ActivityAssignmentOverride ActivityAction = "assignment_override"
	ActivityStaffCreated       ActivityAction = "staff_created"
	ActivityAdminRequest       ActivityAction = "admin_request"
)

// ActivityLog records an action performed by a user.
type ActivityLog struct {
	ID        string         `db:"id" json:"id"`
	UserID    *string        `db:"user_id" json:"user_id,omitempty"`
	UserEmail *string        `db:"user_email" json:"user_email,omitempty"`
	Action    ActivityAction `db:"action" json:"action"`
	Details   types.JSONText `db:"details" json:"details,omitempty"`
	IPAddress *string        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent *string        `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// AccessLog records a login session.
type AccessLog struct {
	ID           string     `db:"id" json:"id"`
	UserID       *string    `db:"user_id" json:"user_id,omitempty"`
	UserEmail    *string    `db:"user_email" json:"user_email,omitempty"`
	LoginTime    time.Time  `db:"login_time" json:"login_time"`
	LogoutTime   *time.Time `db:"logout_time" json:"logout_time,omitempty"`
	IPAddress    *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    *string    `db:"user_agent" json:"user_agent,omitempty"`
	IsSuccessful bool       `db:"is_successful" json:"is_successful"`
}

// RequestMeta carries client details recorded alongside actions.
type RequestMeta struct {
	IP        string
	UserAgent string
}
