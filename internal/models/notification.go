package models

import "time"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationLeaveApproved       NotificationType = "leave_approved"
	NotificationLeaveRejected       NotificationType = "leave_rejected"
	NotificationReplacementAssigned NotificationType = "replacement_assigned"
)

// Notification is an in-app message addressed to a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
