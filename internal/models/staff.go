package models

import "time"

// Staff represents a teaching staff member.
type Staff struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Department      *string   `db:"department" json:"department,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Qualification   *string   `db:"qualification" json:"qualification,omitempty"`
	HireDate        *Date     `db:"hire_date" json:"hire_date,omitempty"`
	MessengerUserID *int64    `db:"messenger_user_id" json:"messenger_user_id,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter captures supported staff list filters.
type StaffFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
}

// CreateStaffRequest creates a staff member together with a login account.
type CreateStaffRequest struct {
	Name            string  `json:"name" validate:"required,max=255"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8"`
	Department      *string `json:"department" validate:"omitempty,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Qualification   *string `json:"qualification" validate:"omitempty,max=255"`
	HireDate        *Date   `json:"hire_date"`
	MessengerUserID *int64  `json:"messenger_user_id" validate:"omitempty,gt=0"`
}

// UpdateStaffRequest updates mutable staff fields.
type UpdateStaffRequest struct {
	Name            string  `json:"name" validate:"required,max=255"`
	Department      *string `json:"department" validate:"omitempty,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Qualification   *string `json:"qualification" validate:"omitempty,max=255"`
	HireDate        *Date   `json:"hire_date"`
	MessengerUserID *int64  `json:"messenger_user_id" validate:"omitempty,gt=0"`
	Active          *bool   `json:"active"`
}
