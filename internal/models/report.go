package models

import "time"

// AttendanceReportRequest asks for a rendered attendance report.
type AttendanceReportRequest struct {
	From    Date   `json:"from"`
	To      Date   `json:"to"`
	Format  string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	StaffID string `json:"staff_id" validate:"omitempty,uuid4"`
}

// ReportResult points at a rendered report.
type ReportResult struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	Rows        int       `json:"rows"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
