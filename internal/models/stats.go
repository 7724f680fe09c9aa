package models

import "time"

// Stats summarises the current staffing picture.
type Stats struct {
	ActiveStaff   int       `json:"active_staff"`
	LoggedInStaff int       `json:"logged_in_staff"`
	PendingLeaves int       `json:"pending_leaves"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// MetricsSnapshot is a JSON view of process metrics.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	LeavesApproved           uint64    `json:"leaves_approved"`
	LeavesRejected           uint64    `json:"leaves_rejected"`
	UncoveredDates           uint64    `json:"uncovered_dates"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
