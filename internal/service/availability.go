package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
)

type leaveCoverageReader interface {
	HasApprovedCovering(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date) (bool, error)
}

type replacementReader interface {
	ExistsForReplacement(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date, session *models.LeaveSession) (bool, error)
}

// AvailabilityChecker decides whether a staff member can cover classes on a date.
type AvailabilityChecker struct {
	leaves      leaveCoverageReader
	assignments replacementReader
}

// NewAvailabilityChecker constructs the checker.
func NewAvailabilityChecker(leaves leaveCoverageReader, assignments replacementReader) *AvailabilityChecker {
	return &AvailabilityChecker{leaves: leaves, assignments: assignments}
}

// IsAvailable is false when approved leave covers date or when the staff member already covers a
// class that date (in the same session when one is given). Reads run on exec so rows written
// earlier in the same transaction are visible.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, exec sqlx.ExtContext, staffID string, date models.Date, session *models.LeaveSession) (bool, error) {
	onLeave, err := c.leaves.HasApprovedCovering(ctx, exec, staffID, date)
	if err != nil {
		return false, err
	}
	if onLeave {
		return false, nil
	}
	busy, err := c.assignments.ExistsForReplacement(ctx, exec, staffID, date, session)
	if err != nil {
		return false, err
	}
	return !busy, nil
}
