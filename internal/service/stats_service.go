package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type activeStaffCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type loggedInCounter interface {
	CountLoggedInStaff(ctx context.Context) (int, error)
}

type pendingLeaveCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// StatsService builds the admin dashboard counters.
type StatsService struct {
	staff   activeStaffCounter
	users   loggedInCounter
	leaves  pendingLeaveCounter
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs the stats service.
func NewStatsService(staff activeStaffCounter, users loggedInCounter, leaves pendingLeaveCounter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{staff: staff, users: users, leaves: leaves, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Dashboard returns the staffing counters, served from cache when possible.
// The boolean reports a cache hit.
func (s *StatsService) Dashboard(ctx context.Context, actor models.Actor) (*models.Stats, bool, error) {
	if !actor.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view statistics")
	}
	var stats models.Stats
	hit, err := s.cache.Remember(ctx, statsCacheKey, &stats, func() error {
		active, err := s.staff.CountActive(ctx)
		if err != nil {
			return appErrors.Storage(err, "failed to count staff")
		}
		loggedIn, err := s.users.CountLoggedInStaff(ctx)
		if err != nil {
			return appErrors.Storage(err, "failed to count sessions")
		}
		pending, err := s.leaves.CountPending(ctx)
		if err != nil {
			return appErrors.Storage(err, "failed to count leave requests")
		}
		stats = models.Stats{ActiveStaff: active, LoggedInStaff: loggedIn, PendingLeaves: pending, GeneratedAt: s.now().UTC()}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stats, hit, nil
}

// Metrics returns the JSON metrics snapshot.
func (s *StatsService) Metrics(actor models.Actor) (models.MetricsSnapshot, error) {
	if !actor.IsAdmin() {
		return models.MetricsSnapshot{}, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view metrics")
	}
	return s.metrics.Snapshot(), nil
}
