package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "college-staff:stats", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "college-staff:stats", map[string]int{"active_staff": 3}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "college-staff:*"))
	assert.NoError(t, repo.Close())
}
