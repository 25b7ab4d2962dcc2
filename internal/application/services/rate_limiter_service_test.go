package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/land-registry-gateway/internal/application/services"
	"github.com/avatarctic/land-registry-gateway/test/mocks"
)

func counterRepo(start time.Time) *mocks.RateLimitRepositoryMock {
	counts := map[string]int{}
	return &mocks.RateLimitRepositoryMock{
		IncrementWindowFn: func(_ context.Context, clientKey string, _ time.Duration, keyPrefix string, _ time.Duration) (int, time.Time, error) {
			counts[keyPrefix+clientKey]++
			return counts[keyPrefix+clientKey], start, nil
		},
	}
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := impl.NewRateLimiterService(counterRepo(start), &impl.RateLimiterConfig{DefaultRequestsPerMinute: 3}, quietLogger())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, remaining, limit, reset, err := svc.Allow(ctx, "analytics")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 3-i, remaining)
		assert.Equal(t, 3, limit)
		assert.Equal(t, start.Add(time.Minute), reset)
	}

	allowed, remaining, _, _, err := svc.Allow(ctx, "analytics")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	allowed, _, _, _, err = svc.Allow(ctx, "billing")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_ClientLimitAndBurst(t *testing.T) {
	svc := impl.NewRateLimiterService(counterRepo(time.Now()), &impl.RateLimiterConfig{
		DefaultRequestsPerMinute: 100,
		BurstMultiplier:          1.5,
		ClientLimits:             map[string]int{"batch": 2},
	}, quietLogger())
	ctx := context.Background()

	for range 3 {
		allowed, _, limit, _, err := svc.Allow(ctx, "batch")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2, limit)
	}
	allowed, _, _, _, err := svc.Allow(ctx, "batch")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	repo := &mocks.RateLimitRepositoryMock{
		IncrementWindowFn: func(context.Context, string, time.Duration, string, time.Duration) (int, time.Time, error) {
			return 0, time.Time{}, errors.New("redis unavailable")
		},
	}
	svc := impl.NewRateLimiterService(repo, nil, quietLogger())

	allowed, remaining, limit, _, err := svc.Allow(context.Background(), "analytics")
	require.Error(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 120, limit)
	assert.Equal(t, 120, remaining)
}
