package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	assert.Equal(t, DefaultRateLimit.BurstSize, rl.limiter.Burst())
	assert.True(t, rl.Allow())
}

func TestRateLimiter_ThrottledBlocksUntilDeadline(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10})
	rl.Throttled(50 * time.Millisecond)
	assert.False(t, rl.Allow())

	start := time.Now()
	assert.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiter_ThrottledNeverShortens(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.Throttled(time.Hour)
	rl.Throttled(time.Millisecond)
	assert.False(t, rl.Allow())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.Throttled(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}
