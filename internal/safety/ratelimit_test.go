package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(3, 10*time.Minute)

	for i := 0; i < 3; i++ {
		allowed, retryAfter := limiter.Allow("caller-1", "create_job")
		require.True(t, allowed)
		require.Zero(t, retryAfter)
	}

	allowed, retryAfter := limiter.Allow("caller-1", "create_job")
	require.False(t, allowed)
	require.Greater(t, retryAfter, time.Duration(0))
	require.LessOrEqual(t, retryAfter, 10*time.Minute)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	current := time.Now()
	limiter := NewRateLimiter(3, 10*time.Minute)
	limiter.now = func() time.Time { return current }

	require.Truef(t, first(limiter.Allow("caller-1", "create_job")), "attempt 1")
	current = current.Add(2 * time.Minute)
	require.Truef(t, first(limiter.Allow("caller-1", "create_job")), "attempt 2")
	current = current.Add(2 * time.Minute)
	require.Truef(t, first(limiter.Allow("caller-1", "create_job")), "attempt 3")

	// window still holds three attempts
	current = current.Add(2 * time.Minute)
	allowed, retryAfter := limiter.Allow("caller-1", "create_job")
	require.False(t, allowed)
	// oldest attempt is 6 minutes old, it leaves the window in 4 minutes
	require.Equal(t, 4*time.Minute, retryAfter)

	// the rejected attempt was not recorded, so once the oldest attempt
	// expires a new one is admitted
	current = current.Add(4 * time.Minute)
	allowed, _ = limiter.Allow("caller-1", "create_job")
	require.True(t, allowed)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Minute)

	require.True(t, first(limiter.Allow("caller-1", "create_job")))
	require.False(t, first(limiter.Allow("caller-1", "create_job")))

	// different caller, same operation
	require.True(t, first(limiter.Allow("caller-2", "create_job")))
	// same caller, different operation
	require.True(t, first(limiter.Allow("caller-1", "cancel_job")))
}

func first(allowed bool, _ time.Duration) bool {
	return allowed
}
