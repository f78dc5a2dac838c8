package safety

import (
	"sync"
	"time"
)

// RateLimiter implements a sliding-window attempt log per (caller, operation)
// pair. The retry-after it reports is the time until the oldest in-window
// attempt leaves the window.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records an attempt for the key and reports whether it is within the
// limit. When the attempt is rejected retryAfter is positive and never
// exceeds the window length; the attempt itself is not recorded.
func (r *RateLimiter) Allow(callerKey, operation string) (bool, time.Duration) {
	key := callerKey + "\x00" + operation
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[key][:0]
	for _, t := range r.attempts[key] {
		if now.Sub(t) < r.window {
			kept = append(kept, t)
		}
	}

	if len(kept) >= r.limit {
		r.attempts[key] = kept
		retryAfter := r.window - now.Sub(kept[0])
		return false, retryAfter
	}

	r.attempts[key] = append(kept, now)
	return true, 0
}
