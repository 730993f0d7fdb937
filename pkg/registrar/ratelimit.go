package registrar

import (
	"sync"
	"time"

	"reseller/pkg/serrors"
)

// RateLimiter enforces a per-key sliding-window call budget. Keys are
// operation names, so each registrar instance gets an independent budget per
// operation. Exceeding the budget fails fast with a rate-limited error
// carrying a retry-after duration; callers must not busy-loop on it.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string][]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per window per key.
// A limit <= 0 disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Reserve consumes one call from the key's budget. When the budget is
// exhausted it returns a rate-limited error with a positive retry-after,
// without recording the attempt.
func (l *RateLimiter) Reserve(key string) error {
	if l == nil || l.limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.buckets[key]
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	stamps = stamps[i:]

	if len(stamps) >= l.limit {
		retryAfter := stamps[0].Add(l.window).Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}
		l.buckets[key] = stamps

		return serrors.With(serrors.ErrRateLimited,
			"rate limit of %d calls per %s exceeded for %s", l.limit, l.window, key).
			WithRetryAfter(retryAfter)
	}

	l.buckets[key] = append(stamps, now)

	return nil
}

// Reset clears the budget for one key, or for all keys when key is empty.
func (l *RateLimiter) Reset(key string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if key == "" {
		l.buckets = make(map[string][]time.Time)

		return
	}
	delete(l.buckets, key)
}
