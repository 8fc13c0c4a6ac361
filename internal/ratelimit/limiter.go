package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter enforces a fixed-window request quota per identity token. Windows
// reset lazily at access time; a token with no traffic consumes nothing
// beyond its idle window entry, which PurgeIdle reclaims.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	windows sync.Map // token -> *window
}

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// NewLimiter creates a Limiter admitting limit requests per period.
func NewLimiter(limit int, period time.Duration) *Limiter {
	return &Limiter{limit: limit, period: period, now: time.Now}
}

// NewLimiterWithClock is NewLimiter with an injectable clock for tests.
func NewLimiterWithClock(limit int, period time.Duration, now func() time.Time) *Limiter {
	return &Limiter{limit: limit, period: period, now: now}
}

// Limit returns the configured per-window quota.
func (l *Limiter) Limit() int { return l.limit }

// Period returns the configured window length.
func (l *Limiter) Period() time.Duration { return l.period }

// Admit performs an atomic check-and-increment on the token's window.
// The request that brings the count up to the limit is admitted; the next
// one in the same window is denied. Only the window's own lock is taken,
// so distinct tokens never contend.
func (l *Limiter) Admit(token string) Decision {
	v, _ := l.windows.LoadOrStore(token, &window{})
	w := v.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if w.start.IsZero() || !now.Before(w.start.Add(l.period)) {
		w.start = now
		w.count = 0
	}
	resetAt := w.start.Add(l.period)

	if w.count < l.limit {
		w.count++
		return Decision{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - w.count,
			ResetAt:   resetAt,
		}
	}

	retry := resetAt.Sub(now)
	if retry < 0 {
		retry = 0
	}
	return Decision{
		Limit:      l.limit,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}

// Janitor purges idle windows every interval until ctx is cancelled.
// Admission never depends on it; it exists only to reclaim memory for
// tokens that stopped sending traffic.
func (l *Limiter) Janitor(ctx context.Context, interval, idleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.PurgeIdle(idleAfter)
		}
	}
}

// PurgeIdle drops windows whose last reset is older than olderThan.
// Losing a live entry to a race is harmless: the token simply starts a
// fresh window on its next request.
func (l *Limiter) PurgeIdle(olderThan time.Duration) int {
	cutoff := l.now().Add(-olderThan)
	purged := 0
	l.windows.Range(func(key, value any) bool {
		w := value.(*window)
		w.mu.Lock()
		idle := !w.start.IsZero() && w.start.Before(cutoff)
		w.mu.Unlock()
		if idle {
			l.windows.Delete(key)
			purged++
		}
		return true
	})
	return purged
}
