// Package ratelimit provides per-visitor request limiting for the consent
// mutation endpoints. Two backends exist: an in-memory sliding window for
// single-instance deployments and a redis fixed window shared across
// replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of a limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter checks whether a keyed request is within budget. Implementations
// must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// MemoryLimiter is a sliding-window limiter held in process memory. Not
// distributed; use RedisLimiter when running more than one replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	clock   func() time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per key per
// window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		clock:   time.Now,
	}
}

// Allow checks and records one request for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	cutoff := now.Add(-l.window)

	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return &Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   kept[0].Add(l.window),
		}, nil
	}

	kept = append(kept, now)
	l.windows[key] = kept
	return &Result{
		Allowed:   true,
		Remaining: l.limit - len(kept),
		ResetAt:   kept[0].Add(l.window),
	}, nil
}
