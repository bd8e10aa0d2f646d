package service

import (
	"log/slog"
	"sync"
	"time"
)

// Session pairs a visitor ID with whatever supervision wrapper the registry
// owner builds around a controller. The registry only needs to tear it down.
type Session interface {
	Close()
}

// SessionFactory builds a session for a visitor on first touch.
type SessionFactory func(visitorID string) Session

// SessionMetrics is the slice of metrics the registry reports into. A nil
// value disables reporting.
type SessionMetrics interface {
	Inc()
	Dec()
}

type sessionEntry struct {
	session  Session
	lastSeen time.Time
}

// Registry holds one live session per visitor and evicts sessions idle past
// the TTL. Eviction closes the session, cancelling any pending retry timers,
// so failed sessions cannot leak timers after the visitor leaves.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry

	factory SessionFactory
	ttl     time.Duration
	logger  *slog.Logger
	gauge   SessionMetrics
	clock   func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewRegistry builds a registry and starts its eviction janitor. Call Close
// to stop the janitor and tear down every live session.
func NewRegistry(factory SessionFactory, ttl time.Duration, logger *slog.Logger, gauge SessionMetrics) *Registry {
	r := &Registry{
		entries: make(map[string]*sessionEntry),
		factory: factory,
		ttl:     ttl,
		logger:  logger,
		gauge:   gauge,
		clock:   time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Acquire returns the visitor's live session, creating one on first touch,
// and refreshes its idle deadline.
func (r *Registry) Acquire(visitorID string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[visitorID]; ok {
		entry.lastSeen = r.clock()
		return entry.session
	}

	session := r.factory(visitorID)
	r.entries[visitorID] = &sessionEntry{session: session, lastSeen: r.clock()}
	if r.gauge != nil {
		r.gauge.Inc()
	}
	return session
}

// Evict removes and closes one visitor's session immediately. Used when a
// terminal notice should not survive into a fresh page load.
func (r *Registry) Evict(visitorID string) {
	r.mu.Lock()
	entry, ok := r.entries[visitorID]
	if ok {
		delete(r.entries, visitorID)
	}
	r.mu.Unlock()

	if ok {
		entry.session.Close()
		if r.gauge != nil {
			r.gauge.Dec()
		}
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the janitor and closes every live session.
func (r *Registry) Close() {
	close(r.stop)
	<-r.done

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.session.Close()
		if r.gauge != nil {
			r.gauge.Dec()
		}
	}
}

func (r *Registry) janitor() {
	defer close(r.done)

	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := r.clock().Add(-r.ttl)

	r.mu.Lock()
	var expired []*sessionEntry
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		entry.session.Close()
		if r.gauge != nil {
			r.gauge.Dec()
		}
	}
	if len(expired) > 0 {
		r.logger.Debug("evicted idle consent sessions", "count", len(expired))
	}
}
