package service

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id     string
	closed atomic.Bool
}

func (f *fakeSession) Close() { f.closed.Store(true) }

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *sync.Map) {
	t.Helper()
	sessions := &sync.Map{}
	factory := func(visitorID string) Session {
		s := &fakeSession{id: visitorID}
		sessions.Store(visitorID, s)
		return s
	}
	r := NewRegistry(factory, ttl, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	t.Cleanup(r.Close)
	return r, sessions
}

func TestRegistryReusesLiveSession(t *testing.T) {
	r, _ := newTestRegistry(t, time.Minute)

	first := r.Acquire("visitor-1")
	second := r.Acquire("visitor-1")

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySeparatesVisitors(t *testing.T) {
	r, _ := newTestRegistry(t, time.Minute)

	a := r.Acquire("visitor-a")
	b := r.Acquire("visitor-b")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryEvictClosesSession(t *testing.T) {
	r, sessions := newTestRegistry(t, time.Minute)

	r.Acquire("visitor-1")
	r.Evict("visitor-1")

	v, ok := sessions.Load("visitor-1")
	require.True(t, ok)
	assert.True(t, v.(*fakeSession).closed.Load())
	assert.Equal(t, 0, r.Len())

	// Next acquire builds a fresh session.
	r.Acquire("visitor-1")
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r, sessions := newTestRegistry(t, time.Minute)

	now := time.Now()
	clock := now
	var mu sync.Mutex
	r.mu.Lock()
	r.clock = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	r.mu.Unlock()

	r.Acquire("stale")
	mu.Lock()
	clock = now.Add(2 * time.Minute)
	mu.Unlock()
	r.Acquire("fresh")

	r.evictIdle()

	assert.Equal(t, 1, r.Len())
	v, ok := sessions.Load("stale")
	require.True(t, ok)
	assert.True(t, v.(*fakeSession).closed.Load())
	f, _ := sessions.Load("fresh")
	assert.False(t, f.(*fakeSession).closed.Load())
}

func TestRegistryCloseTearsDownEverything(t *testing.T) {
	sessions := &sync.Map{}
	factory := func(visitorID string) Session {
		s := &fakeSession{id: visitorID}
		sessions.Store(visitorID, s)
		return s
	}
	r := NewRegistry(factory, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	r.Acquire("a")
	r.Acquire("b")
	r.Close()

	sessions.Range(func(_, v any) bool {
		assert.True(t, v.(*fakeSession).closed.Load())
		return true
	})
	assert.Equal(t, 0, r.Len())
}
