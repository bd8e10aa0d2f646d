package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelayDoubles(t *testing.T) {
	base := 1000 * time.Millisecond

	assert.Equal(t, 1000*time.Millisecond, NextDelay(base, 0))
	assert.Equal(t, 2000*time.Millisecond, NextDelay(base, 1))
	assert.Equal(t, 4000*time.Millisecond, NextDelay(base, 2))
}

func TestSchedulerReplacesPendingTimer(t *testing.T) {
	s := newRetryScheduler()
	fired := make(chan string, 2)

	s.Schedule(50*time.Millisecond, func() { fired <- "first" })
	s.Schedule(5*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		require.Equal(t, "second", got)
	case <-time.After(time.Second):
		t.Fatal("scheduled callback never fired")
	}

	select {
	case got := <-fired:
		t.Fatalf("replaced timer fired anyway: %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := newRetryScheduler()
	fired := make(chan struct{}, 1)

	s.Schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	assert.True(t, s.Cancel())

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(80 * time.Millisecond):
	}

	assert.False(t, s.Cancel(), "cancel with nothing pending reports false")
}
