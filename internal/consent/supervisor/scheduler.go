package supervisor

import (
	"sync"
	"time"
)

// retryScheduler owns the single outstanding retry timer. Cancellation
// before rescheduling is mandatory so two repair attempts can never race
// on the same store key.
type retryScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
}

func newRetryScheduler() *retryScheduler {
	return &retryScheduler{}
}

// Schedule cancels any pending timer and arms a new one.
func (s *retryScheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, fn)
}

// Cancel stops the pending timer, if any. It returns true when a timer was
// armed, whether or not it had already fired.
func (s *retryScheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

// NextDelay computes the exponential backoff delay for the given attempt:
// base * 2^attempt.
func NextDelay(base time.Duration, attempt int) time.Duration {
	return base << attempt
}
