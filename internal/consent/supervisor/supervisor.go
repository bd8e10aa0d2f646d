// Package supervisor isolates consent failures from the rest of the page.
// It wraps every controller operation, classifies what went wrong, drives
// bounded automatic retries, and selects the fallback tier the rendering
// layer should show.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"consentd/internal/consent"
	"consentd/internal/consent/service"
	dErrors "consentd/pkg/domain-errors"
)

const (
	// DefaultRetryBase is the first automatic retry delay; each further
	// attempt doubles it.
	DefaultRetryBase = 1000 * time.Millisecond
	// DefaultMaxRetries bounds automatic retries. Manual retry stays
	// available indefinitely afterwards.
	DefaultMaxRetries = 3
)

var (
	retriesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consentd_retries_scheduled_total",
		Help: "Automatic consent retries scheduled after recoverable failures",
	})
	retriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consentd_retries_exhausted_total",
		Help: "Times the automatic retry budget ran out",
	})
	manualRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consentd_manual_retries_total",
		Help: "Manual retry requests",
	})
	emergencyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_emergency_writes_total",
		Help: "Emergency accept-essential writes by outcome",
	}, []string{"outcome"})
	tierActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_tier_activations_total",
		Help: "Sessions entering a degraded fallback tier",
	}, []string{"tier"})
)

// Snapshot is what the rendering layer consumes: derived state plus the
// fallback tier it should present. Nothing in it can throw when read.
type Snapshot struct {
	State      service.State   `json:"state"`
	Tier       Tier            `json:"tier"`
	RetryCount int             `json:"retry_count"`
	Record     *consent.Record `json:"record,omitempty"`
}

// Supervisor wraps one visitor's controller. It owns the retry counter and
// error posture; both reset on manual retry and disappear with the session.
type Supervisor struct {
	controller *service.Controller
	store      service.Store
	logger     *slog.Logger

	base       time.Duration
	maxRetries int
	scheduler  *retryScheduler

	mu             sync.Mutex
	retryCount     int
	exhausted      bool
	terminalNotice bool
	lastAttempt    func(ctx context.Context) error
	lastTier       Tier
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRetryBase overrides the first retry delay, mainly for tests.
func WithRetryBase(base time.Duration) Option {
	return func(s *Supervisor) {
		if base > 0 {
			s.base = base
		}
	}
}

// WithMaxRetries overrides the automatic retry budget.
func WithMaxRetries(n int) Option {
	return func(s *Supervisor) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// New builds a supervisor around a controller. The store handle is used
// only by the emergency path, which must work when the controller cannot.
func New(controller *service.Controller, store service.Store, logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		controller: controller,
		store:      store,
		logger:     logger,
		base:       DefaultRetryBase,
		maxRetries: DefaultMaxRetries,
		scheduler:  newRetryScheduler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize runs the controller's one-shot initialization under
// supervision.
func (s *Supervisor) Initialize(ctx context.Context) error {
	return s.run(ctx, "initialize", s.controller.Initialize)
}

// AcceptAll persists an all-categories record under supervision.
func (s *Supervisor) AcceptAll(ctx context.Context) error {
	return s.run(ctx, "accept_all", s.controller.AcceptAll)
}

// RejectAll persists an essential-only record under supervision.
func (s *Supervisor) RejectAll(ctx context.Context) error {
	return s.run(ctx, "reject_all", s.controller.RejectAll)
}

// Customize persists a per-category selection under supervision.
func (s *Supervisor) Customize(ctx context.Context, cats consent.Categories) error {
	return s.run(ctx, "customize", func(ctx context.Context) error {
		return s.controller.Customize(ctx, cats)
	})
}

// ApplySystemPreference forwards an environment-driven change under
// supervision.
func (s *Supervisor) ApplySystemPreference(ctx context.Context, cats consent.Categories) error {
	return s.run(ctx, "system_preference", func(ctx context.Context) error {
		return s.controller.ApplySystemPreference(ctx, cats)
	})
}

// Withdraw clears the visitor's record under supervision.
func (s *Supervisor) Withdraw(ctx context.Context) error {
	return s.run(ctx, "withdraw", s.controller.Withdraw)
}

// OpenModal and CloseModal are pure state transitions; they cannot fail and
// need no supervision.
func (s *Supervisor) OpenModal(explicit bool) bool { return s.controller.OpenModal(explicit) }
func (s *Supervisor) CloseModal()                  { s.controller.CloseModal() }

// run executes one supervised attempt. Panics from the controller or its
// consumers are contained here as logic faults so nothing below the
// supervisor throws into the surrounding page.
func (s *Supervisor) run(ctx context.Context, name string, op func(ctx context.Context) error) error {
	err := s.attempt(ctx, op)
	if err == nil {
		s.onSuccess()
		return nil
	}

	s.logger.Error("consent operation failed",
		"op", name,
		"code", dErrors.CodeOf(err),
		"fatal", dErrors.IsFatal(err),
		"error", err,
	)

	if dErrors.IsFatal(err) {
		// No remediation path: skip retries, the tier function will land
		// on the degraded banner immediately.
		s.scheduler.Cancel()
		return err
	}

	s.mu.Lock()
	s.lastAttempt = op
	s.mu.Unlock()
	s.scheduleRetry()
	return err
}

func (s *Supervisor) attempt(ctx context.Context, op func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dErrors.New(dErrors.CodeLogicFault, fmt.Sprintf("consent operation panicked: %v", r))
		}
	}()
	return op(ctx)
}

// scheduleRetry arms the next automatic attempt at base * 2^retryCount.
// After the budget is spent automatic retries stop; the manual path remains.
func (s *Supervisor) scheduleRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryCount >= s.maxRetries {
		if !s.exhausted {
			s.exhausted = true
			retriesExhausted.Inc()
			s.logger.Warn("automatic consent retries exhausted", "retries", s.retryCount)
		}
		return
	}

	delay := NextDelay(s.base, s.retryCount)
	s.retryCount++
	retriesScheduled.Inc()

	s.scheduler.Schedule(delay, func() {
		s.mu.Lock()
		op := s.lastAttempt
		s.mu.Unlock()
		if op == nil {
			return
		}
		if err := s.attempt(context.Background(), op); err != nil {
			if dErrors.IsFatal(err) {
				s.logger.Error("automatic retry hit fatal error", "error", err)
				return
			}
			s.scheduleRetry()
			return
		}
		s.onSuccess()
	})
}

// Retry is the manual path. It cancels any pending automatic attempt first
// so two repairs never run concurrently, resets the retry counter, and
// re-runs the failed operation (or initialization when nothing is retained).
func (s *Supervisor) Retry(ctx context.Context) error {
	manualRetries.Inc()
	s.scheduler.Cancel()

	s.mu.Lock()
	s.retryCount = 0
	s.exhausted = false
	op := s.lastAttempt
	s.mu.Unlock()

	if op == nil {
		op = s.controller.Initialize
	}

	err := s.attempt(ctx, op)
	if err == nil {
		s.onSuccess()
		return nil
	}
	if dErrors.IsFatal(err) {
		return err
	}
	s.scheduleRetry()
	return err
}

// EmergencyAcceptEssential bypasses the controller and writes a minimal
// hardcoded record straight through the store. It checks availability
// before touching the medium — the terminal tier never calls the store
// speculatively — and if even this write fails it surfaces a blocking,
// unrecoverable notice instead of claiming success or retrying silently.
func (s *Supervisor) EmergencyAcceptEssential(ctx context.Context) error {
	s.scheduler.Cancel()

	if !s.store.Available(ctx) {
		s.markTerminalNotice()
		emergencyWrites.WithLabelValues("unavailable").Inc()
		return dErrors.New(dErrors.CodeStorageError, "consent storage is unavailable")
	}

	record := consent.NewEssentialOnly(time.Now())
	if err := s.store.Write(ctx, s.controller.VisitorID(), record); err != nil {
		s.markTerminalNotice()
		emergencyWrites.WithLabelValues("failed").Inc()
		s.logger.Error("emergency consent write failed", "error", err)
		return err
	}

	emergencyWrites.WithLabelValues("ok").Inc()
	// A degraded-tier write leaves no residue: clear the retry posture and
	// re-read the store so the session continues from the primary tier with
	// the choice it just persisted, not the degraded state it bypassed.
	s.onSuccess()
	s.controller.Reset()
	if err := s.controller.Initialize(ctx); err != nil {
		s.logger.Warn("reinitialize after emergency write failed", "error", err)
	}
	return nil
}

// Tier reports the fallback tier the rendering layer should present.
func (s *Supervisor) Tier(ctx context.Context) Tier {
	s.mu.Lock()
	notice := s.terminalNotice
	exhausted := s.exhausted
	s.mu.Unlock()

	tier := SelectTier(s.controller.State(), exhausted, s.store.Available(ctx))
	if notice {
		tier = TierTerminal
	}

	s.mu.Lock()
	if tier != s.lastTier && tier != TierPrimary {
		tierActivations.WithLabelValues(string(tier)).Inc()
	}
	s.lastTier = tier
	s.mu.Unlock()

	return tier
}

// Snapshot bundles state, tier, and record for the rendering layer.
func (s *Supervisor) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	retries := s.retryCount
	s.mu.Unlock()

	return Snapshot{
		State:      s.controller.State(),
		Tier:       s.Tier(ctx),
		RetryCount: retries,
		Record:     s.controller.Record(),
	}
}

// RetryCount returns the number of automatic retries consumed.
func (s *Supervisor) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Close cancels any pending automatic retry. Called on session teardown.
func (s *Supervisor) Close() {
	s.scheduler.Cancel()
}

func (s *Supervisor) onSuccess() {
	s.scheduler.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount = 0
	s.exhausted = false
	s.lastAttempt = nil
}

func (s *Supervisor) markTerminalNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalNotice = true
}
