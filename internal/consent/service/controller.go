// Package service holds the consent state machine. The controller decides
// banner/modal visibility, turns user intent into persisted records, and
// surfaces every failure as a descriptor instead of letting it escape to
// the rendering layer.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/consent"
	dErrors "consentd/pkg/domain-errors"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "consentd_decisions_total",
	Help: "Persisted consent changes by action",
}, []string{"action"})

// Phase is the controller lifecycle phase.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseReady
	PhaseError
)

// State is the derived, in-memory UI state for one visitor. It is never
// persisted; the record and the override marker are.
type State struct {
	Phase       Phase               `json:"-"`
	Initialized bool                `json:"initialized"`
	ShowBanner  bool                `json:"show_banner"`
	ShowModal   bool                `json:"show_modal"`
	LastError   *consent.Descriptor `json:"last_error,omitempty"`
}

// Store is the persistence contract the controller depends on. The two
// slots (record, override marker) sit behind one implementation so the
// tie-break between them is enforced in one place.
type Store interface {
	Read(ctx context.Context, visitorID string) (consent.Record, error)
	Write(ctx context.Context, visitorID string, record consent.Record) error
	Clear(ctx context.Context, visitorID string) error
	MarkOverride(ctx context.Context, visitorID string) error
	HasOverride(ctx context.Context, visitorID string) bool
	Available(ctx context.Context) bool
}

// Controller owns the consent UI state for a single visitor session:
// Uninitialized -> Initializing -> Ready{banner|modal|neither} -> Error.
// All methods are safe for concurrent use; operations are short synchronous
// calls around single-shot store writes.
type Controller struct {
	mu        sync.Mutex
	visitorID string
	store     Store
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     func() time.Time

	phase      Phase
	showBanner bool
	showModal  bool
	lastErr    *consent.Descriptor
	record     *consent.Record
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewController builds a controller for one visitor. Callers must run
// Initialize before consuming State.
func NewController(visitorID string, store Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		visitorID: visitorID,
		store:     store,
		logger:    logger,
		tracer:    otel.Tracer("consentd/consent"),
		clock:     time.Now,
		phase:     PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VisitorID returns the visitor this controller belongs to.
func (c *Controller) VisitorID() string {
	return c.visitorID
}

// Initialize reads the store once and derives initial visibility. No record
// means a first visit: show the banner. A complete record means the visitor
// already decided: show nothing. A read failure is always recoverable — a
// fresh accept or reject repairs state — so it parks the controller in the
// error phase for the supervisor to retry.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseReady || c.phase == PhaseInitializing {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseInitializing
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "consent.initialize")
	defer span.End()

	record, err := c.store.Read(ctx, c.visitorID)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case err == nil:
		c.phase = PhaseReady
		c.record = &record
		c.showBanner = false
		c.showModal = false
		c.lastErr = nil
		return nil
	case isNotFound(err):
		c.phase = PhaseReady
		c.record = nil
		c.showBanner = true
		c.showModal = false
		c.lastErr = nil
		return nil
	default:
		span.RecordError(err)
		c.phase = PhaseError
		c.lastErr = consent.DescribeError(err)
		c.logger.Warn("consent initialization failed",
			"visitor_id", c.visitorID,
			"code", c.lastErr.Code,
			"error", err,
		)
		return err
	}
}

// AcceptAll persists a record with every category enabled.
func (c *Controller) AcceptAll(ctx context.Context) error {
	return c.decide(ctx, "consent.accept_all", consent.NewAcceptAll(c.clock()))
}

// RejectAll persists a record with only the essential category.
func (c *Controller) RejectAll(ctx context.Context) error {
	return c.decide(ctx, "consent.reject_all", consent.NewRejectAll(c.clock()))
}

// Customize merges the caller's category selection; essential stays on
// regardless of input.
func (c *Controller) Customize(ctx context.Context, cats consent.Categories) error {
	return c.decide(ctx, "consent.customize", consent.NewCustom(cats, c.clock()))
}

// decide writes an explicit user choice. Success dismisses banner and modal
// and sets the override marker; failure parks the controller in the error
// phase without touching visible state so the caller can retry.
func (c *Controller) decide(ctx context.Context, op string, record consent.Record) error {
	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	if err := c.store.Write(ctx, c.visitorID, record); err != nil {
		span.RecordError(err)
		c.fail(err)
		return err
	}

	// The marker only suppresses future environment-driven changes; its
	// failure must not undo a successfully persisted decision.
	if err := c.store.MarkOverride(ctx, c.visitorID); err != nil {
		c.logger.Warn("override marker write failed", "visitor_id", c.visitorID, "error", err)
	}

	decisions.WithLabelValues(strings.TrimPrefix(op, "consent.")).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseReady
	c.record = &record
	c.showBanner = false
	c.showModal = false
	c.lastErr = nil
	return nil
}

// ApplySystemPreference applies an environment-driven category change (for
// example a Global Privacy Control signal). An explicit user choice always
// wins: when the override marker is present the signal is ignored. The
// write does not set the marker and leaves banner/modal visibility alone.
func (c *Controller) ApplySystemPreference(ctx context.Context, cats consent.Categories) error {
	ctx, span := c.tracer.Start(ctx, "consent.system_preference")
	defer span.End()

	if c.store.HasOverride(ctx, c.visitorID) {
		return nil
	}

	record := consent.NewCustom(cats, c.clock())
	if err := c.store.Write(ctx, c.visitorID, record); err != nil {
		span.RecordError(err)
		c.fail(err)
		return err
	}

	decisions.WithLabelValues("system_preference").Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = &record
	if c.phase == PhaseError {
		c.phase = PhaseReady
	}
	c.lastErr = nil
	return nil
}

// Withdraw clears the persisted record; the next initialization starts from
// the first-visit state.
func (c *Controller) Withdraw(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "consent.withdraw")
	defer span.End()

	if err := c.store.Clear(ctx, c.visitorID); err != nil {
		span.RecordError(err)
		c.fail(err)
		return err
	}

	decisions.WithLabelValues("withdraw").Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseReady
	c.record = nil
	c.showBanner = true
	c.showModal = false
	c.lastErr = nil
	return nil
}

// OpenModal opens the category modal. While the banner is hidden the modal
// is reachable only through explicit entry points (a "cookie settings"
// link), never as a side effect; non-explicit calls are a no-op then.
func (c *Controller) OpenModal(explicit bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return false
	}
	if !explicit && !c.showBanner {
		return false
	}
	c.showModal = true
	return true
}

// CloseModal hides the category modal. Pure state transition.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showModal = false
}

// Reset discards all derived state so the next Initialize re-reads the
// store. Callers use it after a write that bypassed the controller, so the
// session does not keep presenting state the store no longer agrees with.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseUninitialized
	c.showBanner = false
	c.showModal = false
	c.lastErr = nil
	c.record = nil
}

// State returns a snapshot of the derived UI state. Initialized is true
// once Initialize has resolved, whether it succeeded or failed, so the
// rendering layer can hold back UI until then.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:       c.phase,
		Initialized: c.phase == PhaseReady || c.phase == PhaseError,
		ShowBanner:  c.showBanner,
		ShowModal:   c.showModal,
		LastError:   c.lastErr,
	}
}

// Record returns a copy of the last known persisted record, if any.
func (c *Controller) Record() *consent.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return nil
	}
	record := *c.record
	return &record
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseError
	c.lastErr = consent.DescribeError(err)
}

func isNotFound(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeNotFound)
}
