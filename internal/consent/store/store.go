package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"consentd/internal/consent"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/circuit"
)

var (
	// ErrNotFound keeps storage-specific absence consistent across slot
	// implementations. No record is a valid first-visit state, not a failure.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "consent record not found")

	opDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consentd_store_op_duration_ms",
		Help:    "Latency of consent store operations in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	}, []string{"op"})

	opErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentd_store_errors_total",
		Help: "Consent store operation failures by operation and error code",
	}, []string{"op", "code"})
)

// RecordSlot persists the durable consent record, one opaque JSON blob per
// visitor. Reads of data that cannot be parsed into a complete record must
// fail with a malformed_record error, never return a partial record.
type RecordSlot interface {
	Read(ctx context.Context, visitorID string) (consent.Record, error)
	Write(ctx context.Context, visitorID string, record consent.Record) error
	Clear(ctx context.Context, visitorID string) error
}

// OverrideSlot persists the short-lived explicit-choice marker, independent
// of the record. Presence carries no category detail.
type OverrideSlot interface {
	Set(ctx context.Context, visitorID string) error
	Has(ctx context.Context, visitorID string) (bool, error)
	Clear(ctx context.Context, visitorID string) error
}

// Pinger is optionally implemented by slots that can probe their medium.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store combines the two persistence slots behind one type so the
// record/marker tie-break rule stays centrally enforced. A circuit breaker
// tracks record-slot health; when it opens the medium is considered absent
// and callers degrade to their terminal path.
type Store struct {
	records   RecordSlot
	overrides OverrideSlot
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

// New builds a Store over the given slots.
func New(records RecordSlot, overrides OverrideSlot, logger *slog.Logger) *Store {
	return &Store{
		records:   records,
		overrides: overrides,
		breaker:   circuit.New("consent-store"),
		logger:    logger,
	}
}

// Read loads the visitor's record. Absence surfaces as ErrNotFound.
func (s *Store) Read(ctx context.Context, visitorID string) (consent.Record, error) {
	defer observe("read")()

	record, err := s.records.Read(ctx, visitorID)
	switch {
	case err == nil:
		s.breaker.RecordSuccess()
		return record, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound), dErrors.HasCode(err, dErrors.CodeMalformedRecord):
		// The medium answered; only its answer was empty or corrupt.
		s.breaker.RecordSuccess()
		return consent.Record{}, err
	default:
		s.recordFailure("read", err)
		return consent.Record{}, dErrors.Wrap(err, dErrors.CodeStorageError, "read consent record")
	}
}

// Write persists the record as a single atomic call to the slot. A record
// that fails validation here escaped a constructor invariant, which has no
// remediation path.
func (s *Store) Write(ctx context.Context, visitorID string, record consent.Record) error {
	defer observe("write")()

	if err := record.Validate(); err != nil {
		// Validate reports malformed_record, but a record that was never
		// readable from storage failing here means a constructor invariant
		// broke; escalate past the recoverable code.
		return dErrors.Escalate(err, dErrors.CodeLogicFault, "refusing to persist incomplete record")
	}
	if err := s.records.Write(ctx, visitorID, record); err != nil {
		s.recordFailure("write", err)
		return dErrors.Wrap(err, dErrors.CodeStorageError, "write consent record")
	}
	s.breaker.RecordSuccess()
	return nil
}

// Clear removes the record and the override marker.
func (s *Store) Clear(ctx context.Context, visitorID string) error {
	defer observe("clear")()

	if err := s.records.Clear(ctx, visitorID); err != nil {
		s.recordFailure("clear", err)
		return dErrors.Wrap(err, dErrors.CodeStorageError, "clear consent record")
	}
	s.breaker.RecordSuccess()
	if err := s.overrides.Clear(ctx, visitorID); err != nil {
		// Marker cleanup is best-effort; the marker expires on its own.
		s.logger.Warn("failed to clear override marker", "error", err, "visitor_id", visitorID)
	}
	return nil
}

// MarkOverride records that the visitor made an explicit choice this
// session. Failures are surfaced so callers can decide to log them, but the
// marker never gates the record write itself.
func (s *Store) MarkOverride(ctx context.Context, visitorID string) error {
	defer observe("mark_override")()

	if err := s.overrides.Set(ctx, visitorID); err != nil {
		opErrors.WithLabelValues("mark_override", string(dErrors.CodeOf(err))).Inc()
		return dErrors.Wrap(err, dErrors.CodeStorageError, "set override marker")
	}
	return nil
}

// HasOverride never fails: any read problem counts as "no explicit choice".
func (s *Store) HasOverride(ctx context.Context, visitorID string) bool {
	defer observe("has_override")()

	has, err := s.overrides.Has(ctx, visitorID)
	if err != nil {
		s.logger.Warn("override marker read failed, assuming absent", "error", err, "visitor_id", visitorID)
		return false
	}
	return has
}

// Available reports whether the record medium is usable. The breaker opens
// after consecutive slot failures; while open, a successful ping closes it
// again. Terminal-tier callers must consult this before any speculative
// read or write.
func (s *Store) Available(ctx context.Context) bool {
	if !s.breaker.IsOpen() {
		return true
	}
	pinger, ok := s.records.(Pinger)
	if !ok {
		return false
	}
	if err := pinger.Ping(ctx); err != nil {
		return false
	}
	s.breaker.Reset()
	return true
}

func (s *Store) recordFailure(op string, err error) {
	opErrors.WithLabelValues(op, string(dErrors.CodeOf(err))).Inc()
	if s.breaker.RecordFailure() {
		s.logger.Error("consent store circuit opened", "op", op, "error", err)
	}
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		opDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
}
