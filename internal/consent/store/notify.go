package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"consentd/internal/consent"
	"consentd/internal/consent/notify"
)

var dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "consentd_change_dispatch_failures_total",
	Help: "Change event deliveries that failed after a successful store mutation",
})

// Notifying decorates a Store so every successful write or clear emits a
// change event. Dispatch failures are logged and counted, never propagated:
// the persisted state is already final when listeners run.
type Notifying struct {
	*Store
	bus    *notify.Bus
	logger *slog.Logger
}

func NewNotifying(inner *Store, bus *notify.Bus, logger *slog.Logger) *Notifying {
	return &Notifying{Store: inner, bus: bus, logger: logger}
}

func (n *Notifying) Write(ctx context.Context, visitorID string, record consent.Record) error {
	if err := n.Store.Write(ctx, visitorID, record); err != nil {
		return err
	}
	n.publish(notify.Change{VisitorID: visitorID, Record: &record, OccurredAt: time.Now()})
	return nil
}

func (n *Notifying) Clear(ctx context.Context, visitorID string) error {
	if err := n.Store.Clear(ctx, visitorID); err != nil {
		return err
	}
	n.publish(notify.Change{VisitorID: visitorID, Record: nil, OccurredAt: time.Now()})
	return nil
}

func (n *Notifying) publish(change notify.Change) {
	if err := n.bus.Publish(change); err != nil {
		dispatchFailures.Inc()
		n.logger.Warn("consent change dispatch failed", "error", err, "visitor_id", change.VisitorID)
	}
}
