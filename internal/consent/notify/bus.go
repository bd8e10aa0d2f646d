// Package notify fans out consent change events to in-process listeners and
// external sinks. Delivery failures never block or roll back the write that
// produced the event.
package notify

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"consentd/internal/consent"
	dErrors "consentd/pkg/domain-errors"
)

// Change is the payload emitted on every successful write or clear. Record
// is nil when the visitor's consent was cleared.
type Change struct {
	VisitorID  string
	Record     *consent.Record
	OccurredAt time.Time
}

// Listener consumes change events. A listener returning an error does not
// stop delivery to other listeners.
type Listener func(Change) error

// Bus delivers change events to any number of independent listeners with an
// explicit subscribe/unsubscribe contract. Listeners must be unregistered on
// teardown so they never act on a torn-down consumer.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish delivers the change to every listener concurrently. A panicking
// or failing listener is reported as a dispatch error but cannot prevent
// delivery to the others.
func (b *Bus) Publish(change Change) error {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	var failures atomic.Int32
	g := new(errgroup.Group)
	for _, fn := range listeners {
		g.Go(func() error {
			if err := deliver(fn, change); err != nil {
				failures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failures.Load(); n > 0 {
		return dErrors.New(dErrors.CodeDispatchError,
			fmt.Sprintf("change event delivery failed for %d of %d listeners", n, len(listeners)))
	}
	return nil
}

func deliver(fn Listener, change Change) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(change)
}
