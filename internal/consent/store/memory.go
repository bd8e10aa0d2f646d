package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"consentd/internal/consent"
)

// MemoryRecordSlot keeps records in process memory. Used in tests and as the
// default slot when no database is configured.
type MemoryRecordSlot struct {
	mu         sync.RWMutex
	records    map[string]consent.Record
	failWrites bool
}

func NewMemoryRecordSlot() *MemoryRecordSlot {
	return &MemoryRecordSlot{records: make(map[string]consent.Record)}
}

func (s *MemoryRecordSlot) Read(_ context.Context, visitorID string) (consent.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[visitorID]
	if !ok {
		return consent.Record{}, ErrNotFound
	}
	if err := record.Validate(); err != nil {
		return consent.Record{}, err
	}
	return record, nil
}

func (s *MemoryRecordSlot) Write(_ context.Context, visitorID string, record consent.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("record slot is write-disabled")
	}
	s.records[visitorID] = record
	return nil
}

// FailWrites toggles write refusal to simulate a disabled or full medium.
func (s *MemoryRecordSlot) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

func (s *MemoryRecordSlot) Clear(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, visitorID)
	return nil
}

// Seed stores a record without validation so tests can plant corrupt data.
func (s *MemoryRecordSlot) Seed(visitorID string, record consent.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[visitorID] = record
}

// MemoryOverrideSlot keeps override markers in process memory with expiry.
type MemoryOverrideSlot struct {
	mu      sync.RWMutex
	ttl     time.Duration
	markers map[string]time.Time
}

func NewMemoryOverrideSlot(ttl time.Duration) *MemoryOverrideSlot {
	return &MemoryOverrideSlot{ttl: ttl, markers: make(map[string]time.Time)}
}

func (s *MemoryOverrideSlot) Set(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[visitorID] = time.Now().Add(s.ttl)
	return nil
}

func (s *MemoryOverrideSlot) Has(_ context.Context, visitorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, ok := s.markers[visitorID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

func (s *MemoryOverrideSlot) Clear(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, visitorID)
	return nil
}
