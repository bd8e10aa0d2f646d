package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"consentd/internal/consent"
	dErrors "consentd/pkg/domain-errors"
)

const (
	// Redis key prefixes for the two persistence slots.
	recordKeyPrefix   = "consent:record:"
	overrideKeyPrefix = "consent:override:"
)

// RedisRecordSlot persists records as opaque JSON blobs in Redis. Records
// carry no TTL; an explicit clear or a new write are the only mutations.
type RedisRecordSlot struct {
	client *redis.Client
}

func NewRedisRecordSlot(client *redis.Client) *RedisRecordSlot {
	return &RedisRecordSlot{client: client}
}

func (s *RedisRecordSlot) Read(ctx context.Context, visitorID string) (consent.Record, error) {
	payload, err := s.client.Get(ctx, recordKeyPrefix+visitorID).Bytes()
	if errors.Is(err, redis.Nil) {
		return consent.Record{}, ErrNotFound
	}
	if err != nil {
		return consent.Record{}, err
	}
	return decodeRecord(payload)
}

func (s *RedisRecordSlot) Write(ctx context.Context, visitorID string, record consent.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	// A single SET is atomic; there is no partially-written state.
	return s.client.Set(ctx, recordKeyPrefix+visitorID, payload, 0).Err()
}

func (s *RedisRecordSlot) Clear(ctx context.Context, visitorID string) error {
	return s.client.Del(ctx, recordKeyPrefix+visitorID).Err()
}

func (s *RedisRecordSlot) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// RedisOverrideSlot stores the explicit-choice marker as a short-lived key.
// The value is a bare "1"; key existence is the signal.
type RedisOverrideSlot struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOverrideSlot(client *redis.Client, ttl time.Duration) *RedisOverrideSlot {
	return &RedisOverrideSlot{client: client, ttl: ttl}
}

func (s *RedisOverrideSlot) Set(ctx context.Context, visitorID string) error {
	return s.client.Set(ctx, overrideKeyPrefix+visitorID, "1", s.ttl).Err()
}

func (s *RedisOverrideSlot) Has(ctx context.Context, visitorID string) (bool, error) {
	_, err := s.client.Get(ctx, overrideKeyPrefix+visitorID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisOverrideSlot) Clear(ctx context.Context, visitorID string) error {
	return s.client.Del(ctx, overrideKeyPrefix+visitorID).Err()
}

// decodeRecord parses a stored payload. Corrupt or legacy payloads fail as
// malformed records; a partially-valid record is never returned.
func decodeRecord(payload []byte) (consent.Record, error) {
	var record consent.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return consent.Record{}, dErrors.Wrap(err, dErrors.CodeMalformedRecord, "stored consent payload is not valid JSON")
	}
	if err := record.Validate(); err != nil {
		return consent.Record{}, err
	}
	return record, nil
}
