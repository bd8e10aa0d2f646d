package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"consentd/internal/consent"
)

// PostgresRecordSlot persists records as opaque JSON blobs, one row per
// visitor. The upsert is a single statement so a write either lands whole
// or not at all.
type PostgresRecordSlot struct {
	db *sql.DB
}

func NewPostgresRecordSlot(db *sql.DB) *PostgresRecordSlot {
	return &PostgresRecordSlot{db: db}
}

func (s *PostgresRecordSlot) Read(ctx context.Context, visitorID string) (consent.Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM consent_records WHERE visitor_id = $1`,
		visitorID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return consent.Record{}, ErrNotFound
	}
	if err != nil {
		return consent.Record{}, err
	}
	return decodeRecord(payload)
}

func (s *PostgresRecordSlot) Write(ctx context.Context, visitorID string, record consent.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO consent_records (visitor_id, payload, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (visitor_id) DO UPDATE SET payload = $2, updated_at = $3`,
		visitorID, payload, time.Now().UTC(),
	)
	return err
}

func (s *PostgresRecordSlot) Clear(ctx context.Context, visitorID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM consent_records WHERE visitor_id = $1`,
		visitorID,
	)
	return err
}

func (s *PostgresRecordSlot) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
