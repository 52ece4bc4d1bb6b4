// Package sqlite persists usage events in a local SQLite database for
// installs that want a queryable log instead of the NDJSON file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rzn-labs/datasourcer/usage"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("usage sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create usage db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, event usage.Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	event.Normalize()
	units, err := json.Marshal(event.Units)
	if err != nil {
		return fmt.Errorf("failed to encode usage units: %w", err)
	}
	var cost sql.NullFloat64
	if event.CostUSD != nil {
		cost = sql.NullFloat64{Float64: *event.CostUSD, Valid: true}
	}
	const q = `
INSERT INTO usage_events (
  event_id, run_id, request_id, connector, tool, provider, key_id,
  status, duration_ms, units, cost_usd, currency, estimated, pricing_version, model, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		event.ID,
		event.RunID,
		event.RequestID,
		event.Connector,
		event.Tool,
		event.Provider,
		event.KeyID,
		string(event.Status),
		event.DurationMs,
		string(units),
		cost,
		event.Currency,
		event.Estimated,
		event.PricingVersion,
		event.Model,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save usage event: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]usage.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	const q = `
SELECT event_id, run_id, request_id, connector, tool, provider, key_id,
       status, duration_ms, units, cost_usd, currency, estimated, pricing_version, model, timestamp
FROM usage_events
ORDER BY timestamp ASC;
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	out := make([]usage.Event, 0, 64)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage events: %w", err)
	}
	return out, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (usage.Event, error) {
	var (
		e      usage.Event
		status string
		units  string
		cost   sql.NullFloat64
		tsRaw  string
	)
	if err := scanner.Scan(
		&e.ID,
		&e.RunID,
		&e.RequestID,
		&e.Connector,
		&e.Tool,
		&e.Provider,
		&e.KeyID,
		&status,
		&e.DurationMs,
		&units,
		&cost,
		&e.Currency,
		&e.Estimated,
		&e.PricingVersion,
		&e.Model,
		&tsRaw,
	); err != nil {
		return usage.Event{}, fmt.Errorf("failed to scan usage event: %w", err)
	}
	e.Status = usage.Status(status)
	if cost.Valid {
		v := cost.Float64
		e.CostUSD = &v
	}
	if units != "" {
		_ = json.Unmarshal([]byte(units), &e.Units)
	}
	if tsRaw != "" {
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err == nil {
			e.Timestamp = ts
		}
	}
	e.Normalize()
	return e, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ usage.Store = (*Store)(nil)
