// Package signallog persists ingested signals to an append-only SQLite
// table. The journey graph itself is deliberately non-durable; this log is
// the external record it can be rebuilt from, replayed through the builder
// on startup or on demand.
package signallog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tripmind-backend/internal/domain/journey"
)

const (
	typeVisit      = "visit"
	typeConversion = "conversion"
	typeBounce     = "bounce"
)

// Store provides SQLite-backed persistence for behavioral signals.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the signal log database at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open signal log: path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open signal log: %w", err)
	}
	// The log is written by a single process; one connection keeps SQLite's
	// locking out of the ingestion path.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("open signal log: set journal mode: %w", err)
	}
	return db, nil
}

// New returns a Store bound to an existing database handle, creating the
// schema if needed.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("signal log: db is nil")
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS signals (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		type        TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		intent      TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		content_id  TEXT NOT NULL DEFAULT '',
		outcome     TEXT NOT NULL DEFAULT '',
		value       REAL NOT NULL DEFAULT 0,
		occurred_at TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("signal log: create signals table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_signals_session ON signals(session_id);`)
	if err != nil {
		return fmt.Errorf("signal log: create session index: %w", err)
	}
	return nil
}

// Append writes one signal to the log. It is called after the builder has
// accepted the signal; failures here must not fail ingestion.
func (s *Store) Append(ctx context.Context, sig journey.Signal) error {
	if sig == nil {
		return fmt.Errorf("append signal: signal is nil")
	}

	var (
		kind, intent, source, contentID, outcome string
		value                                    float64
	)
	switch v := sig.(type) {
	case journey.Visit:
		kind, intent, source, contentID = typeVisit, v.Intent, v.Source, v.ContentID
	case journey.Conversion:
		kind, outcome, value = typeConversion, v.Outcome, v.Value
	case journey.Bounce:
		kind, outcome = typeBounce, v.Outcome
	default:
		return fmt.Errorf("append signal: unknown signal type %T", sig)
	}

	occurredAt := sig.When()
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (type, session_id, intent, source, content_id, outcome, value, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, sig.Session(), intent, source, contentID, outcome, value,
		occurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append signal: insert: %w", err)
	}
	return nil
}

// Replay streams every logged signal, in insertion order, through fn. It
// returns the number of signals fn accepted; fn errors skip the signal and
// replay continues, mirroring the engine's drop-and-continue ingestion
// contract.
func (s *Store) Replay(ctx context.Context, fn func(journey.Signal) error) (applied int, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, session_id, intent, source, content_id, outcome, value, occurred_at
		 FROM signals ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("replay signals: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, sessionID, intent, source, contentID, outcome, occurredAt string
			value                                                           float64
		)
		if err := rows.Scan(&kind, &sessionID, &intent, &source, &contentID, &outcome, &value, &occurredAt); err != nil {
			return applied, fmt.Errorf("replay signals: scan: %w", err)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, occurredAt)
		if parseErr != nil {
			ts = time.Time{}
		}

		var sig journey.Signal
		switch kind {
		case typeVisit:
			sig = journey.Visit{SessionID: sessionID, Intent: intent, Source: source, ContentID: contentID, Timestamp: ts}
		case typeConversion:
			sig = journey.Conversion{SessionID: sessionID, Outcome: outcome, Value: value, Timestamp: ts}
		case typeBounce:
			sig = journey.Bounce{SessionID: sessionID, Outcome: outcome, Timestamp: ts}
		default:
			continue
		}

		if err := fn(sig); err == nil {
			applied++
		}
	}
	if err := rows.Err(); err != nil {
		return applied, fmt.Errorf("replay signals: iterate: %w", err)
	}
	return applied, nil
}

// Count returns the number of logged signals.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}

// Truncate deletes every logged signal; paired with Builder.Clear when an
// operator resets the graph.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM signals`); err != nil {
		return fmt.Errorf("truncate signals: %w", err)
	}
	return nil
}
