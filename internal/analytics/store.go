// Package analytics records usage counters in a local SQLite database. The
// recorders are fire and forget: a broken or missing database degrades the
// /stats output, never a job.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"rondo/internal/log"
)

// Store persists events, per-user counters, errors and numeric metrics.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		event TEXT NOT NULL,
		ts INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS counters (
		user_id INTEGER PRIMARY KEY,
		processed_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		ts INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		ts INTEGER NOT NULL
	)`,
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("analytics: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("analytics: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("analytics: %s: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("analytics: apply schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable, for readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// swallow logs a recorder failure at debug level and drops it. Counters
// must never fail a job.
func swallow(op string, err error) {
	if err != nil {
		logger := log.WithComponent("analytics")
		logger.Debug().Err(err).Str("op", op).Msg("recorder failed")
	}
}

func (s *Store) recordEvent(ctx context.Context, userID int64, event string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events(user_id, event, ts) VALUES (?, ?, ?)",
		userID, event, time.Now().Unix())
	return err
}

// RecordStart counts a /start interaction.
func (s *Store) RecordStart(ctx context.Context, userID int64) {
	swallow("start", s.recordEvent(ctx, userID, "start"))
}

// RecordKind tags the inbound media kind for the breakdown stats.
func (s *Store) RecordKind(ctx context.Context, userID int64, kind string) {
	swallow("kind", s.recordEvent(ctx, userID, "kind:"+kind))
}

// RecordConversion counts a successfully delivered clip, bumping the
// per-user counter in the same transaction as the event row.
func (s *Store) RecordConversion(ctx context.Context, userID int64) {
	swallow("conversion", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events(user_id, event, ts) VALUES (?, 'conversion', ?)",
			userID, time.Now().Unix()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters(user_id, processed_count) VALUES (?, 1)
			 ON CONFLICT(user_id) DO UPDATE SET processed_count = processed_count + 1`,
			userID); err != nil {
			return err
		}
		return tx.Commit()
	}())
}

// RecordError counts a failed job under a short classification code.
func (s *Store) RecordError(ctx context.Context, userID int64, code string) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO errors(user_id, code, ts) VALUES (?, ?, ?)",
		userID, code, time.Now().Unix())
	swallow("error", err)
}

// RecordMetric stores a numeric sample such as processing_ms or
// output_size_bytes.
func (s *Store) RecordMetric(ctx context.Context, userID int64, metric string, value float64) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metrics(user_id, metric, value, ts) VALUES (?, ?, ?, ?)",
		userID, metric, value, time.Now().Unix())
	swallow("metric", err)
}
