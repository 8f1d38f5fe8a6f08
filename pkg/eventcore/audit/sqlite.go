package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteSink persists audit records to SQLite.
// It is suitable for single-process production use.
type SQLiteSink struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteSink creates a new SQLite audit sink.
// The path should be a file path (e.g., "./audit.db") or ":memory:" for testing.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			entity TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_name TEXT NOT NULL,
			event_id TEXT NOT NULL,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create executions table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_executions_event_id
		ON executions(event_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// InsertEvent implements Sink.
func (s *SQLiteSink) InsertEvent(ctx context.Context, rec EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, type, source, entity, status, error, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, rec.EventID, rec.Type, rec.Source, rec.Entity, rec.Status, rec.Error, string(payload),
		rec.Timestamp.UTC().Format(time.RFC3339Nano), now)

	if err != nil {
		return fmt.Errorf("insert event record: %w", err)
	}
	return nil
}

// UpdateEvent implements Sink.
func (s *SQLiteSink) UpdateEvent(ctx context.Context, eventID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	status, hasStatus := fields["status"].(string)
	errMsg, hasErr := fields["error"].(string)
	if !hasStatus && !hasErr {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			status = CASE WHEN ? THEN ? ELSE status END,
			error = CASE WHEN ? THEN ? ELSE error END,
			updated_at = ?
		WHERE event_id = ?
	`, hasStatus, status, hasErr, errMsg, now, eventID)

	if err != nil {
		return fmt.Errorf("update event record: %w", err)
	}
	return nil
}

// InsertExecution implements Sink.
func (s *SQLiteSink) InsertExecution(ctx context.Context, rec ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (agent_name, event_id, status, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.AgentName, rec.EventID, rec.Status, rec.DurationMs, rec.Error,
		rec.Timestamp.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// CountEvents returns the number of stored event records.
func (s *SQLiteSink) CountEvents(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// CountExecutions returns the number of stored execution records.
func (s *SQLiteSink) CountExecutions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}

// EventStatus returns the stored status and error for an event.
func (s *SQLiteSink) EventStatus(ctx context.Context, eventID string) (status, errMsg string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", "", ErrStoreClosed
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT status, error FROM events WHERE event_id = ?
	`, eventID).Scan(&status, &errMsg)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("event %s not found", eventID)
	}
	if err != nil {
		return "", "", fmt.Errorf("query event status: %w", err)
	}
	return status, errMsg, nil
}

// Close implements io.Closer.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
