// Package journal persists runtime events in DuckDB so component lifecycles
// and failures can be inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver

	"mvukit/internal/report"
)

const schemaSQL = `
CREATE SEQUENCE IF NOT EXISTS event_seq;

CREATE TABLE IF NOT EXISTS events (
  event_id      BIGINT PRIMARY KEY DEFAULT nextval('event_seq'),
  recorded_at   TIMESTAMP NOT NULL,
  kind          VARCHAR NOT NULL,
  severity      VARCHAR NOT NULL,
  component_id  VARCHAR,
  component     VARCHAR,
  subject       VARCHAR,
  error         VARCHAR
);
`

// Entry is one stored event.
type Entry struct {
	EventID     int64     `json:"event_id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Kind        string    `json:"kind"`
	Severity    string    `json:"severity"`
	ComponentID string    `json:"component_id,omitempty"`
	Component   string    `json:"component,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Query filters Recent. Zero fields match everything.
type Query struct {
	ComponentID string
	Component   string
	Kind        report.Kind
	Limit       int
}

// Store is the DuckDB-backed event table.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTimeout bounds how long opening the database may take.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.timeout = d
	}
}

// Open opens (or creates) the journal. An empty dsn gives an in-memory
// database.
func Open(dsn string, opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// DuckDB is embedded; one connection serialises writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s.db = db
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores events in one transaction.
func (s *Store) Insert(ctx context.Context, events []report.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (recorded_at, kind, severity, component_id, component, subject, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		at := ev.Time
		if at.IsZero() {
			at = time.Now()
		}
		var errText sql.NullString
		if ev.Err != nil {
			errText = sql.NullString{String: ev.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			at.UTC(),
			string(ev.Kind),
			ev.Kind.Severity().String(),
			nullable(ev.ComponentID),
			nullable(ev.Component),
			nullable(ev.Subject),
			errText,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// Recent returns the newest events matching q, newest first.
func (s *Store) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	var where []string
	var args []any
	if q.ComponentID != "" {
		where = append(where, "component_id = ?")
		args = append(args, q.ComponentID)
	}
	if q.Component != "" {
		where = append(where, "component = ?")
		args = append(args, q.Component)
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}

	query := `
		SELECT
			event_id,
			recorded_at,
			kind,
			severity,
			COALESCE(component_id, ''),
			COALESCE(component, ''),
			COALESCE(subject, ''),
			COALESCE(error, '')
		FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY event_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events failed: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.EventID,
			&e.RecordedAt,
			&e.Kind,
			&e.Severity,
			&e.ComponentID,
			&e.Component,
			&e.Subject,
			&e.Error,
		); err != nil {
			return nil, fmt.Errorf("scan event failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

// Counts returns how many events of each kind are stored.
func (s *Store) Counts(ctx context.Context) (map[report.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count events failed: %w", err)
	}
	defer rows.Close()

	out := make(map[report.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count failed: %w", err)
		}
		out[report.Kind(kind)] = n
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
