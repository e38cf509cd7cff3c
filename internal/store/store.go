// Package store provides SQLite persistence for events and analysis runs.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/narratives/internal/model"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("store: not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		occurred_at DATETIME NOT NULL,
		source_type TEXT NOT NULL,
		source_subtype TEXT NOT NULL,
		entities TEXT NOT NULL,
		text TEXT NOT NULL,
		url TEXT,
		metrics TEXT,
		raw_source TEXT,
		author TEXT,
		author_followers INTEGER DEFAULT 0,
		content_hash TEXT NOT NULL,
		stored_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_occurred ON events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_events_subtype ON events(source_subtype);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		generated_at DATETIME NOT NULL,
		window_start DATETIME NOT NULL,
		window_end DATETIME NOT NULL,
		baseline_start DATETIME,
		total_events INTEGER NOT NULL,
		narrative_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at DESC);

	CREATE TABLE IF NOT EXISTS run_narratives (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		narrative_id TEXT NOT NULL,
		label TEXT NOT NULL,
		composite REAL NOT NULL,
		confidence REAL NOT NULL,
		event_count INTEGER NOT NULL,
		PRIMARY KEY (run_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_run_narratives_label ON run_narratives(label);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// EventID is the storage key of an event: its content hash plus its
// timestamp, so a re-fetched event is stored once while a recurring one
// with identical text on another day is kept.
func EventID(e model.SignalEvent) string {
	e = e.EnsureHash()
	return e.ContentHash + "-" + strconv.FormatInt(e.Timestamp.Unix(), 10)
}

// SaveEvents stores events, returning count of new events inserted.
// Duplicates (by EventID) are silently ignored via INSERT OR IGNORE.
// Thread-safe: acquires write lock.
func (s *Store) SaveEvents(events []model.SignalEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO events (
			id, occurred_at, source_type, source_subtype, entities, text, url,
			metrics, raw_source, author, author_followers, content_hash, stored_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	newCount := 0
	for _, e := range events {
		e = e.EnsureHash()
		entities, err := json.Marshal(nonNil(e.Entities))
		if err != nil {
			return 0, fmt.Errorf("encode entities: %w", err)
		}
		var metrics []byte
		if len(e.Metrics) > 0 {
			if metrics, err = json.Marshal(e.Metrics); err != nil {
				return 0, fmt.Errorf("encode metrics: %w", err)
			}
		}

		result, err := stmt.Exec(
			EventID(e),
			e.Timestamp.UTC(),
			string(e.Domain),
			string(e.Subtype),
			string(entities),
			e.Text,
			e.URL,
			string(metrics),
			e.RawSource,
			e.Author,
			e.AuthorFollowers,
			e.ContentHash,
			now,
		)
		if err != nil {
			return 0, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected > 0 {
			newCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newCount, nil
}

// EventsBetween returns events with start <= timestamp < end, oldest first.
// Thread-safe: acquires read lock.
func (s *Store) EventsBetween(start, end time.Time) ([]model.SignalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT occurred_at, source_type, source_subtype, entities, text, url,
			metrics, raw_source, author, author_followers, content_hash
		FROM events
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC
	`

	return s.queryEvents(query, start.UTC(), end.UTC())
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}

// queryEvents is a helper that executes a query and scans results into events.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryEvents(query string, args ...any) ([]model.SignalEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.SignalEvent{}
	for rows.Next() {
		var (
			e                               model.SignalEvent
			domain, subtype, entities       string
			url, metrics, rawSource, author sql.NullString
		)
		err := rows.Scan(
			&e.Timestamp,
			&domain,
			&subtype,
			&entities,
			&e.Text,
			&url,
			&metrics,
			&rawSource,
			&author,
			&e.AuthorFollowers,
			&e.ContentHash,
		)
		if err != nil {
			return nil, err
		}
		e.Domain = model.Domain(domain)
		e.Subtype = model.Subtype(subtype)
		e.URL = url.String
		e.RawSource = rawSource.String
		e.Author = author.String
		if err := json.Unmarshal([]byte(entities), &e.Entities); err != nil {
			return nil, fmt.Errorf("decode entities: %w", err)
		}
		if metrics.String != "" {
			if err := json.Unmarshal([]byte(metrics.String), &e.Metrics); err != nil {
				return nil, fmt.Errorf("decode metrics: %w", err)
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
