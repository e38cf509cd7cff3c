package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID          string
	GeneratedAt    time.Time
	WindowStart    time.Time
	WindowEnd      time.Time
	TotalEvents    int
	NarrativeCount int
	TopLabel       string
	TopComposite   float64
}

// LabelRank is one run's placement of a narrative label.
type LabelRank struct {
	RunID       string
	GeneratedAt time.Time
	Rank        int
	Composite   float64
}

// SaveReport stores a report and its narrative ranking in one transaction.
// Saving a run id twice replaces the earlier report.
// Thread-safe: acquires write lock.
func (s *Store) SaveReport(r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_narratives WHERE run_id = ?", r.RunID); err != nil {
		return fmt.Errorf("clear narratives: %w", err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (
			run_id, generated_at, window_start, window_end, baseline_start,
			total_events, narrative_count, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.GeneratedAt.UTC(),
		r.WindowStart.UTC(),
		r.WindowEnd.UTC(),
		r.BaselineStart.UTC(),
		r.Metadata.TotalEvents,
		len(r.Narratives),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_narratives (
			run_id, rank, narrative_id, label, composite, confidence, event_count
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range r.Narratives {
		if _, err := stmt.Exec(r.RunID, n.Rank, n.NarrativeID, n.Label, n.Score.Composite, n.Confidence, n.EventCount); err != nil {
			return fmt.Errorf("insert narrative %d: %w", n.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Report loads the report of one run. It returns ErrNotFound for an
// unknown run id.
func (s *Store) Report(runID string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReport("SELECT report_json FROM runs WHERE run_id = ?", runID)
}

// LatestReport loads the most recently generated report, or ErrNotFound
// when no run has been saved.
func (s *Store) LatestReport() (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReport("SELECT report_json FROM runs ORDER BY generated_at DESC LIMIT 1")
}

// Caller must hold s.mu.
func (s *Store) queryReport(query string, args ...any) (*model.Report, error) {
	var data string
	err := s.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r model.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Runs lists up to limit runs, newest first, with their top narrative.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT r.run_id, r.generated_at, r.window_start, r.window_end,
			r.total_events, r.narrative_count,
			COALESCE(n.label, ''), COALESCE(n.composite, 0)
		FROM runs r
		LEFT JOIN run_narratives n ON n.run_id = r.run_id AND n.rank = 1
		ORDER BY r.generated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.GeneratedAt, &r.WindowStart, &r.WindowEnd,
			&r.TotalEvents, &r.NarrativeCount, &r.TopLabel, &r.TopComposite); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LabelHistory returns how a narrative label ranked across past runs,
// newest first.
func (s *Store) LabelHistory(label string, limit int) ([]LabelRank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT n.run_id, r.generated_at, n.rank, n.composite
		FROM run_narratives n
		JOIN runs r ON r.run_id = n.run_id
		WHERE n.label = ?
		ORDER BY r.generated_at DESC
		LIMIT ?
	`, label, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LabelRank
	for rows.Next() {
		var lr LabelRank
		if err := rows.Scan(&lr.RunID, &lr.GeneratedAt, &lr.Rank, &lr.Composite); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
