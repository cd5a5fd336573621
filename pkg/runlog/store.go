// Package runlog persists run results for downstream collaborators and for
// topic context in later runs.
package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gonzobot/gonzo/pkg/interrogate"
)

// Store persists completed runs.
type Store interface {
	SaveRun(result *interrogate.RunResult) error
	RecentRuns(limit int) ([]interrogate.RunResult, error)
	// RecentTopics lists topics from the most recent runs, newest first, so
	// the external planner can avoid immediate repetition.
	RecentTopics(limit int) ([]string, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed run store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize run schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			attempted INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			transcripts TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes one run. Transcripts are stored as a JSON document; they are
// read back whole, never queried field-by-field.
func (s *SQLiteStore) SaveRun(result *interrogate.RunResult) error {
	transcriptsJSON, err := json.Marshal(result.Transcripts)
	if err != nil {
		return fmt.Errorf("failed to marshal transcripts: %w", err)
	}
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (run_id, timestamp, attempted, completed, transcripts)
		VALUES (?, ?, ?, ?, ?)
	`, result.RunID, ts, result.AttemptedCount, result.CompletedCount, string(transcriptsJSON))
	return err
}

// RecentRuns returns the most recent runs, newest first.
func (s *SQLiteStore) RecentRuns(limit int) ([]interrogate.RunResult, error) {
	rows, err := s.db.Query(`
		SELECT run_id, timestamp, attempted, completed, transcripts
		FROM runs
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []interrogate.RunResult
	for rows.Next() {
		var r interrogate.RunResult
		var transcriptsJSON string
		if err := rows.Scan(&r.RunID, &r.Timestamp, &r.AttemptedCount, &r.CompletedCount, &transcriptsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(transcriptsJSON), &r.Transcripts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcripts for run %s: %w", r.RunID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RecentTopics returns topics from recent runs, newest run first.
func (s *SQLiteStore) RecentTopics(limit int) ([]string, error) {
	runs, err := s.RecentRuns(limit)
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, run := range runs {
		for _, transcript := range run.Transcripts {
			if transcript.Topic != "" {
				topics = append(topics, transcript.Topic)
			}
		}
	}
	return topics, nil
}

// InMemoryStore implements Store in memory (for testing).
type InMemoryStore struct {
	runs []interrogate.RunResult
}

// NewInMemoryStore creates an in-memory run store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveRun appends a run.
func (s *InMemoryStore) SaveRun(result *interrogate.RunResult) error {
	s.runs = append(s.runs, *result)
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *InMemoryStore) RecentRuns(limit int) ([]interrogate.RunResult, error) {
	n := len(s.runs)
	if limit > n {
		limit = n
	}
	results := make([]interrogate.RunResult, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		results = append(results, s.runs[i])
	}
	return results, nil
}

// RecentTopics returns topics from recent runs, newest run first.
func (s *InMemoryStore) RecentTopics(limit int) ([]string, error) {
	runs, _ := s.RecentRuns(limit)
	var topics []string
	for _, run := range runs {
		for _, transcript := range run.Transcripts {
			if transcript.Topic != "" {
				topics = append(topics, transcript.Topic)
			}
		}
	}
	return topics, nil
}
