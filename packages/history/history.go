// Package history persists run results to a SQLite database when the
// driver is invoked with --history-db.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/sanderbog/testwave/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	input_count INTEGER NOT NULL,
	error_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	path        TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// Run is a persisted run record.
type Run struct {
	ID         string
	StartedAt  time.Time
	InputCount int
	ErrorCount int
}

// Store wraps the history database.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history db: %w", err)
	}

	return &Store{db: db, timeout: 30 * time.Second}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores one pass over the input list and returns the run id.
func (s *Store) RecordRun(startedAt time.Time, res *runner.Result) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_count, error_count) VALUES (?, ?, ?, ?)`,
		id, startedAt.UTC(), res.InputCount, res.ErrorCount)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}

	for _, o := range res.Outcomes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (run_id, path, passed, duration_ms) VALUES (?, ?, ?, ?)`,
			id, o.Path, o.Passed, o.Duration.Milliseconds())
		if err != nil {
			return "", fmt.Errorf("recording result for %s: %w", o.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// LastRuns returns up to n most recent runs, newest first.
func (s *Store) LastRuns(n int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, input_count, error_count FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.InputCount, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return runs, nil
}

// RunResults returns the per-file results of a run, in dispatch order.
func (s *Store) RunResults(runID string) ([]runner.Outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, passed, duration_ms FROM results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var outcomes []runner.Outcome
	for rows.Next() {
		var o runner.Outcome
		var passed int
		var ms int64
		if err := rows.Scan(&o.Path, &passed, &ms); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		o.Passed = passed != 0
		o.Duration = time.Duration(ms) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	return outcomes, nil
}
