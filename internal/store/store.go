// Package store persists backtest results to SQLite so runs can be compared
// across parameter sweeps.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"multistrat/internal/metrics"
	"multistrat/types"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	start_date  TIMESTAMP NOT NULL,
	end_date    TIMESTAMP NOT NULL,
	method      TEXT NOT NULL,
	summary     TEXT NOT NULL,
	trades      TEXT NOT NULL
);`

// Run is one persisted backtest outcome.
type Run struct {
	ID        string
	CreatedAt time.Time
	StartDate time.Time
	EndDate   time.Time
	Method    string
	Summary   metrics.Summary
	Trades    []types.Trade
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the results database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and returns its id. A missing id gets a fresh uuid.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	trades, err := json.Marshal(run.Trades)
	if err != nil {
		return "", fmt.Errorf("marshal trades: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, start_date, end_date, method, summary, trades)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.StartDate, run.EndDate, run.Method, string(summary), string(trades))
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, start_date, end_date, method, summary, trades
		 FROM runs WHERE id = ?`, id)

	var run Run
	var summary, trades string
	err := row.Scan(&run.ID, &run.CreatedAt, &run.StartDate, &run.EndDate, &run.Method, &summary, &trades)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal([]byte(trades), &run.Trades); err != nil {
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}
	return &run, nil
}

// ListRuns returns all saved runs, newest first, without their trade logs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, start_date, end_date, method, summary
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var summary string
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.StartDate, &run.EndDate, &run.Method, &summary); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
