package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StageStatus tracks the lifecycle of one stage within a run.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
)

// StageRecord is one persisted stage entry.
type StageRecord struct {
	RunID       string
	StageKey    string
	Status      StageStatus
	Outputs     []string
	ErrorText   string
	CompletedAt *time.Time
}

// RunRecord summarizes one run row.
type RunRecord struct {
	RunID     string
	Source    string
	Base      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages manifest persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    source     TEXT NOT NULL,
    base_name  TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stage_records (
    run_id       TEXT NOT NULL,
    stage_key    TEXT NOT NULL,
    status       TEXT NOT NULL,
    outputs_json TEXT NOT NULL DEFAULT '[]',
    error_text   TEXT NOT NULL DEFAULT '',
    completed_at TEXT,
    PRIMARY KEY (run_id, stage_key)
);
`

// Open initializes or connects to the manifest database inside dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "manifest.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string { return s.path }

// UpsertRun records the run row, refreshing source/base and updated_at.
func (s *Store) UpsertRun(ctx context.Context, runID, source, base string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, base_name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET
            source = excluded.source,
            base_name = CASE WHEN excluded.base_name != '' THEN excluded.base_name ELSE runs.base_name END,
            updated_at = excluded.updated_at`,
		runID, source, base, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// StartStage marks a stage pending before execution.
func (s *Store) StartStage(ctx context.Context, runID, stageKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_records (run_id, stage_key, status, outputs_json, error_text, completed_at)
         VALUES (?, ?, ?, '[]', '', NULL)
         ON CONFLICT(run_id, stage_key) DO UPDATE SET
            status = excluded.status,
            error_text = '',
            completed_at = NULL`,
		runID, stageKey, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("start stage %q: %w", stageKey, err)
	}
	return nil
}

// CompleteStage marks a stage completed and records its outputs.
func (s *Store) CompleteStage(ctx context.Context, runID, stageKey string, outputs []string) error {
	payload, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stage_records (run_id, stage_key, status, outputs_json, error_text, completed_at)
         VALUES (?, ?, ?, ?, '', ?)
         ON CONFLICT(run_id, stage_key) DO UPDATE SET
            status = excluded.status,
            outputs_json = excluded.outputs_json,
            error_text = '',
            completed_at = excluded.completed_at`,
		runID, stageKey, StatusCompleted, string(payload), now,
	)
	if err != nil {
		return fmt.Errorf("complete stage %q: %w", stageKey, err)
	}
	return nil
}

// FailStage marks a stage failed with the surfaced error text.
func (s *Store) FailStage(ctx context.Context, runID, stageKey, errorText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_records (run_id, stage_key, status, outputs_json, error_text, completed_at)
         VALUES (?, ?, ?, '[]', ?, NULL)
         ON CONFLICT(run_id, stage_key) DO UPDATE SET
            status = excluded.status,
            error_text = excluded.error_text,
            completed_at = NULL`,
		runID, stageKey, StatusFailed, errorText,
	)
	if err != nil {
		return fmt.Errorf("fail stage %q: %w", stageKey, err)
	}
	return nil
}

// Stage fetches one stage record; returns nil when no record exists.
func (s *Store) Stage(ctx context.Context, runID, stageKey string) (*StageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, stage_key, status, outputs_json, error_text, completed_at
         FROM stage_records WHERE run_id = ? AND stage_key = ?`,
		runID, stageKey,
	)
	record, err := scanStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// Completed reports whether a stage record exists and is marked completed.
func (s *Store) Completed(ctx context.Context, runID, stageKey string) (bool, error) {
	record, err := s.Stage(ctx, runID, stageKey)
	if err != nil {
		return false, err
	}
	return record != nil && record.Status == StatusCompleted, nil
}

// StagesForRun lists all stage records of one run in key order.
func (s *Store) StagesForRun(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage_key, status, outputs_json, error_text, completed_at
         FROM stage_records WHERE run_id = ? ORDER BY stage_key`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		record, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Run fetches one run record; returns nil when absent.
func (s *Store) Run(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, source, base_name, created_at, updated_at FROM runs WHERE run_id = ?`,
		runID,
	)
	var record RunRecord
	var created, updated string
	err := row.Scan(&record.RunID, &record.Source, &record.Base, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(scanner rowScanner) (*StageRecord, error) {
	var record StageRecord
	var outputsJSON string
	var completedAt sql.NullString
	if err := scanner.Scan(&record.RunID, &record.StageKey, &record.Status, &outputsJSON, &record.ErrorText, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(outputsJSON), &record.Outputs); err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}
	if completedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			record.CompletedAt = &ts
		}
	}
	return &record, nil
}
