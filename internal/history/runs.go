package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunRecord is the persisted state of one batch run
type RunRecord struct {
	RunID        string     `json:"run_id"`
	Status       string     `json:"status"`
	ZipPath      string     `json:"zip_path,omitempty"`
	Error        string     `json:"error,omitempty"`
	VerdictCount int        `json:"verdict_count"`
	PassCount    int        `json:"pass_count"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RecordRunStart marks a run as running and tracks how often the same CSV
// payload has been submitted.
func (s *Store) RecordRunStart(ctx context.Context, runID string, req batch.RunRequest) error {
	query := `
		INSERT INTO batch_runs (run_id, status)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET status = $2, error = NULL, finished_at = NULL
	`
	if _, err := s.db.ExecContext(ctx, query, runID, RunStatusRunning); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	hash := sha256.Sum256([]byte(req.CSVContent))
	seen, err := s.recordSubmission(ctx, hex.EncodeToString(hash[:]))
	if err != nil {
		return err
	}
	if seen > 1 {
		log.Printf("[%s] CSV payload seen %d times before", runID, seen-1)
	}
	return nil
}

func (s *Store) recordSubmission(ctx context.Context, csvHash string) (int, error) {
	query := `
		INSERT INTO batch_dedupe (csv_hash)
		VALUES ($1)
		ON CONFLICT (csv_hash) DO UPDATE
		SET seen_count = batch_dedupe.seen_count + 1, last_seen_at = NOW()
		RETURNING seen_count
	`
	var seen int
	if err := s.db.QueryRowContext(ctx, query, csvHash).Scan(&seen); err != nil {
		return 0, fmt.Errorf("failed to record submission: %w", err)
	}
	return seen, nil
}

// RecordRunResult stores the terminal state of a run
func (s *Store) RecordRunResult(ctx context.Context, runID string, outcome *batch.Outcome) error {
	status := RunStatusFailed
	if outcome.Success {
		status = RunStatusSucceeded
	}
	passCount := 0
	for _, v := range outcome.Verdicts {
		if v.Passed() {
			passCount++
		}
	}
	query := `
		UPDATE batch_runs
		SET status = $2,
		    zip_path = NULLIF($3, ''),
		    error = NULLIF($4, ''),
		    verdict_count = $5,
		    pass_count = $6,
		    finished_at = NOW()
		WHERE run_id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, runID, status,
		outcome.ZipPath, outcome.Error, len(outcome.Verdicts), passCount); err != nil {
		return fmt.Errorf("failed to record run result: %w", err)
	}
	return nil
}

// GetRun returns the persisted state of one run
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT run_id, status, COALESCE(zip_path, ''), COALESCE(error, ''),
		       verdict_count, pass_count, created_at, finished_at
		FROM batch_runs
		WHERE run_id = $1
	`
	var rec RunRecord
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&rec.RunID, &rec.Status, &rec.ZipPath, &rec.Error,
		&rec.VerdictCount, &rec.PassCount, &rec.CreatedAt, &rec.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// ListRuns returns recent runs newest first
func (s *Store) ListRuns(ctx context.Context, limit int64) ([]RunRecord, error) {
	query := `
		SELECT run_id, status, COALESCE(zip_path, ''), COALESCE(error, ''),
		       verdict_count, pass_count, created_at, finished_at
		FROM batch_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Status, &rec.ZipPath, &rec.Error,
			&rec.VerdictCount, &rec.PassCount, &rec.CreatedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
