package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// StartRun records the start of a period scan
func (s *Storage) StartRun(ctx context.Context, from, to time.Time, trigger string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (triggered_by, period_from, period_to, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, trigger, formatTime(from), formatTime(to), formatTime(time.Now()), string(RunStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	return result.LastInsertId()
}

// CompleteRun records the outcome of a period scan
func (s *Storage) CompleteRun(ctx context.Context, runID int64, stats *fleet.PeriodStats) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET completed_at = ?,
		    total = ?,
		    analyzed = ?,
		    errored = ?,
		    anomalies = ?,
		    status = ?
		WHERE id = ?
	`,
		formatTime(time.Now()),
		stats.Total,
		stats.Analyzed,
		stats.Errored,
		anomalyCount(stats),
		string(RunStatusFor(stats)),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %d: %w", runID, err)
	}
	return nil
}

// FailRun marks a run that aborted before producing stats
func (s *Storage) FailRun(ctx context.Context, runID int64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET completed_at = ?, status = ?, error = ?
		WHERE id = ?
	`, formatTime(time.Now()), string(RunStatusFailed), reason, runID)
	if err != nil {
		return fmt.Errorf("failed to mark run %d as failed: %w", runID, err)
	}
	return nil
}

const runColumns = `id, triggered_by, period_from, period_to, started_at, completed_at,
	total, analyzed, errored, anomalies, status, error`

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                           Run
		periodFrom, periodTo, started string
		completed                     sql.NullString
		status                        string
	)
	err := row.Scan(&run.ID, &run.Trigger, &periodFrom, &periodTo, &started, &completed,
		&run.Total, &run.Analyzed, &run.Errored, &run.Anomalies, &status, &run.Error)
	if err != nil {
		return nil, err
	}

	if run.PeriodFrom, err = parseTime(periodFrom); err != nil {
		return nil, err
	}
	if run.PeriodTo, err = parseTime(periodTo); err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	run.Status = RunStatus(status)
	return &run, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		clampLimit(limit, defaultRunLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, runID int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, runID))
	if err != nil {
		return nil, notFound(err, "run", runID)
	}
	return run, nil
}
