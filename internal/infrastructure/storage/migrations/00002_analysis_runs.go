package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAnalysisRuns, downAnalysisRuns)
}

// upAnalysisRuns creates the audit table for period scans
func upAnalysisRuns(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE analysis_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			triggered_by TEXT NOT NULL DEFAULT '',
			period_from TEXT NOT NULL,
			period_to TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			analyzed INTEGER NOT NULL DEFAULT 0,
			errored INTEGER NOT NULL DEFAULT 0,
			anomalies INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			error TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX idx_analysis_runs_started ON analysis_runs(started_at DESC)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func downAnalysisRuns(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS analysis_runs`)
	return err
}
