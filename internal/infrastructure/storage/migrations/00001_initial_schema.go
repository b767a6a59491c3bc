// Package migrations holds the goose migrations of the reconciliation store.
// Each file registers itself in init; the file name carries the version.
package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitialSchema, downInitialSchema)
}

// upInitialSchema creates the feed tables read by the engine and the
// analysis_results table it owns
func upInitialSchema(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE fuel_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			number TEXT NOT NULL UNIQUE,
			vehicle_id INTEGER
		)`,

		`CREATE TABLE gas_stations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL
		)`,

		`CREATE TABLE card_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			card_id INTEGER NOT NULL REFERENCES fuel_cards(id) ON DELETE CASCADE,
			vehicle_id INTEGER NOT NULL,
			valid_from TEXT NOT NULL,
			valid_to TEXT
		)`,

		`CREATE INDEX idx_card_assignments_card ON card_assignments(card_id, valid_from)`,

		`CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			card_number TEXT NOT NULL DEFAULT '',
			fuel_type TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL,
			station_id INTEGER,
			vehicle_id INTEGER,
			organization_id INTEGER
		)`,

		`CREATE INDEX idx_transactions_timestamp ON transactions(timestamp)`,
		`CREATE INDEX idx_transactions_card ON transactions(card_number, timestamp)`,

		`CREATE TABLE vehicle_refuels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vehicle_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			fuel_type TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL,
			source_system TEXT NOT NULL DEFAULT '',
			source_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX idx_vehicle_refuels_vehicle_time ON vehicle_refuels(vehicle_id, timestamp)`,

		`CREATE TABLE vehicle_locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vehicle_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			accuracy REAL,
			speed REAL,
			heading REAL,
			source_system TEXT NOT NULL DEFAULT '',
			source_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX idx_vehicle_locations_vehicle_time ON vehicle_locations(vehicle_id, timestamp)`,

		`CREATE TABLE analysis_results (
			transaction_id INTEGER PRIMARY KEY REFERENCES transactions(id) ON DELETE CASCADE,
			refuel_id INTEGER,
			fuel_card_id INTEGER,
			vehicle_id INTEGER,
			analyzed_at TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
			distance_meters REAL,
			time_diff_seconds INTEGER,
			quantity_diff TEXT,
			diagnostics TEXT NOT NULL,
			is_anomaly INTEGER NOT NULL DEFAULT 0,
			anomaly_type TEXT,
			CHECK ((is_anomaly = 1) = (anomaly_type IS NOT NULL))
		)`,

		`CREATE INDEX idx_analysis_results_status ON analysis_results(status)`,
		`CREATE INDEX idx_analysis_results_anomaly ON analysis_results(is_anomaly, anomaly_type)`,
		`CREATE INDEX idx_analysis_results_vehicle ON analysis_results(vehicle_id)`,
		`CREATE INDEX idx_analysis_results_card ON analysis_results(fuel_card_id)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func downInitialSchema(ctx context.Context, tx *sql.Tx) error {
	tables := []string{
		"analysis_results",
		"vehicle_locations",
		"vehicle_refuels",
		"transactions",
		"card_assignments",
		"gas_stations",
		"fuel_cards",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	return nil
}
