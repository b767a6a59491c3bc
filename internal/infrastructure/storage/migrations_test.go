package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedSchemaVersion is the version of the newest migration.
// Update this when adding new migrations.
const expectedSchemaVersion = 2

func TestMigrations_FreshDatabase(t *testing.T) {
	store := openTestStorage(t)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(expectedSchemaVersion), version)

	for _, table := range []string{
		"transactions", "fuel_cards", "gas_stations", "card_assignments",
		"vehicle_refuels", "vehicle_locations", "analysis_results", "analysis_runs",
	} {
		var count int
		err := store.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestMigrations_Idempotency(t *testing.T) {
	path := createTempDB(t)

	store, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(expectedSchemaVersion), version)
}

func TestMigrations_ResultConstraints(t *testing.T) {
	store := openTestStorage(t)

	_, err := store.db.Exec(`INSERT INTO transactions (id, timestamp, quantity) VALUES (1, '2024-05-01T10:00:00.000000000Z', '1')`)
	require.NoError(t, err)

	_, err = store.db.Exec(`
		INSERT INTO analysis_results (transaction_id, analyzed_at, status, confidence, diagnostics, is_anomaly, anomaly_type)
		VALUES (1, '2024-05-01T10:00:00.000000000Z', 'matched', 95, '{}', 1, NULL)`)
	assert.Error(t, err, "anomaly flag without category must be rejected")

	_, err = store.db.Exec(`
		INSERT INTO analysis_results (transaction_id, analyzed_at, status, confidence, diagnostics, is_anomaly, anomaly_type)
		VALUES (1, '2024-05-01T10:00:00.000000000Z', 'matched', 101, '{}', 0, NULL)`)
	assert.Error(t, err, "confidence above 100 must be rejected")
}
