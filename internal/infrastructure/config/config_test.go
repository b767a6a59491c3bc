package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "recon.db"
reconciliation:
  time_window_minutes: 45
  quantity_tolerance_percent: 7.5
  azs_radius_meters: 300
  location_lookup_window_seconds: 120
  workers: 8
  vehicle_policy: history
api:
  port: 9000
  allowed_origins: ["http://localhost:3000"]
scans:
  max_duration_minutes: 15
observability:
  logging:
    level: debug
    format: json
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "recon.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 8, cfg.Reconciliation.Workers)
	assert.Equal(t, "history", cfg.Reconciliation.VehiclePolicy)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Scans.MaxDuration())
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)

	params := cfg.Reconciliation.Params()
	assert.Equal(t, 45*time.Minute, params.TimeWindow)
	assert.Equal(t, 7.5, params.QuantityTolerancePercent)
	assert.Equal(t, 300.0, params.StationRadiusMeters)
	assert.Equal(t, 2*time.Minute, params.LocationLookupWindow)
	assert.NoError(t, params.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "storage:\n  database_path: only.db\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.API.Port)
	assert.Equal(t, []string{"*"}, cfg.API.AllowedOrigins)
	assert.Equal(t, reconcile.DefaultWorkers, cfg.Reconciliation.Workers)
	assert.Equal(t, "card", cfg.Reconciliation.VehiclePolicy)
	assert.Equal(t, time.Duration(0), cfg.Scans.MaxDuration())
	assert.Equal(t, reconcile.DefaultParams(), cfg.Reconciliation.Params())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FUELRECON_DB_PATH", "test.db")
	t.Setenv("RECON_TIME_WINDOW_MINUTES", "10")
	t.Setenv("RECON_AZS_RADIUS_METERS", "250.5")
	t.Setenv("RECON_WORKERS", "2")
	t.Setenv("FUELRECON_ALLOWED_ORIGINS", "http://a.example, http://b.example,")

	cfg := LoadFromEnv()

	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 2, cfg.Reconciliation.Workers)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.API.AllowedOrigins)
	params := cfg.Reconciliation.Params()
	assert.Equal(t, 10*time.Minute, params.TimeWindow)
	assert.Equal(t, 250.5, params.StationRadiusMeters)
}

func TestParams_NegativeValuesRejected(t *testing.T) {
	path := writeConfig(t, `
reconciliation:
  azs_radius_meters: -100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -100.0, cfg.Reconciliation.Params().StationRadiusMeters)
	assert.ErrorIs(t, cfg.Reconciliation.Params().Validate(), reconcile.ErrInvalidRange)

	t.Setenv("RECON_TIME_WINDOW_MINUTES", "-5")
	assert.ErrorIs(t, LoadFromEnv().Reconciliation.Params().Validate(), reconcile.ErrInvalidRange)

	t.Setenv("RECON_TIME_WINDOW_MINUTES", "")
	t.Setenv("RECON_QUANTITY_TOLERANCE_PERCENT", "-2.5")
	assert.ErrorIs(t, LoadFromEnv().Reconciliation.Params().Validate(), reconcile.ErrInvalidRange)

	// zero still means unset
	zero := ReconciliationConfig{}
	assert.Equal(t, reconcile.DefaultParams(), zero.Params())
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("FUELRECON_DB_PATH", "")
	t.Setenv("RECON_WORKERS", "not-a-number")

	cfg := LoadFromEnv()

	assert.Equal(t, DefaultDatabasePath, cfg.Storage.DatabasePath)
	assert.Equal(t, reconcile.DefaultWorkers, cfg.Reconciliation.Workers)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("FUELRECON_DB_PATH", "fallback.db")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "nonexistent.yaml"))

	require.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
}
