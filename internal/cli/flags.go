package cli

import (
	"github.com/fleetops/fuelrecon/internal/infrastructure/config"
)

// GlobalFlags are common flags for all commands. Zero values leave the
// loaded configuration untouched; negative parameters are passed on and
// rejected when the engine is built.
type GlobalFlags struct {
	ConfigPath            string
	DatabasePath          string
	Verbose               bool
	JSONLogs              bool
	TimeWindowMinutes     int
	QuantityTolerance     float64
	RadiusMeters          float64
	LocationWindowSeconds int
	Workers               int
	VehiclePolicy         string
}

// LoadConfig loads the config file (or the environment) and applies the
// flag overrides on top
func (f *GlobalFlags) LoadConfig() *config.Config {
	cfg := config.LoadOrEnvWithPath(f.ConfigPath)
	f.ApplyTo(cfg)
	return cfg
}

// ApplyTo overrides cfg with every flag that was set
func (f *GlobalFlags) ApplyTo(cfg *config.Config) {
	if f.DatabasePath != "" {
		cfg.Storage.DatabasePath = f.DatabasePath
	}
	if f.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	if f.JSONLogs {
		cfg.Observability.Logging.Format = "json"
	}

	rc := &cfg.Reconciliation
	if f.TimeWindowMinutes != 0 {
		rc.TimeWindowMinutes = f.TimeWindowMinutes
	}
	if f.QuantityTolerance != 0 {
		rc.QuantityTolerancePercent = f.QuantityTolerance
	}
	if f.RadiusMeters != 0 {
		rc.AZSRadiusMeters = f.RadiusMeters
	}
	if f.LocationWindowSeconds != 0 {
		rc.LocationLookupWindowSeconds = f.LocationWindowSeconds
	}
	if f.Workers > 0 {
		rc.Workers = f.Workers
	}
	if f.VehiclePolicy != "" {
		rc.VehiclePolicy = f.VehiclePolicy
	}
}
