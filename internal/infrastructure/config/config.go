// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	params := cfg.Reconciliation.Params()
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/domain/vehicle"
)

// Config represents the entire application configuration
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	API            APIConfig            `yaml:"api"`
	Scans          ScansConfig          `yaml:"scans"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconciliationConfig holds the default analysis parameters
type ReconciliationConfig struct {
	TimeWindowMinutes           int     `yaml:"time_window_minutes"`
	QuantityTolerancePercent    float64 `yaml:"quantity_tolerance_percent"`
	AZSRadiusMeters             float64 `yaml:"azs_radius_meters"`
	LocationLookupWindowSeconds int     `yaml:"location_lookup_window_seconds"`
	Workers                     int     `yaml:"workers"`
	VehiclePolicy               string  `yaml:"vehicle_policy"` // "card" or "history"
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ScansConfig holds background scan settings
type ScansConfig struct {
	MaxDurationMinutes int `yaml:"max_duration_minutes"` // 0 = unlimited
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (Maven-style) or "json"
}

// Defaults used when neither the file nor the environment set a value
const (
	DefaultDatabasePath = "fuelrecon.db"
	DefaultPort         = 8085
)

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${FUELRECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("FUELRECON_DB_PATH", DefaultDatabasePath),
		},
		Reconciliation: ReconciliationConfig{
			TimeWindowMinutes:           getEnvInt("RECON_TIME_WINDOW_MINUTES", 0),
			QuantityTolerancePercent:    getEnvFloat("RECON_QUANTITY_TOLERANCE_PERCENT", 0),
			AZSRadiusMeters:             getEnvFloat("RECON_AZS_RADIUS_METERS", 0),
			LocationLookupWindowSeconds: getEnvInt("RECON_LOCATION_WINDOW_SECONDS", 0),
			Workers:                     getEnvInt("RECON_WORKERS", 0),
			VehiclePolicy:               getEnv("RECON_VEHICLE_POLICY", ""),
		},
		API: APIConfig{
			Port:           getEnvInt("FUELRECON_PORT", DefaultPort),
			AllowedOrigins: splitList(os.Getenv("FUELRECON_ALLOWED_ORIGINS")),
		},
		Scans: ScansConfig{
			MaxDurationMinutes: getEnvInt("SCAN_MAX_DURATION_MINUTES", 0),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath
	}
	if c.API.Port == 0 {
		c.API.Port = DefaultPort
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}
	if c.Reconciliation.Workers <= 0 {
		c.Reconciliation.Workers = reconcile.DefaultWorkers
	}
	if c.Reconciliation.VehiclePolicy == "" {
		c.Reconciliation.VehiclePolicy = vehicle.PolicyCard
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// Params converts the section into analysis parameters. Zero means unset and
// keeps the documented default; any other value is passed through for
// Params.Validate to judge.
func (r ReconciliationConfig) Params() reconcile.Params {
	p := reconcile.DefaultParams()
	if r.TimeWindowMinutes != 0 {
		p.TimeWindow = time.Duration(r.TimeWindowMinutes) * time.Minute
	}
	if r.QuantityTolerancePercent != 0 {
		p.QuantityTolerancePercent = r.QuantityTolerancePercent
	}
	if r.AZSRadiusMeters != 0 {
		p.StationRadiusMeters = r.AZSRadiusMeters
	}
	if r.LocationLookupWindowSeconds != 0 {
		p.LocationLookupWindow = time.Duration(r.LocationLookupWindowSeconds) * time.Second
	}
	return p
}

// MaxDuration returns the soft scan deadline, zero when unlimited
func (s ScansConfig) MaxDuration() time.Duration {
	if s.MaxDurationMinutes <= 0 {
		return 0
	}
	return time.Duration(s.MaxDurationMinutes) * time.Minute
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
