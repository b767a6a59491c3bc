// Package cli wires the fuelrecon commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/domain/vehicle"
	"github.com/fleetops/fuelrecon/internal/infrastructure/config"
	"github.com/fleetops/fuelrecon/internal/infrastructure/logging"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// NewRootCmd builds the fuelrecon command tree
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:           "fuelrecon",
		Short:         "Reconcile fuel-card transactions against vehicle telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "Configuration file path (falls back to environment variables)")
	pf.StringVar(&flags.DatabasePath, "db", "", "SQLite database path")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&flags.JSONLogs, "json-logs", false, "Log as JSON instead of text")
	pf.IntVar(&flags.TimeWindowMinutes, "time-window", 0, "Refuel match window in minutes either side (default 30)")
	pf.Float64Var(&flags.QuantityTolerance, "quantity-tolerance", 0, "Quantity tolerance in percent (default 5)")
	pf.Float64Var(&flags.RadiusMeters, "radius", 0, "Station geofence radius in meters (default 500)")
	pf.IntVar(&flags.LocationWindowSeconds, "location-window", 0, "Telemetry lookup window in seconds (default 300)")
	pf.IntVar(&flags.Workers, "workers", 0, "Concurrent analyses in batch runs")
	pf.StringVar(&flags.VehiclePolicy, "vehicle-policy", "", "Vehicle resolution policy: card or history")

	root.AddCommand(
		newServeCmd(flags),
		newAnalyzeCmd(flags),
		newMigrateCmd(flags),
	)
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// env is the state shared by commands that touch the database
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Storage
	engine *reconcile.Orchestrator
}

// openEnv loads configuration, opens storage and builds the engine
func openEnv(flags *GlobalFlags, system string) (*env, error) {
	cfg := flags.LoadConfig()
	if err := cfg.Reconciliation.Params().Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciliation settings: %w", err)
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, system)

	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Storage.DatabasePath, err)
	}

	resolver, err := vehicle.ParsePolicy(cfg.Reconciliation.VehiclePolicy, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := reconcile.NewOrchestrator(store, logger,
		reconcile.WithVehicleResolver(resolver),
		reconcile.WithWorkers(cfg.Reconciliation.Workers),
	)

	return &env{cfg: cfg, logger: logger, store: store, engine: engine}, nil
}

func (e *env) params() reconcile.Params {
	return e.cfg.Reconciliation.Params()
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close database", slog.Any("error", err))
	}
}
