package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/fuelrecon/internal/api"
	"github.com/fleetops/fuelrecon/internal/application/service"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

func newServeCmd(global *GlobalFlags) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunServe(global, flags)
		},
	}
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 0, "Port to listen on (default from config)")
	return cmd
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(global *GlobalFlags, flags *ServeFlags) error {
	e, err := openEnv(global, "api")
	if err != nil {
		return err
	}
	defer e.Close()
	logger := e.logger

	scans := service.NewScanService(e.engine, e.store, logger,
		service.WithDefaultParams(e.params()),
		service.WithMaxDuration(e.cfg.Scans.MaxDuration()),
	)
	scans.StartBackgroundCleanup(time.Hour)
	defer scans.StopBackgroundCleanup()

	apiCfg := api.Config{
		Port:           e.cfg.API.Port,
		AllowedOrigins: e.cfg.API.AllowedOrigins,
		Params:         e.params(),
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}

	server := api.NewServer(apiCfg, e.store, e.engine, scans, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}

		// Scans must record their runs before the deferred store close
		if err := scans.Shutdown(ctx); err != nil {
			logger.Error("scan shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
