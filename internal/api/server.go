package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fleetops/fuelrecon/internal/api/handlers"
	"github.com/fleetops/fuelrecon/internal/api/middleware"
	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	Params         reconcile.Params // Defaults for requests without overrides
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Params:         reconcile.DefaultParams(),
	}
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	repo        storage.Repository
	analyzer    handlers.Analyzer
	scanService *service.ScanService
}

// NewServer creates a new API server.
// If scanService is nil, scan endpoints will not be available.
func NewServer(cfg Config, repo storage.Repository, analyzer handlers.Analyzer, scanService *service.ScanService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Params == (reconcile.Params{}) {
		cfg.Params = reconcile.DefaultParams()
	}

	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		logger:      logger,
		repo:        repo,
		analyzer:    analyzer,
		scanService: scanService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)

	// CORS
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(chimw.Recoverer)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.repo, s.logger)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Stored results
		resultsHandler := handlers.NewResultsHandler(s.repo, s.logger)
		r.Get("/results", resultsHandler.List)
		r.Get("/results/summary", resultsHandler.Summary)
		r.Get("/results/{transactionID}", resultsHandler.Get)

		// On-demand analysis
		if s.analyzer != nil {
			analysisHandler := handlers.NewAnalysisHandler(s.analyzer, s.config.Params, s.logger)
			r.Post("/analysis/transactions/{transactionID}", analysisHandler.Transaction)
			r.Post("/analysis/cards/{cardID}", analysisHandler.Card)
			r.Post("/analysis/period", analysisHandler.Period)
		}

		// Background scans
		if s.scanService != nil {
			scansHandler := handlers.NewScansHandler(s.scanService, s.config.Params, s.logger)
			r.Post("/scans", scansHandler.Start)
			r.Get("/scans", scansHandler.List)
			r.Get("/scans/{jobID}", scansHandler.Get)
			r.Delete("/scans/{jobID}", scansHandler.Cancel)
		}

		// Scan run history
		runsHandler := handlers.NewRunsHandler(s.repo, s.logger)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous period analyses
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
