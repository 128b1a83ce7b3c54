// Package api exposes the sync engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erpsync/backend/internal/api/handlers"
	"github.com/erpsync/backend/internal/api/middleware"
	"github.com/erpsync/backend/internal/application/service"
	appsync "github.com/erpsync/backend/internal/application/sync"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/webhook"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	jobs       *service.JobService
	orch       *appsync.Orchestrator
	ingestion  *webhook.Ingestion
}

// NewServer creates a new API server.
// If jobs is nil the job control endpoints are not mounted; likewise for
// orch (bulk import/export) and ingestion (webhooks).
func NewServer(cfg Config, repo storage.Repository, jobs *service.JobService, orch *appsync.Orchestrator, ingestion *webhook.Ingestion, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    logger,
		repo:      repo,
		jobs:      jobs,
		orch:      orch,
		ingestion: ingestion,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Signature"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Sync ledger
		logsHandler := handlers.NewLogsHandler(s.repo)
		r.Get("/logs", logsHandler.List)

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		// Paginated sync jobs
		if s.jobs != nil {
			jobsHandler := handlers.NewJobsHandler(s.jobs)
			r.Post("/jobs", jobsHandler.Start)
			r.Get("/jobs", jobsHandler.List)
			r.Get("/jobs/active", jobsHandler.ListActive)
			r.Get("/jobs/resumable", jobsHandler.ListResumable)
			r.Get("/jobs/{jobID}", jobsHandler.Get)
			r.Post("/jobs/{jobID}/pause", jobsHandler.Pause)
			r.Post("/jobs/{jobID}/cancel", jobsHandler.Cancel)
			r.Post("/jobs/{jobID}/resume", jobsHandler.Resume)
			r.Delete("/jobs/old", jobsHandler.DeleteOld)
		}

		// Bulk import and export
		if s.orch != nil {
			importsHandler := handlers.NewImportsHandler(s.orch)
			r.Post("/import/full", importsHandler.Full)
			r.Post("/import/smart", importsHandler.Smart)

			exportsHandler := handlers.NewExportsHandler(s.orch)
			r.Post("/export/products", exportsHandler.Product)
			r.Post("/export/orders", exportsHandler.OrderStatus)
		}

		// Platform webhooks
		if s.ingestion != nil {
			webhooksHandler := handlers.NewWebhooksHandler(s.ingestion)
			r.Post("/webhooks/orders", webhooksHandler.Orders)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
