package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/erpsync/backend/internal/api"
	"github.com/erpsync/backend/internal/application/resolver"
	"github.com/erpsync/backend/internal/application/service"
	appsync "github.com/erpsync/backend/internal/application/sync"
	"github.com/erpsync/backend/internal/infrastructure/config"
	"github.com/erpsync/backend/internal/infrastructure/logging"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
	"github.com/erpsync/backend/internal/webhook"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	// Load .env if present (local development)
	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configFile)

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "server")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := platform.NewClient(cfg.Platform, logger)

	res := resolver.New(store, client, logger)
	orch := appsync.NewOrchestrator(store, client, res, cfg.Platform.PageSize, logger)

	jobs := service.NewJobService(store, client, orch, service.Config{
		PageSize:       cfg.Platform.PageSize,
		InterPageDelay: cfg.Sync.InterPageDelay,
		PageRetryDelay: cfg.Sync.PageRetryDelay,
	}, logger)

	ingestion := webhook.NewIngestion(cfg.Webhook.Secret, orch, logger)
	if cfg.Webhook.Secret == "" {
		logger.Warn("webhook secret not set, signature verification disabled")
	}

	// Clean out terminal jobs past retention on startup
	if deleted, err := jobs.DeleteOldJobs(cfg.Sync.JobRetention); err != nil {
		logger.Warn("failed to prune old jobs", "error", err)
	} else if deleted > 0 {
		logger.Info("pruned old jobs", "deleted", deleted)
	}

	server := api.NewServer(api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, store, jobs, orch, ingestion, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Pause running jobs so they can be resumed after restart. Each
	// worker observes the missing handle at its next page boundary.
	if active, err := jobs.ListActive(""); err == nil {
		for _, job := range active {
			if job.Status == storage.JobStatusRunning {
				if err := jobs.Pause(job.ID); err != nil {
					logger.Warn("failed to pause job during shutdown", "job_id", job.ID, "error", err)
				}
			}
		}
	}
	jobs.Wait()
}
