package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/erpsync/backend/internal/application/resolver"
	appsync "github.com/erpsync/backend/internal/application/sync"
	"github.com/erpsync/backend/internal/infrastructure/config"
	"github.com/erpsync/backend/internal/infrastructure/logging"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// One-shot bulk import runner. Useful for initial backfills and cron
// driven refreshes without going through the HTTP API.
func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		smart      = flag.Bool("smart", false, "Report entities auto-created during dependency resolution")
		stages     = flag.String("stages", "", "Comma separated stage list (empty = all)")
		pageSize   = flag.Int("page-size", 0, "Override configured page size")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configFile)

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "import")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := platform.NewClient(cfg.Platform, logger)
	res := resolver.New(store, client, logger)
	orch := appsync.NewOrchestrator(store, client, res, cfg.Platform.PageSize, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := appsync.Options{PageSize: *pageSize}
	if *stages != "" {
		opts.Stages = strings.Split(*stages, ",")
	}

	var result *appsync.Result
	if *smart {
		result, err = orch.RunSmartImport(ctx, opts)
	} else {
		result, err = orch.RunFullImport(ctx, opts)
	}

	if result != nil {
		for _, sr := range result.Stages {
			fmt.Printf("%-18s pages=%-4d imported=%-5d updated=%-5d errors=%d\n",
				sr.Stage, sr.Pages, sr.Imported, sr.Updated, sr.Errors)
		}
		fmt.Printf("total: imported=%d updated=%d errors=%d\n",
			result.Imported, result.Updated, result.Errors)
		for kind, count := range result.AutoCreated {
			fmt.Printf("auto-created %s: %d\n", kind, count)
		}
	}

	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}
