// Package sync runs ordered bulk import/export between the local ERP
// tables and the remote storefront.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erpsync/backend/internal/application/resolver"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// Store is the persistence surface the orchestrator needs
type Store interface {
	storage.EntityRepository
	storage.SyncLogRepository
}

// Orchestrator sequences bulk operations across entity types
type Orchestrator struct {
	store    Store
	api      platform.API
	resolver *resolver.Resolver
	logger   *slog.Logger
	pageSize int
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(store Store, api platform.API, res *resolver.Resolver, pageSize int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Orchestrator{
		store:    store,
		api:      api,
		resolver: res,
		logger:   logger,
		pageSize: pageSize,
	}
}

// RunFullImport walks every stage in dependency order: categories,
// shipping classes, customers, products, orders. A single record's
// failure is logged and counted but never aborts the batch; a
// stage-level fetch failure aborts that stage and skips the rest.
func (o *Orchestrator) RunFullImport(ctx context.Context, opts Options) (*Result, error) {
	return o.runImport(ctx, opts, false)
}

// RunSmartImport is RunFullImport plus counts of entities auto-created
// as side effects of dependency resolution.
func (o *Orchestrator) RunSmartImport(ctx context.Context, opts Options) (*Result, error) {
	return o.runImport(ctx, opts, true)
}

func (o *Orchestrator) runImport(ctx context.Context, opts Options, trackCreated bool) (*Result, error) {
	result := &Result{}

	// Counting runs against a run-local resolver view so a concurrent
	// job worker or webhook never writes into this run's map.
	run := o
	if trackCreated {
		result.AutoCreated = make(map[string]int)
		view := *o
		view.resolver = o.resolver.WithObserver(func(kind resolver.Kind, _ int64, _ bool) {
			result.AutoCreated[string(kind)]++
		})
		run = &view
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = o.pageSize
	}

	stages := opts.Stages
	if len(stages) == 0 {
		stages = StageOrder
	}

	for _, stage := range stages {
		o.logger.Info("starting import stage", "stage", stage)

		sr, err := run.runStage(ctx, stage, pageSize)
		if sr != nil {
			result.addStage(sr)
		}
		if err != nil {
			// Authentication rejections and exhausted retries land here;
			// later stages would hit the same wall, so skip them.
			result.FailedStage = stage
			o.logger.Error("import stage failed", "stage", stage, "error", err)
			return result, fmt.Errorf("stage %s: %w", stage, err)
		}

		o.logger.Info("import stage finished",
			"stage", stage,
			"pages", sr.Pages,
			"imported", sr.Imported,
			"updated", sr.Updated,
			"errors", sr.Errors,
		)
	}

	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, pageSize int) (*StageResult, error) {
	switch stage {
	case StageCategories:
		return runStagePages(ctx, stage, pageSize, o.api.ListCategories, o.ImportCategory)
	case StageShippingClasses:
		return runStagePages(ctx, stage, pageSize, o.api.ListShippingClasses, o.ImportShippingClass)
	case StageCustomers:
		return runStagePages(ctx, stage, pageSize, o.api.ListCustomers, o.ImportCustomer)
	case StageProducts:
		return runStagePages(ctx, stage, pageSize, o.api.ListProducts, o.ImportProduct)
	case StageOrders:
		return runStagePages(ctx, stage, pageSize, o.api.ListOrders, o.ImportOrder)
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
}

// runStagePages paginates one remote collection and feeds every record
// through the stage's importer, isolating per-record failures.
func runStagePages[T any](
	ctx context.Context,
	stage string,
	pageSize int,
	fetch platform.PageFunc[T],
	importRecord func(ctx context.Context, rec T) (created bool, err error),
) (*StageResult, error) {
	sr := &StageResult{Stage: stage}
	pager := platform.NewPaginator(fetch, 1, pageSize)

	for {
		items, ok, err := pager.Next(ctx)
		if err != nil {
			return sr, err
		}
		if !ok {
			return sr, nil
		}
		sr.Pages++

		for _, rec := range items {
			created, err := importRecord(ctx, rec)
			if err != nil {
				sr.Errors++
				if len(sr.Messages) < 20 {
					sr.Messages = append(sr.Messages, err.Error())
				}
				continue
			}
			if created {
				sr.Imported++
			} else {
				sr.Updated++
			}
		}
	}
}
