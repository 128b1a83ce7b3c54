package service

import (
	"context"
	"fmt"
	"time"

	"github.com/erpsync/backend/internal/infrastructure/storage"
)

// runLoop processes a job one page at a time, strictly in increasing
// page order, persisting progress after every page. Pause and cancel
// are observed cooperatively at page boundaries only; a page in flight
// always completes (or times out) first.
func (s *JobService) runLoop(ctx context.Context, job *storage.SyncJob) {
	defer s.removeHandle(job.ID)

	pageFailures := 0

	for {
		// A pause or cancel removes the execution handle
		if !s.handleExists(job.ID) {
			s.stopWithoutHandle(job.ID)
			return
		}

		imported, updated, itemCount, total, recordErrs, err := s.processPage(ctx, job.Kind, job.CurrentPage)
		if err != nil {
			pageFailures++
			job.AppendError(job.CurrentPage, err.Error())
			if persistErr := s.repo.UpdateJobProgress(job); persistErr != nil {
				s.logger.Error("failed to persist job progress", "job_id", job.ID, "error", persistErr)
			}
			if pageFailures >= maxPageRetries {
				s.logger.Error("sync job failed",
					"job_id", job.ID,
					"page", job.CurrentPage,
					"failures", pageFailures,
					"error", err,
				)
				_ = s.repo.SetJobStatus(job.ID, storage.JobStatusFailed)
				return
			}
			s.logger.Warn("page failed, retrying",
				"job_id", job.ID,
				"page", job.CurrentPage,
				"attempt", pageFailures,
				"error", err,
			)
			// Longer backoff before retrying the same page
			if !s.sleep(ctx, s.cfg.PageRetryDelay) {
				return
			}
			continue
		}
		pageFailures = 0

		job.ImportedCount += imported
		job.UpdatedCount += updated
		for _, msg := range recordErrs {
			job.AppendError(job.CurrentPage, msg)
		}

		// The remote total can drift while the job runs
		if total > 0 {
			job.TotalItems = total
			job.TotalPages = pageCount(total, s.cfg.PageSize)
		}

		done := itemCount < s.cfg.PageSize
		job.CurrentPage++
		if err := s.repo.UpdateJobProgress(job); err != nil {
			s.logger.Error("failed to persist job progress", "job_id", job.ID, "error", err)
		}

		s.logger.Debug("page processed",
			"job_id", job.ID,
			"page", job.CurrentPage-1,
			"imported", imported,
			"updated", updated,
			"record_errors", len(recordErrs),
		)

		if done {
			break
		}

		// Rate-limit courtesy between pages
		if !s.sleep(ctx, s.cfg.InterPageDelay) {
			return
		}
	}

	s.removeHandle(job.ID)
	if err := s.repo.SetJobStatus(job.ID, storage.JobStatusCompleted); err != nil {
		s.logger.Error("failed to complete job", "job_id", job.ID, "error", err)
		return
	}
	s.logger.Info("sync job completed",
		"job_id", job.ID,
		"kind", job.Kind,
		"imported", job.ImportedCount,
		"updated", job.UpdatedCount,
		"errors", job.ErrorCount,
	)
}

// stopWithoutHandle settles the persisted status after the execution
// handle disappeared: an explicit cancel already wrote CANCELLED,
// anything else is treated as a pause.
func (s *JobService) stopWithoutHandle(jobID string) {
	job, err := s.repo.GetJobByID(jobID)
	if err != nil || job == nil {
		s.logger.Warn("job vanished mid-run", "job_id", jobID, "error", err)
		return
	}
	switch job.Status {
	case storage.JobStatusCancelled:
		s.logger.Info("sync job stopped after cancel", "job_id", jobID)
	case storage.JobStatusPaused:
		s.logger.Info("sync job stopped after pause", "job_id", jobID)
	default:
		if _, err := s.repo.TransitionJobStatus(jobID, storage.JobStatusPaused, storage.JobStatusRunning); err != nil {
			s.logger.Error("failed to mark job paused", "job_id", jobID, "error", err)
		}
	}
}

// processPage fetches and imports one page of the job's collection.
// Record-level failures are returned as messages, not as err: only a
// page-level fetch failure aborts the page.
func (s *JobService) processPage(ctx context.Context, kind storage.JobKind, page int) (imported, updated, itemCount, total int, recordErrs []string, err error) {
	perPage := s.cfg.PageSize

	record := func(created bool, importErr error) {
		if importErr != nil {
			recordErrs = append(recordErrs, importErr.Error())
			return
		}
		if created {
			imported++
		} else {
			updated++
		}
	}

	switch kind {
	case storage.JobKindCustomers:
		items, totalCount, fetchErr := s.api.ListCustomers(ctx, page, perPage)
		if fetchErr != nil {
			return 0, 0, 0, 0, nil, fetchErr
		}
		for _, rec := range items {
			record(s.orch.ImportCustomer(ctx, rec))
		}
		return imported, updated, len(items), totalCount, recordErrs, nil

	case storage.JobKindProducts:
		items, totalCount, fetchErr := s.api.ListProducts(ctx, page, perPage)
		if fetchErr != nil {
			return 0, 0, 0, 0, nil, fetchErr
		}
		for _, rec := range items {
			record(s.orch.ImportProduct(ctx, rec))
		}
		return imported, updated, len(items), totalCount, recordErrs, nil

	case storage.JobKindOrders:
		items, totalCount, fetchErr := s.api.ListOrders(ctx, page, perPage)
		if fetchErr != nil {
			return 0, 0, 0, 0, nil, fetchErr
		}
		for _, rec := range items {
			record(s.orch.ImportOrder(ctx, rec))
		}
		return imported, updated, len(items), totalCount, recordErrs, nil
	}

	return 0, 0, 0, 0, nil, fmt.Errorf("invalid job kind: %s", kind)
}

// countItems asks the platform for the collection's total item count
func (s *JobService) countItems(ctx context.Context, kind storage.JobKind) (int, error) {
	switch kind {
	case storage.JobKindCustomers:
		_, total, err := s.api.ListCustomers(ctx, 1, 1)
		return total, err
	case storage.JobKindProducts:
		_, total, err := s.api.ListProducts(ctx, 1, 1)
		return total, err
	case storage.JobKindOrders:
		_, total, err := s.api.ListOrders(ctx, 1, 1)
		return total, err
	}
	return 0, fmt.Errorf("invalid job kind: %s", kind)
}

// sleep waits for d unless the context ends first
func (s *JobService) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
