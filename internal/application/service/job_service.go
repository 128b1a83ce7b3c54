// Package service owns the resumable sync jobs: durable, pausable,
// cancelable page-by-page transfers from the platform.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/erpsync/backend/internal/application/sync"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// maxPageRetries bounds consecutive failures on one page before the
// whole job is declared failed.
const maxPageRetries = 5

// Config tunes the job worker loop
type Config struct {
	PageSize       int
	InterPageDelay time.Duration
	PageRetryDelay time.Duration
}

// JobService manages persisted sync jobs. Progress lives in storage so
// a paused or failed job survives restarts; the in-memory handle
// registry only tracks which jobs this process is actively working.
type JobService struct {
	repo   storage.Repository
	api    platform.API
	orch   *appsync.Orchestrator
	cfg    Config
	logger *slog.Logger

	// External execution handles. A worker checks for its handle at
	// every page boundary; pause and cancel remove it.
	handles   map[string]struct{}
	handlesMu sync.Mutex

	wg sync.WaitGroup
}

// NewJobService creates a job service
func NewJobService(repo storage.Repository, api platform.API, orch *appsync.Orchestrator, cfg Config, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.InterPageDelay <= 0 {
		cfg.InterPageDelay = 500 * time.Millisecond
	}
	if cfg.PageRetryDelay <= 0 {
		cfg.PageRetryDelay = 10 * time.Second
	}
	return &JobService{
		repo:    repo,
		api:     api,
		orch:    orch,
		cfg:     cfg,
		logger:  logger,
		handles: make(map[string]struct{}),
	}
}

// ValidKind reports whether kind names a syncable collection
func ValidKind(kind storage.JobKind) bool {
	switch kind {
	case storage.JobKindCustomers, storage.JobKindProducts, storage.JobKindOrders:
		return true
	}
	return false
}

// Start begins a sync job for a kind. If a RUNNING or PAUSED job of the
// kind already exists its id is returned instead (idempotent start).
//
// The lookup-before-create leaves a race window under truly concurrent
// starts; a duplicate job costs wasted work only, since every write
// downstream is an idempotent upsert.
func (s *JobService) Start(ctx context.Context, kind storage.JobKind) (jobID string, existing bool, err error) {
	if !ValidKind(kind) {
		return "", false, fmt.Errorf("invalid job kind: %s", kind)
	}

	active, err := s.repo.GetActiveJob(kind)
	if err != nil {
		return "", false, err
	}
	if active != nil {
		s.logger.Info("sync job already active", "job_id", active.ID, "kind", kind, "status", active.Status)
		return active.ID, true, nil
	}

	job := &storage.SyncJob{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: storage.JobStatusRunning,
	}
	if err := s.repo.CreateJob(job); err != nil {
		return "", false, err
	}

	// Missing or rejected credentials fail fast, before any page work
	total, err := s.countItems(ctx, kind)
	if err != nil {
		_ = s.repo.SetJobStatus(job.ID, storage.JobStatusFailed)
		return job.ID, false, fmt.Errorf("failed to count remote %s: %w", kind, err)
	}
	job.TotalItems = total
	job.TotalPages = pageCount(total, s.cfg.PageSize)
	if err := s.repo.UpdateJobProgress(job); err != nil {
		return "", false, err
	}

	s.launch(job)

	s.logger.Info("sync job started",
		"job_id", job.ID,
		"kind", kind,
		"total_items", job.TotalItems,
		"total_pages", job.TotalPages,
	)
	return job.ID, false, nil
}

// Pause marks a running job paused and releases its execution handle.
// The worker observes this at its next page boundary; a page already in
// flight completes first.
func (s *JobService) Pause(jobID string) error {
	job, err := s.repo.GetJobByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != storage.JobStatusRunning {
		return fmt.Errorf("job cannot be paused: status=%s", job.Status)
	}

	// Guarded transition: the worker may have finished the last page
	// between the lookup above and this write.
	ok, err := s.repo.TransitionJobStatus(jobID, storage.JobStatusPaused, storage.JobStatusRunning)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job cannot be paused: no longer running")
	}
	s.removeHandle(jobID)
	s.logger.Info("sync job paused", "job_id", jobID)
	return nil
}

// Cancel marks a job cancelled and releases its execution handle
func (s *JobService) Cancel(jobID string) error {
	job, err := s.repo.GetJobByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if !job.IsActive() {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	ok, err := s.repo.TransitionJobStatus(jobID, storage.JobStatusCancelled,
		storage.JobStatusRunning, storage.JobStatusPaused)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job cannot be cancelled: no longer active")
	}
	s.removeHandle(jobID)
	s.logger.Info("sync job cancelled", "job_id", jobID)
	return nil
}

// Resume creates a new running job seeded from a paused or failed one.
// The parent is marked completed so only one record stays active for
// the logical stream.
func (s *JobService) Resume(ctx context.Context, jobID string) (string, error) {
	parent, err := s.repo.GetJobByID(jobID)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", fmt.Errorf("job not found: %s", jobID)
	}
	if parent.Status != storage.JobStatusPaused && parent.Status != storage.JobStatusFailed {
		return "", fmt.Errorf("job cannot be resumed: status=%s", parent.Status)
	}

	resumed, err := s.repo.CreateResumeJob(parent, uuid.NewString())
	if err != nil {
		return "", err
	}

	s.launch(resumed)

	s.logger.Info("sync job resumed",
		"job_id", resumed.ID,
		"resumed_from", parent.ID,
		"current_page", resumed.CurrentPage,
	)
	return resumed.ID, nil
}

// GetJob retrieves a job by id
func (s *JobService) GetJob(jobID string) (*storage.SyncJob, error) {
	job, err := s.repo.GetJobByID(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListJobs lists jobs matching the filters
func (s *JobService) ListJobs(filters storage.JobFilters) ([]*storage.SyncJob, error) {
	return s.repo.ListJobs(filters)
}

// ListActive lists RUNNING and PAUSED jobs, optionally limited to a kind
func (s *JobService) ListActive(kind storage.JobKind) ([]*storage.SyncJob, error) {
	running, err := s.repo.ListJobs(storage.JobFilters{Kind: kind, Status: storage.JobStatusRunning})
	if err != nil {
		return nil, err
	}
	paused, err := s.repo.ListJobs(storage.JobFilters{Kind: kind, Status: storage.JobStatusPaused})
	if err != nil {
		return nil, err
	}
	return append(running, paused...), nil
}

// ListResumable lists PAUSED and FAILED jobs, optionally limited to a kind
func (s *JobService) ListResumable(kind storage.JobKind) ([]*storage.SyncJob, error) {
	paused, err := s.repo.ListJobs(storage.JobFilters{Kind: kind, Status: storage.JobStatusPaused})
	if err != nil {
		return nil, err
	}
	failed, err := s.repo.ListJobs(storage.JobFilters{Kind: kind, Status: storage.JobStatusFailed})
	if err != nil {
		return nil, err
	}
	return append(paused, failed...), nil
}

// DeleteOldJobs removes terminal jobs older than retentionDays
func (s *JobService) DeleteOldJobs(retentionDays int) (int64, error) {
	return s.repo.DeleteOldJobs(retentionDays)
}

// Wait blocks until all workers launched by this service have stopped.
// Used for orderly shutdown and in tests.
func (s *JobService) Wait() {
	s.wg.Wait()
}

// launch registers the execution handle and starts the worker goroutine.
// The worker gets a background context: job lifetime is controlled via
// the handle registry, not via the caller's request context.
func (s *JobService) launch(job *storage.SyncJob) {
	s.addHandle(job.ID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(context.Background(), job)
	}()
}

func (s *JobService) addHandle(jobID string) {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	s.handles[jobID] = struct{}{}
}

func (s *JobService) removeHandle(jobID string) {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	delete(s.handles, jobID)
}

func (s *JobService) handleExists(jobID string) bool {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	_, ok := s.handles[jobID]
	return ok
}

func pageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
