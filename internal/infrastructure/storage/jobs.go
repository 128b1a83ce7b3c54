package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const jobColumns = `id, kind, status, current_page, total_pages, total_items,
	imported_count, updated_count, error_count, error_log_json,
	started_at, paused_at, completed_at, resumed_from_job_id`

func scanJob(scanner interface{ Scan(...interface{}) error }) (*SyncJob, error) {
	j := &SyncJob{}
	var pausedAt, completedAt sql.NullTime
	err := scanner.Scan(
		&j.ID, &j.Kind, &j.Status, &j.CurrentPage, &j.TotalPages, &j.TotalItems,
		&j.ImportedCount, &j.UpdatedCount, &j.ErrorCount, &j.ErrorLogJSON,
		&j.StartedAt, &pausedAt, &completedAt, &j.ResumedFromJobID,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if pausedAt.Valid {
		j.PausedAt = &pausedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	_ = j.DecodeErrorLog()
	return j, nil
}

// CreateJob inserts a new job record
func (s *Storage) CreateJob(job *SyncJob) error {
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	if job.CurrentPage == 0 {
		job.CurrentPage = 1
	}
	if err := job.EncodeErrorLog(); err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	_, err := s.db.Exec(`
	INSERT INTO sync_jobs (id, kind, status, current_page, total_pages, total_items,
		imported_count, updated_count, error_count, error_log_json,
		started_at, paused_at, completed_at, resumed_from_job_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, job.Status, job.CurrentPage, job.TotalPages, job.TotalItems,
		job.ImportedCount, job.UpdatedCount, job.ErrorCount, job.ErrorLogJSON,
		job.StartedAt, nullTime(job.PausedAt), nullTime(job.CompletedAt), job.ResumedFromJobID,
	)
	return err
}

// UpdateJobProgress persists a job's page counters and error log
func (s *Storage) UpdateJobProgress(job *SyncJob) error {
	if err := job.EncodeErrorLog(); err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	_, err := s.db.Exec(`
	UPDATE sync_jobs SET current_page = ?, total_pages = ?, total_items = ?,
		imported_count = ?, updated_count = ?, error_count = ?, error_log_json = ?
	WHERE id = ?`,
		job.CurrentPage, job.TotalPages, job.TotalItems,
		job.ImportedCount, job.UpdatedCount, job.ErrorCount, job.ErrorLogJSON,
		job.ID,
	)
	return err
}

// SetJobStatus transitions a job, stamping paused_at/completed_at as appropriate
func (s *Storage) SetJobStatus(jobID string, status JobStatus) error {
	_, err := s.TransitionJobStatus(jobID, status)
	return err
}

// TransitionJobStatus moves a job to the given status only when its
// current status is one of from (no from means unconditional), and
// reports whether a row changed. The guard keeps racing writers from
// clobbering a terminal status, e.g. a pause landing just after the
// worker completed the job.
func (s *Storage) TransitionJobStatus(jobID string, to JobStatus, from ...JobStatus) (bool, error) {
	now := time.Now().UTC()

	set := `status = ?`
	args := []interface{}{to}
	switch to {
	case JobStatusPaused:
		set += `, paused_at = ?`
		args = append(args, now)
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		set += `, completed_at = ?`
		args = append(args, now)
	}

	query := `UPDATE sync_jobs SET ` + set + ` WHERE id = ?`
	args = append(args, jobID)
	if len(from) > 0 {
		query += ` AND status IN (?` + strings.Repeat(`,?`, len(from)-1) + `)`
		for _, f := range from {
			args = append(args, f)
		}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetActiveJob returns the RUNNING or PAUSED job for a kind, or (nil, nil)
func (s *Storage) GetActiveJob(kind JobKind) (*SyncJob, error) {
	row := s.db.QueryRow(`
	SELECT `+jobColumns+` FROM sync_jobs
	WHERE kind = ? AND status IN (?, ?)
	ORDER BY started_at DESC LIMIT 1`,
		kind, JobStatusRunning, JobStatusPaused)
	return scanJob(row)
}

// GetJobByID retrieves a job, or (nil, nil) if unknown
func (s *Storage) GetJobByID(jobID string) (*SyncJob, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM sync_jobs WHERE id = ?`, jobID)
	return scanJob(row)
}

// ListJobs returns jobs matching the filters, newest first
func (s *Storage) ListJobs(filters JobFilters) ([]*SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE 1=1`
	args := []interface{}{}

	if filters.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filters.Kind)
	}
	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, filters.Status)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CreateResumeJob atomically inserts a new running job seeded from the
// parent's counters and marks the parent completed.
func (s *Storage) CreateResumeJob(parent *SyncJob, newID string) (*SyncJob, error) {
	resumed := &SyncJob{
		ID:               newID,
		Kind:             parent.Kind,
		Status:           JobStatusRunning,
		CurrentPage:      parent.CurrentPage,
		TotalPages:       parent.TotalPages,
		TotalItems:       parent.TotalItems,
		ImportedCount:    parent.ImportedCount,
		UpdatedCount:     parent.UpdatedCount,
		ErrorCount:       parent.ErrorCount,
		ErrorLog:         parent.ErrorLog,
		StartedAt:        time.Now().UTC(),
		ResumedFromJobID: parent.ID,
	}
	if err := resumed.EncodeErrorLog(); err != nil {
		return nil, fmt.Errorf("failed to encode error log: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
	INSERT INTO sync_jobs (id, kind, status, current_page, total_pages, total_items,
		imported_count, updated_count, error_count, error_log_json,
		started_at, resumed_from_job_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resumed.ID, resumed.Kind, resumed.Status, resumed.CurrentPage, resumed.TotalPages,
		resumed.TotalItems, resumed.ImportedCount, resumed.UpdatedCount, resumed.ErrorCount,
		resumed.ErrorLogJSON, resumed.StartedAt, resumed.ResumedFromJobID,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	// The parent must not stay active alongside the resume job
	_, err = tx.Exec(`UPDATE sync_jobs SET status = ?, completed_at = ? WHERE id = ?`,
		JobStatusCompleted, time.Now().UTC(), parent.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resumed, nil
}

// DeleteOldJobs removes terminal jobs older than retentionDays, returning the count
func (s *Storage) DeleteOldJobs(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	res, err := s.db.Exec(`
	DELETE FROM sync_jobs
	WHERE status IN (?, ?, ?) AND started_at < ?`,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// nullTime converts an optional timestamp for SQL binding
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
