package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobs_CreateAndGet(t *testing.T) {
	store := newTestStorage(t)

	job := &SyncJob{ID: "job-1", Kind: JobKindCustomers, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(job))
	assert.Equal(t, 1, job.CurrentPage)
	assert.False(t, job.StartedAt.IsZero())

	found, err := store.GetJobByID("job-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, JobKindCustomers, found.Kind)
	assert.Equal(t, JobStatusRunning, found.Status)
	assert.Equal(t, 1, found.CurrentPage)

	missing, err := store.GetJobByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobs_ProgressPersists(t *testing.T) {
	store := newTestStorage(t)

	job := &SyncJob{ID: "job-1", Kind: JobKindProducts, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(job))

	job.CurrentPage = 4
	job.TotalPages = 10
	job.TotalItems = 500
	job.ImportedCount = 120
	job.UpdatedCount = 30
	job.AppendError(3, "page 3 went sideways")
	require.NoError(t, store.UpdateJobProgress(job))

	found, err := store.GetJobByID("job-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 4, found.CurrentPage)
	assert.Equal(t, 500, found.TotalItems)
	assert.Equal(t, 120, found.ImportedCount)
	assert.Equal(t, 1, found.ErrorCount)
	require.Len(t, found.ErrorLog, 1)
	assert.Equal(t, 3, found.ErrorLog[0].Page)
	assert.Equal(t, "page 3 went sideways", found.ErrorLog[0].Message)
	assert.InDelta(t, 0.3, found.Progress(), 0.001)
}

func TestJobs_StatusTransitionsStampTimes(t *testing.T) {
	store := newTestStorage(t)

	job := &SyncJob{ID: "job-1", Kind: JobKindOrders, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(job))

	require.NoError(t, store.SetJobStatus("job-1", JobStatusPaused))
	found, err := store.GetJobByID("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPaused, found.Status)
	assert.NotNil(t, found.PausedAt)
	assert.Nil(t, found.CompletedAt)

	require.NoError(t, store.SetJobStatus("job-1", JobStatusCancelled))
	found, err = store.GetJobByID("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, found.Status)
	assert.NotNil(t, found.CompletedAt)
}

func TestJobs_TransitionJobStatusIsGuarded(t *testing.T) {
	store := newTestStorage(t)

	job := &SyncJob{ID: "job-1", Kind: JobKindCustomers, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(job))

	// Worker finishes first
	require.NoError(t, store.SetJobStatus("job-1", JobStatusCompleted))

	// A pause that lost the race must not clobber the terminal status
	ok, err := store.TransitionJobStatus("job-1", JobStatusPaused, JobStatusRunning)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := store.GetJobByID("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, found.Status)
	assert.Nil(t, found.PausedAt)

	// The guard passes when the job really is running
	running := &SyncJob{ID: "job-2", Kind: JobKindOrders, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(running))

	ok, err = store.TransitionJobStatus("job-2", JobStatusPaused, JobStatusRunning)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err = store.GetJobByID("job-2")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPaused, found.Status)
	assert.NotNil(t, found.PausedAt)

	// Unknown jobs never transition
	ok, err = store.TransitionJobStatus("nope", JobStatusPaused, JobStatusRunning)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobs_GetActiveJob(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.CreateJob(&SyncJob{ID: "done", Kind: JobKindCustomers, Status: JobStatusCompleted}))
	require.NoError(t, store.CreateJob(&SyncJob{ID: "paused", Kind: JobKindCustomers, Status: JobStatusPaused}))
	require.NoError(t, store.CreateJob(&SyncJob{ID: "other-kind", Kind: JobKindOrders, Status: JobStatusRunning}))

	active, err := store.GetActiveJob(JobKindCustomers)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "paused", active.ID)

	none, err := store.GetActiveJob(JobKindProducts)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestJobs_ListJobsFilters(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.CreateJob(&SyncJob{ID: "a", Kind: JobKindCustomers, Status: JobStatusCompleted}))
	require.NoError(t, store.CreateJob(&SyncJob{ID: "b", Kind: JobKindCustomers, Status: JobStatusFailed}))
	require.NoError(t, store.CreateJob(&SyncJob{ID: "c", Kind: JobKindOrders, Status: JobStatusFailed}))

	all, err := store.ListJobs(JobFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	failed, err := store.ListJobs(JobFilters{Status: JobStatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	failedOrders, err := store.ListJobs(JobFilters{Kind: JobKindOrders, Status: JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failedOrders, 1)
	assert.Equal(t, "c", failedOrders[0].ID)

	limited, err := store.ListJobs(JobFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestJobs_CreateResumeJob(t *testing.T) {
	store := newTestStorage(t)

	parent := &SyncJob{ID: "parent", Kind: JobKindProducts, Status: JobStatusRunning}
	require.NoError(t, store.CreateJob(parent))

	parent.CurrentPage = 7
	parent.TotalPages = 12
	parent.TotalItems = 600
	parent.ImportedCount = 280
	parent.UpdatedCount = 20
	parent.AppendError(5, "flaky page")
	require.NoError(t, store.UpdateJobProgress(parent))
	require.NoError(t, store.SetJobStatus("parent", JobStatusPaused))

	parent, err := store.GetJobByID("parent")
	require.NoError(t, err)

	resumed, err := store.CreateResumeJob(parent, "resumed")
	require.NoError(t, err)
	assert.Equal(t, JobStatusRunning, resumed.Status)
	assert.Equal(t, 7, resumed.CurrentPage)
	assert.Equal(t, 280, resumed.ImportedCount)
	assert.Equal(t, "parent", resumed.ResumedFromJobID)
	require.Len(t, resumed.ErrorLog, 1)

	// The parent is retired so only one job owns the stream
	oldParent, err := store.GetJobByID("parent")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, oldParent.Status)

	active, err := store.GetActiveJob(JobKindProducts)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "resumed", active.ID)
}

func TestJobs_DeleteOldJobs(t *testing.T) {
	store := newTestStorage(t)

	old := &SyncJob{ID: "old", Kind: JobKindCustomers, Status: JobStatusCompleted, StartedAt: time.Now().AddDate(0, 0, -40)}
	require.NoError(t, store.CreateJob(old))
	recent := &SyncJob{ID: "recent", Kind: JobKindCustomers, Status: JobStatusCompleted}
	require.NoError(t, store.CreateJob(recent))
	oldButPaused := &SyncJob{ID: "old-paused", Kind: JobKindOrders, Status: JobStatusPaused, StartedAt: time.Now().AddDate(0, 0, -40)}
	require.NoError(t, store.CreateJob(oldButPaused))

	deleted, err := store.DeleteOldJobs(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := store.GetJobByID("old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Active jobs survive retention no matter their age
	kept, err := store.GetJobByID("old-paused")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSyncJob_AppendErrorIsBounded(t *testing.T) {
	job := &SyncJob{ID: "j", Kind: JobKindOrders, Status: JobStatusRunning}

	for i := 0; i < MaxJobErrors+25; i++ {
		job.AppendError(i+1, "boom")
	}

	assert.Equal(t, MaxJobErrors+25, job.ErrorCount)
	require.Len(t, job.ErrorLog, MaxJobErrors)
	// Oldest entries were dropped
	assert.Equal(t, 26, job.ErrorLog[0].Page)
}
