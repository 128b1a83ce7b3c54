package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLogs_AppendAndList(t *testing.T) {
	store := newTestStorage(t)

	entries := []*SyncLogEntry{
		{Direction: DirectionFromPlatform, EntityType: "customer", EntityID: "ext_c1", Action: ActionImport, Outcome: OutcomeSuccess, DurationMs: 12},
		{Direction: DirectionFromPlatform, EntityType: "product", EntityID: "ext_p1", Action: ActionCreate, Outcome: OutcomePending, Error: "fetch failed"},
		{Direction: DirectionToPlatform, EntityType: "product", EntityID: "ext_p1", Action: ActionExport, Outcome: OutcomeFailed, Error: "status 502"},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendSyncLog(e))
		assert.NotZero(t, e.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		all, err := store.ListSyncLogs(SyncLogFilters{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, ActionExport, all[0].Action)
		assert.Equal(t, ActionImport, all[2].Action)
	})

	t.Run("filter by entity type", func(t *testing.T) {
		products, err := store.ListSyncLogs(SyncLogFilters{EntityType: "product"})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("filter by entity id and outcome", func(t *testing.T) {
		failed, err := store.ListSyncLogs(SyncLogFilters{EntityID: "ext_p1", Outcome: "failed"})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "status 502", failed[0].Error)
	})

	t.Run("limit", func(t *testing.T) {
		limited, err := store.ListSyncLogs(SyncLogFilters{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestGetStats(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.SaveCategory(&Category{ExternalID: "c1", Slug: "a", Name: "A", SyncStatus: SyncStatusSynced}))
	require.NoError(t, store.SaveProduct(&Product{ExternalID: "p1", SKU: "SKU-1", Name: "W", SyncStatus: SyncStatusPending}))
	require.NoError(t, store.SaveProduct(&Product{ExternalID: "p2", SKU: "SKU-2", Name: "G", SyncStatus: SyncStatusSynced}))
	require.NoError(t, store.SaveCustomer(&Customer{ExternalID: "cu1", Email: "a@b.com", SyncStatus: SyncStatusSynced}))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendSyncLog(&SyncLogEntry{
			Direction: DirectionFromPlatform, EntityType: "product",
			EntityID: fmt.Sprintf("p%d", i), Action: ActionImport, Outcome: OutcomeSuccess,
		}))
	}
	require.NoError(t, store.AppendSyncLog(&SyncLogEntry{
		Direction: DirectionFromPlatform, EntityType: "product",
		EntityID: "px", Action: ActionCreate, Outcome: OutcomePending,
	}))

	require.NoError(t, store.CreateJob(&SyncJob{ID: "j1", Kind: JobKindProducts, Status: JobStatusCompleted}))
	require.NoError(t, store.CreateJob(&SyncJob{ID: "j2", Kind: JobKindOrders, Status: JobStatusRunning}))

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Categories)
	assert.Equal(t, 2, stats.Products)
	assert.Equal(t, 1, stats.Customers)
	assert.Equal(t, 0, stats.Orders)
	assert.Equal(t, 1, stats.PendingEntities)
	assert.Equal(t, 3, stats.LogOutcomes["success"])
	assert.Equal(t, 1, stats.LogOutcomes["pending"])
	assert.Equal(t, 1, stats.JobStatuses["completed"])
	assert.Equal(t, 1, stats.JobStatuses["running"])
}
