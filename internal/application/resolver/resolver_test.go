package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

func newTestResolver(api *platform.MockAPI) (*Resolver, *storage.MockRepository) {
	repo := storage.NewMockRepository()
	return New(repo, api, nil), repo
}

func TestEnsureCategory_Idempotent(t *testing.T) {
	api := &platform.MockAPI{
		Categories: []platform.Category{
			{ID: "ext_cat_1", Slug: "widgets", Name: "Widgets"},
		},
	}
	res, repo := newTestResolver(api)

	first, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_cat_1"})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_cat_1"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.LocalID, second.LocalID)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Categories)

	// The remote record was only fetched once
	assert.Equal(t, 1, api.GetCategoryCalls)
}

func TestEnsureCategory_NaturalKeyBackfill(t *testing.T) {
	api := &platform.MockAPI{}
	res, repo := newTestResolver(api)

	// A category created locally before it ever had a platform id
	local := &storage.Category{Slug: "widgets", Name: "Widgets", SyncStatus: storage.SyncStatusSynced}
	require.NoError(t, repo.SaveCategory(local))

	result, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_cat_1", Slug: "widgets"})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, local.ID, result.LocalID)

	// The external id was backfilled without a remote fetch
	found, err := repo.FindCategoryByExternalID("ext_cat_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "widgets", found.Slug)
	assert.Equal(t, 0, api.GetCategoryCalls)
}

func TestEnsureCategory_ResolvesParentChain(t *testing.T) {
	api := &platform.MockAPI{
		Categories: []platform.Category{
			{ID: "ext_root", Slug: "root", Name: "Root"},
			{ID: "ext_mid", Slug: "mid", Name: "Mid", ParentID: "ext_root"},
			{ID: "ext_leaf", Slug: "leaf", Name: "Leaf", ParentID: "ext_mid"},
		},
	}
	res, repo := newTestResolver(api)

	result, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_leaf"})
	require.NoError(t, err)
	assert.True(t, result.Created)

	// The whole chain exists, linked leaf -> mid -> root
	leaf, err := repo.FindCategoryByExternalID("ext_leaf")
	require.NoError(t, err)
	require.NotNil(t, leaf)
	require.NotNil(t, leaf.ParentID)

	mid, err := repo.FindCategoryByExternalID("ext_mid")
	require.NoError(t, err)
	require.NotNil(t, mid)
	assert.Equal(t, mid.ID, *leaf.ParentID)
	require.NotNil(t, mid.ParentID)

	root, err := repo.FindCategoryByExternalID("ext_root")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, root.ID, *mid.ParentID)
	assert.Nil(t, root.ParentID)

	// Parents were created before children
	assert.True(t, root.CreatedAt.Before(leaf.CreatedAt) || root.CreatedAt.Equal(leaf.CreatedAt))
}

func TestEnsureCategory_PlaceholderOnFetchFailure(t *testing.T) {
	api := &platform.MockAPI{}
	res, repo := newTestResolver(api)

	result, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_gone", Name: "Gone"})
	require.NoError(t, err)
	assert.True(t, result.Created)

	found, err := repo.FindCategoryByExternalID("ext_gone")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, storage.SyncStatusPending, found.SyncStatus)
	assert.Equal(t, "Gone", found.Name)

	// The failed fetch left a pending ledger row
	logs, err := repo.ListSyncLogs(storage.SyncLogFilters{EntityID: "ext_gone"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.OutcomePending, logs[0].Outcome)
	assert.Equal(t, storage.ActionCreate, logs[0].Action)
}

func TestEnsureCategory_DepthCap(t *testing.T) {
	// A cycle in the parent chain must terminate instead of recursing
	api := &platform.MockAPI{
		Categories: []platform.Category{
			{ID: "ext_a", Slug: "a", Name: "A", ParentID: "ext_b"},
			{ID: "ext_b", Slug: "b", Name: "B", ParentID: "ext_a"},
		},
	}
	res, _ := newTestResolver(api)

	_, err := res.EnsureCategory(context.Background(), Ref{ExternalID: "ext_a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent chain exceeds depth")
}

func TestEnsureCustomer_MatchesRemoteEmail(t *testing.T) {
	api := &platform.MockAPI{
		Customers: []platform.Customer{
			{ID: "ext_cust_1", Email: "a@b.com", FirstName: "Ada", LastName: "B"},
		},
	}
	res, repo := newTestResolver(api)

	// Local row exists under the same email but without a platform id
	local := &storage.Customer{Email: "a@b.com", FirstName: "Ada", SyncStatus: storage.SyncStatusSynced}
	require.NoError(t, repo.SaveCustomer(local))

	result, err := res.EnsureCustomer(context.Background(), Ref{ExternalID: "ext_cust_1"})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, local.ID, result.LocalID)

	found, err := repo.FindCustomerByExternalID("ext_cust_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, local.ID, found.ID)
}

func TestEnsureCustomer_PlaceholderKeepsInlineData(t *testing.T) {
	api := &platform.MockAPI{}
	res, repo := newTestResolver(api)

	result, err := res.EnsureCustomer(context.Background(), Ref{
		ExternalID: "ext_cust_9",
		Email:      "ghost@example.com",
		FirstName:  "Ghost",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)

	found, err := repo.FindCustomerByEmail("ghost@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, storage.SyncStatusPending, found.SyncStatus)
	assert.Equal(t, "Ghost", found.FirstName)
}

func TestEnsureProduct_ResolvesDependencies(t *testing.T) {
	api := &platform.MockAPI{
		Categories: []platform.Category{
			{ID: "ext_cat_3", Slug: "widgets", Name: "Widgets"},
		},
		ShippingClasses: []platform.ShippingClass{
			{ID: "ext_ship_1", Slug: "standard", Name: "Standard"},
		},
		Products: []platform.Product{
			{ID: "ext_prod_9", SKU: "SKU-9", Name: "Widget", Price: 9.99, CategoryID: "ext_cat_3", ShippingClassID: "ext_ship_1"},
		},
	}
	res, repo := newTestResolver(api)

	result, err := res.EnsureProduct(context.Background(), Ref{ExternalID: "ext_prod_9"})
	require.NoError(t, err)
	assert.True(t, result.Created)

	p, err := repo.FindProductBySKU("SKU-9")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.CategoryID)
	require.NotNil(t, p.ShippingClassID)
	assert.Equal(t, storage.SyncStatusSynced, p.SyncStatus)

	cat, err := repo.FindCategoryByExternalID("ext_cat_3")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, cat.ID, *p.CategoryID)
}

func TestWithObserver_ObservesPlaceholders(t *testing.T) {
	api := &platform.MockAPI{}
	res, _ := newTestResolver(api)

	var created []Kind
	var placeholders int
	observed := res.WithObserver(func(kind Kind, localID int64, placeholder bool) {
		created = append(created, kind)
		if placeholder {
			placeholders++
		}
	})

	_, err := observed.EnsureProduct(context.Background(), Ref{ExternalID: "ext_missing", SKU: "SKU-X"})
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, KindProduct, created[0])
	assert.Equal(t, 1, placeholders)
}

func TestWithObserver_LeavesReceiverUnobserved(t *testing.T) {
	api := &platform.MockAPI{
		Customers: []platform.Customer{{ID: "ext_c1", Email: "a@b.com"}},
	}
	res, _ := newTestResolver(api)

	var observed int
	_ = res.WithObserver(func(Kind, int64, bool) { observed++ })

	// Creations through the original resolver are not reported
	_, err := res.EnsureCustomer(context.Background(), Ref{ExternalID: "ext_c1", Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, 0, observed)
}

func TestEnsure_UnknownKind(t *testing.T) {
	res, _ := newTestResolver(&platform.MockAPI{})

	_, err := res.Ensure(context.Background(), Kind("warehouse"), Ref{ExternalID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}
