package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorage_FindReturnsNilWhenAbsent(t *testing.T) {
	store := newTestStorage(t)

	cat, err := store.FindCategoryByExternalID("nope")
	require.NoError(t, err)
	assert.Nil(t, cat)

	cust, err := store.FindCustomerByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, cust)

	order, err := store.FindOrderByNumber("0")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestStorage_CategoryRoundtrip(t *testing.T) {
	store := newTestStorage(t)

	parent := &Category{ExternalID: "ext_root", Slug: "root", Name: "Root", SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCategory(parent))
	require.NotZero(t, parent.ID)

	child := &Category{ExternalID: "ext_child", Slug: "child", Name: "Child", ParentID: &parent.ID, SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCategory(child))

	found, err := store.FindCategoryBySlug("child")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ext_child", found.ExternalID)
	require.NotNil(t, found.ParentID)
	assert.Equal(t, parent.ID, *found.ParentID)
	assert.False(t, found.CreatedAt.IsZero())

	// Update in place, same row
	found.Name = "Renamed"
	require.NoError(t, store.SaveCategory(found))

	again, err := store.FindCategoryByExternalID("ext_child")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, child.ID, again.ID)
	assert.Equal(t, "Renamed", again.Name)
}

func TestStorage_CustomerEmailLookupIsCaseInsensitive(t *testing.T) {
	store := newTestStorage(t)

	cust := &Customer{ExternalID: "ext_c1", Email: "Ada@Example.com", FirstName: "Ada", SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCustomer(cust))

	found, err := store.FindCustomerByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, cust.ID, found.ID)
}

func TestStorage_ProductRoundtrip(t *testing.T) {
	store := newTestStorage(t)

	cat := &Category{ExternalID: "ext_cat", Slug: "widgets", Name: "Widgets", SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCategory(cat))

	p := &Product{
		ExternalID: "ext_p1",
		SKU:        "SKU-1",
		Name:       "Widget",
		Price:      9.99,
		CategoryID: &cat.ID,
		SyncStatus: SyncStatusPending,
	}
	require.NoError(t, store.SaveProduct(p))

	found, err := store.FindProductBySKU("SKU-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 9.99, found.Price)
	assert.Equal(t, SyncStatusPending, found.SyncStatus)
	require.NotNil(t, found.CategoryID)
	assert.Equal(t, cat.ID, *found.CategoryID)
	assert.Nil(t, found.ShippingClassID)
}

func TestStorage_OrderLinesRoundtrip(t *testing.T) {
	store := newTestStorage(t)

	cust := &Customer{ExternalID: "ext_c1", Email: "a@b.com", SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCustomer(cust))

	o := &Order{
		ExternalID: "ext_o1",
		Number:     "1001",
		CustomerID: &cust.ID,
		Status:     "processing",
		Total:      15.48,
		Currency:   "USD",
		Lines: []OrderLine{
			{ProductID: 1, ExternalProductID: "ext_p1", Name: "Widget", Quantity: 2, Price: 5.00, Total: 10.00},
			{ProductID: 2, ExternalProductID: "ext_p2", Name: "Gadget", Quantity: 1, Price: 5.48, Total: 5.48},
		},
	}
	require.NoError(t, store.SaveOrder(o))

	found, err := store.FindOrderByNumber("1001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ext_o1", found.ExternalID)
	require.NotNil(t, found.CustomerID)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "Widget", found.Lines[0].Name)
	assert.Equal(t, 2, found.Lines[0].Quantity)
	assert.Equal(t, 5.48, found.Lines[1].Total)
}

func TestStorage_OrderWithoutLines(t *testing.T) {
	store := newTestStorage(t)

	o := &Order{ExternalID: "ext_o2", Number: "1002", Status: "pending", Currency: "USD"}
	require.NoError(t, store.SaveOrder(o))

	found, err := store.FindOrderByExternalID("ext_o2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Empty(t, found.Lines)
	assert.Nil(t, found.CustomerID)
}

func TestStorage_MigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Re-opening an existing database must not re-run migrations
	store, err = NewStorage(dbPath)
	require.NoError(t, err)
	defer store.Close()

	cat := &Category{ExternalID: "ext_1", Slug: "s", Name: "N", SyncStatus: SyncStatusSynced}
	require.NoError(t, store.SaveCategory(cat))
}
