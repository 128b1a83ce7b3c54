package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/application/resolver"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

func newTestOrchestrator(api *platform.MockAPI) (*Orchestrator, *storage.MockRepository) {
	repo := storage.NewMockRepository()
	res := resolver.New(repo, api, nil)
	return NewOrchestrator(repo, api, res, 10, nil), repo
}

func TestRunFullImport_AllStagesInOrder(t *testing.T) {
	api := &platform.MockAPI{
		Categories: []platform.Category{
			{ID: "ext_cat_1", Slug: "widgets", Name: "Widgets"},
		},
		ShippingClasses: []platform.ShippingClass{
			{ID: "ext_ship_1", Slug: "standard", Name: "Standard"},
		},
		Customers: []platform.Customer{
			{ID: "ext_cust_1", Email: "a@b.com", FirstName: "Ada"},
		},
		Products: []platform.Product{
			{ID: "ext_prod_1", SKU: "SKU-1", Name: "Widget", Price: 5, CategoryID: "ext_cat_1"},
		},
		Orders: []platform.Order{
			{
				ID: "ext_ord_1", Number: "1001", Status: "processing", Total: 5, Currency: "USD",
				Customer: platform.Customer{ID: "ext_cust_1", Email: "a@b.com"},
				Lines:    []platform.OrderLine{{ProductID: "ext_prod_1", SKU: "SKU-1", Name: "Widget", Quantity: 1, Price: 5, Total: 5}},
			},
		},
	}
	orch, repo := newTestOrchestrator(api)

	result, err := orch.RunFullImport(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Stages, 5)
	for i, stage := range StageOrder {
		assert.Equal(t, stage, result.Stages[i].Stage)
	}
	assert.Equal(t, 5, result.Imported)
	assert.Equal(t, 0, result.Errors)
	assert.Empty(t, result.FailedStage)

	order, err := repo.FindOrderByExternalID("ext_ord_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "processing", order.Status)
	require.NotNil(t, order.CustomerID)
	require.Len(t, order.Lines, 1)
}

func TestRunFullImport_SecondRunUpdatesNotDuplicates(t *testing.T) {
	api := &platform.MockAPI{
		Customers: []platform.Customer{
			{ID: "ext_cust_1", Email: "a@b.com"},
			{ID: "ext_cust_2", Email: "c@d.com"},
		},
	}
	orch, repo := newTestOrchestrator(api)

	first, err := orch.RunFullImport(context.Background(), Options{Stages: []string{StageCustomers}})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 0, first.Updated)

	second, err := orch.RunFullImport(context.Background(), Options{Stages: []string{StageCustomers}})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Updated)

	assert.Equal(t, 2, repo.EntityCount())
}

func TestRunFullImport_StageFailureSkipsLaterStages(t *testing.T) {
	fetchErr := errors.New("transfer failed after 3 retries: 503")
	api := &platform.MockAPI{
		Categories: []platform.Category{{ID: "ext_cat_1", Slug: "w", Name: "W"}},
		ListCustomersFn: func(ctx context.Context, page, perPage int) ([]platform.Customer, int, error) {
			return nil, 0, fetchErr
		},
	}
	orch, _ := newTestOrchestrator(api)

	result, err := orch.RunFullImport(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, StageCustomers, result.FailedStage)

	// Categories and shipping classes ran; products and orders never did
	require.Len(t, result.Stages, 3)
	assert.Equal(t, StageCustomers, result.Stages[2].Stage)
	assert.Equal(t, 0, api.ListOrdersCalls)
}

func TestRunFullImport_RecordFailureDoesNotAbortBatch(t *testing.T) {
	api := &platform.MockAPI{
		Customers: []platform.Customer{
			{ID: "", Email: ""}, // unusable record
			{ID: "ext_cust_2", Email: "ok@b.com"},
		},
	}
	orch, repo := newTestOrchestrator(api)

	result, err := orch.RunFullImport(context.Background(), Options{Stages: []string{StageCustomers}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Errors)

	found, err := repo.FindCustomerByEmail("ok@b.com")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestRunSmartImport_CountsAutoCreated(t *testing.T) {
	// The order references a customer and product never seen in any list;
	// both must be auto-created during dependency resolution.
	api := &platform.MockAPI{
		Categories: []platform.Category{{ID: "ext_cat_3", Slug: "widgets", Name: "Widgets"}},
		Customers:  []platform.Customer{{ID: "ext_cust_1", Email: "a@b.com", FirstName: "Ada"}},
		Products: []platform.Product{
			{ID: "ext_prod_9", SKU: "SKU-9", Name: "Widget", Price: 9.99, CategoryID: "ext_cat_3"},
		},
		Orders: []platform.Order{
			{
				ID: "ext_ord_5", Number: "1005", Status: "completed", Total: 9.99, Currency: "USD",
				Customer: platform.Customer{ID: "ext_cust_1", Email: "a@b.com"},
				Lines:    []platform.OrderLine{{ProductID: "ext_prod_9", SKU: "SKU-9", Name: "Widget", Quantity: 1, Price: 9.99, Total: 9.99}},
			},
		},
	}
	orch, repo := newTestOrchestrator(api)

	result, err := orch.RunSmartImport(context.Background(), Options{Stages: []string{StageOrders}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	// Customer, product and the product's category were pulled in
	assert.Equal(t, 1, result.AutoCreated["customer"])
	assert.Equal(t, 1, result.AutoCreated["product"])
	assert.Equal(t, 1, result.AutoCreated["category"])

	// 4 local entities total: order + 3 dependencies
	assert.Equal(t, 4, repo.EntityCount())

	cust, err := repo.FindCustomerByEmail("a@b.com")
	require.NoError(t, err)
	require.NotNil(t, cust)
	assert.Equal(t, storage.SyncStatusSynced, cust.SyncStatus)

	prod, err := repo.FindProductBySKU("SKU-9")
	require.NoError(t, err)
	require.NotNil(t, prod)
	require.NotNil(t, prod.CategoryID)

	// One ledger row per created dependency plus one for the order
	logs, err := repo.ListSyncLogs(storage.SyncLogFilters{})
	require.NoError(t, err)
	require.Len(t, logs, 4)

	actions := map[storage.SyncAction]int{}
	for _, entry := range logs {
		assert.Equal(t, storage.DirectionFromPlatform, entry.Direction)
		assert.Equal(t, storage.OutcomeSuccess, entry.Outcome)
		actions[entry.Action]++
	}
	assert.Equal(t, 3, actions[storage.ActionCreate])
	assert.Equal(t, 1, actions[storage.ActionImport])
}

func TestRunSmartImport_IsolatedFromConcurrentImports(t *testing.T) {
	fetching := make(chan struct{})
	gate := make(chan struct{})

	// The category list blocks until released, holding the smart run
	// mid-flight; the paginator stops after this single empty page.
	api := &platform.MockAPI{
		Customers: []platform.Customer{{ID: "ext_cust_7", Email: "g@b.com", FirstName: "Grace"}},
	}
	api.ListCategoriesFn = func(ctx context.Context, page, perPage int) ([]platform.Category, int, error) {
		close(fetching)
		<-gate
		return nil, 0, nil
	}
	orch, repo := newTestOrchestrator(api)

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := orch.RunSmartImport(context.Background(), Options{Stages: []string{StageCategories}})
		done <- outcome{result, err}
	}()

	<-fetching

	// Another caller imports an order through the same orchestrator
	// while the smart run is in flight; its customer is auto-created.
	created, err := orch.ImportOrder(context.Background(), platform.Order{
		ID: "ext_ord_9", Number: "1009", Status: "pending", Total: 5, Currency: "USD",
		Customer: platform.Customer{ID: "ext_cust_7", Email: "g@b.com"},
	})
	require.NoError(t, err)
	assert.True(t, created)

	close(gate)
	out := <-done
	require.NoError(t, out.err)

	// The concurrent caller's creations belong to it, not to this run
	assert.Empty(t, out.result.AutoCreated)

	cust, err := repo.FindCustomerByExternalID("ext_cust_7")
	require.NoError(t, err)
	require.NotNil(t, cust)
}

func TestImportOrder_LedgerRowPerImport(t *testing.T) {
	api := &platform.MockAPI{}
	orch, repo := newTestOrchestrator(api)

	created, err := orch.ImportOrder(context.Background(), platform.Order{
		ID: "ext_ord_1", Number: "1001", Status: "pending", Total: 1, Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, created)

	logs, err := repo.ListSyncLogs(storage.SyncLogFilters{EntityType: "order"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.ActionImport, logs[0].Action)
	assert.Equal(t, storage.DirectionFromPlatform, logs[0].Direction)
	assert.Equal(t, storage.OutcomeSuccess, logs[0].Outcome)
	assert.Equal(t, "ext_ord_1", logs[0].EntityID)
	assert.NotEmpty(t, logs[0].RequestJSON)
}

func TestImportCustomer_BackfillsExternalID(t *testing.T) {
	api := &platform.MockAPI{}
	orch, repo := newTestOrchestrator(api)

	local := &storage.Customer{Email: "a@b.com", SyncStatus: storage.SyncStatusSynced}
	require.NoError(t, repo.SaveCustomer(local))

	created, err := orch.ImportCustomer(context.Background(), platform.Customer{
		ID: "ext_cust_1", Email: "A@B.com", FirstName: "Ada",
	})
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindCustomerByExternalID("ext_cust_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, local.ID, found.ID)
	assert.Equal(t, "Ada", found.FirstName)
}

func TestTranslateOrderStatus(t *testing.T) {
	tests := []struct {
		remote string
		local  string
	}{
		{"pending", "pending"},
		{"processing", "processing"},
		{"on-hold", "on_hold"},
		{"completed", "completed"},
		{"cancelled", "cancelled"},
		{"refunded", "refunded"},
		{"failed", "failed"},
		{"trash", "cancelled"},
		{"custom-status", "custom-status"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.local, TranslateOrderStatus(tt.remote))
		})
	}
}
