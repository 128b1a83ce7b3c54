package platform

import (
	"context"
	"fmt"
	"sync"
)

// MockAPI is an in-memory implementation of API for testing. Seed the
// entity slices, then point the code under test at it. List methods
// paginate over the slices; Get methods return ErrNotFound for unknown
// ids. Fn overrides and error fields let tests inject failures.
type MockAPI struct {
	mu sync.Mutex

	Categories      []Category
	ShippingClasses []ShippingClass
	Customers       []Customer
	Products        []Product
	Orders          []Order

	// Error injection for Get methods
	GetCategoryErr      error
	GetShippingClassErr error
	GetCustomerErr      error
	GetProductErr       error
	GetOrderErr         error

	// Optional overrides for List methods
	ListCategoriesFn      PageFunc[Category]
	ListShippingClassesFn PageFunc[ShippingClass]
	ListCustomersFn       PageFunc[Customer]
	ListProductsFn        PageFunc[Product]
	ListOrdersFn          PageFunc[Order]

	// Call counters for assertions
	GetCategoryCalls int
	GetCustomerCalls int
	GetProductCalls  int
	ListOrdersCalls  int
}

// Compile-time check that MockAPI implements API
var _ API = (*MockAPI)(nil)

func (m *MockAPI) GetCategory(ctx context.Context, id string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCategoryCalls++
	if m.GetCategoryErr != nil {
		return nil, m.GetCategoryErr
	}
	for _, c := range m.Categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
}

func (m *MockAPI) GetShippingClass(ctx context.Context, id string) (*ShippingClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetShippingClassErr != nil {
		return nil, m.GetShippingClassErr
	}
	for _, sc := range m.ShippingClasses {
		if sc.ID == id {
			cp := sc
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("shipping class %s: %w", id, ErrNotFound)
}

func (m *MockAPI) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCustomerCalls++
	if m.GetCustomerErr != nil {
		return nil, m.GetCustomerErr
	}
	for _, c := range m.Customers {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
}

func (m *MockAPI) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetProductCalls++
	if m.GetProductErr != nil {
		return nil, m.GetProductErr
	}
	for _, p := range m.Products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
}

func (m *MockAPI) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetOrderErr != nil {
		return nil, m.GetOrderErr
	}
	for _, o := range m.Orders {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func (m *MockAPI) ListCategories(ctx context.Context, page, perPage int) ([]Category, int, error) {
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, page, perPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePage(m.Categories, page, perPage), len(m.Categories), nil
}

func (m *MockAPI) ListShippingClasses(ctx context.Context, page, perPage int) ([]ShippingClass, int, error) {
	if m.ListShippingClassesFn != nil {
		return m.ListShippingClassesFn(ctx, page, perPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePage(m.ShippingClasses, page, perPage), len(m.ShippingClasses), nil
}

func (m *MockAPI) ListCustomers(ctx context.Context, page, perPage int) ([]Customer, int, error) {
	if m.ListCustomersFn != nil {
		return m.ListCustomersFn(ctx, page, perPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePage(m.Customers, page, perPage), len(m.Customers), nil
}

func (m *MockAPI) ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error) {
	if m.ListProductsFn != nil {
		return m.ListProductsFn(ctx, page, perPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePage(m.Products, page, perPage), len(m.Products), nil
}

func (m *MockAPI) ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error) {
	m.mu.Lock()
	m.ListOrdersCalls++
	m.mu.Unlock()
	if m.ListOrdersFn != nil {
		return m.ListOrdersFn(ctx, page, perPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePage(m.Orders, page, perPage), len(m.Orders), nil
}

func (m *MockAPI) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *p
	created.ID = fmt.Sprintf("mock_prod_%d", len(m.Products)+1)
	m.Products = append(m.Products, created)
	cp := created
	return &cp, nil
}

func (m *MockAPI) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.Products {
		if existing.ID == p.ID {
			m.Products[i] = *p
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
}

func (m *MockAPI) UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.Orders {
		if o.ID == id {
			m.Orders[i].Status = status
			cp := m.Orders[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func slicePage[T any](items []T, page, perPage int) []T {
	if page < 1 || perPage < 1 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
