// Package platform is the HTTP client for the remote storefront REST API.
//
// It owns the retry/backoff/timeout policy and the pagination primitives;
// everything above it works with the typed records defined here.
package platform

import "context"

// Category is a remote product category
type Category struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// ShippingClass is a remote shipping class
type ShippingClass struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Customer is a remote customer record
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Product is a remote product record
type Product struct {
	ID              string  `json:"id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	CategoryID      string  `json:"category_id,omitempty"`
	ShippingClassID string  `json:"shipping_class_id,omitempty"`
}

// OrderLine is one line item on a remote order
type OrderLine struct {
	ProductID string  `json:"product_id"`
	SKU       string  `json:"sku,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
}

// Order is a remote order record
type Order struct {
	ID       string      `json:"id"`
	Number   string      `json:"number"`
	Status   string      `json:"status"`
	Total    float64     `json:"total"`
	Currency string      `json:"currency"`
	Customer Customer    `json:"customer"`
	Lines    []OrderLine `json:"lines"`
}

// listEnvelope is the wire shape of every paginated list endpoint
type listEnvelope[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}

// API is the platform surface the sync engine depends on.
// *Client implements it; tests substitute fakes.
type API interface {
	GetCategory(ctx context.Context, id string) (*Category, error)
	GetShippingClass(ctx context.Context, id string) (*ShippingClass, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetOrder(ctx context.Context, id string) (*Order, error)

	ListCategories(ctx context.Context, page, perPage int) ([]Category, int, error)
	ListShippingClasses(ctx context.Context, page, perPage int) ([]ShippingClass, int, error)
	ListCustomers(ctx context.Context, page, perPage int) ([]Customer, int, error)
	ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error)
	ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error)

	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error)
}
