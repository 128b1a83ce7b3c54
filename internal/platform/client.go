package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/erpsync/backend/internal/infrastructure/config"
)

const (
	maxRetries   = 3
	retryWaitMin = 2 * time.Second
	retryWaitMax = 30 * time.Second
)

// ErrNotFound is returned when the platform reports a missing entity
var ErrNotFound = errors.New("platform: not found")

// IsNotFound reports whether err is a missing-entity response
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Client talks to the remote storefront REST API. It is stateless apart
// from cached credentials, which can be hot-reloaded via ReloadCredentials.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	key     string
	secret  string

	timeout time.Duration
	http    *retryablehttp.Client
	logger  *slog.Logger

	retries atomic.Int64
}

// Compile-time check that Client implements API
var _ API = (*Client)(nil)

// NewClient creates a platform client from config
func NewClient(cfg config.PlatformConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		key:     cfg.ConsumerKey,
		secret:  cfg.ConsumerSecret,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.Logger = nil
	rc.CheckRetry = c.checkRetry
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			c.retries.Add(1)
			logger.Warn("retrying platform request",
				"method", req.Method,
				"url", req.URL.Path,
				"attempt", attempt,
			)
		}
	}
	rc.ErrorHandler = func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err == nil && resp != nil {
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("transfer failed after %d retries: %w", numTries-1, err)
	}
	c.http = rc

	return c
}

// checkRetry retries transient transport failures and gateway errors only.
// Context cancellation always wins.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// Connection reset, timeout, DNS failure and friends
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// ReloadCredentials swaps the cached credentials after a config change
func (c *Client) ReloadCredentials(cfg config.PlatformConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = cfg.BaseURL
	c.key = cfg.ConsumerKey
	c.secret = cfg.ConsumerSecret
	c.logger.Info("platform credentials reloaded")
}

// Retries returns the total number of retry attempts made by this client
func (c *Client) Retries() int64 {
	return c.retries.Load()
}

// Request performs one authenticated call against the platform. Every call
// carries the configured timeout, enforced via context cancellation,
// independent of retry backoff.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	c.mu.RLock()
	baseURL, key, secret := c.baseURL, c.key, c.secret
	c.mu.RUnlock()

	if key == "" || secret == "" {
		return nil, fmt.Errorf("platform credentials not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(key, secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("platform rejected credentials: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, truncate(data, 200))
	}

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	data, err := c.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	data, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// --- Single-entity fetches ---

func (c *Client) GetCategory(ctx context.Context, id string) (*Category, error) {
	var cat Category
	if err := c.getJSON(ctx, "/categories/"+url.PathEscape(id), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) GetShippingClass(ctx context.Context, id string) (*ShippingClass, error) {
	var sc ShippingClass
	if err := c.getJSON(ctx, "/shipping_classes/"+url.PathEscape(id), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var cust Customer
	if err := c.getJSON(ctx, "/customers/"+url.PathEscape(id), &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.getJSON(ctx, "/orders/"+url.PathEscape(id), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// --- Paginated lists ---

func listPage[T any](ctx context.Context, c *Client, endpoint string, page, perPage int) ([]T, int, error) {
	var env listEnvelope[T]
	endpoint = fmt.Sprintf("%s?page=%d&per_page=%d", endpoint, page, perPage)
	if err := c.getJSON(ctx, endpoint, &env); err != nil {
		return nil, 0, err
	}
	return env.Items, env.TotalCount, nil
}

func (c *Client) ListCategories(ctx context.Context, page, perPage int) ([]Category, int, error) {
	return listPage[Category](ctx, c, "/categories", page, perPage)
}

func (c *Client) ListShippingClasses(ctx context.Context, page, perPage int) ([]ShippingClass, int, error) {
	return listPage[ShippingClass](ctx, c, "/shipping_classes", page, perPage)
}

func (c *Client) ListCustomers(ctx context.Context, page, perPage int) ([]Customer, int, error) {
	return listPage[Customer](ctx, c, "/customers", page, perPage)
}

func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error) {
	return listPage[Product](ctx, c, "/products", page, perPage)
}

func (c *Client) ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error) {
	return listPage[Order](ctx, c, "/orders", page, perPage)
}

// --- Export ---

func (c *Client) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	var created Product
	if err := c.sendJSON(ctx, http.MethodPost, "/products", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	var updated Product
	if err := c.sendJSON(ctx, http.MethodPut, "/products/"+url.PathEscape(p.ID), p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	var updated Order
	body := map[string]string{"status": status}
	if err := c.sendJSON(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
