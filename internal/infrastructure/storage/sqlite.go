package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for synced entities, jobs and
// the sync ledger. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// noRows converts sql.ErrNoRows to the (nil, nil) contract of Find* methods
func noRows(err error) bool {
	return err == sql.ErrNoRows
}

// --- Categories ---

const categoryColumns = `id, external_id, slug, name, parent_id, sync_status, created_at, updated_at`

func (s *Storage) scanCategory(row *sql.Row) (*Category, error) {
	c := &Category{}
	var parentID sql.NullInt64
	err := row.Scan(&c.ID, &c.ExternalID, &c.Slug, &c.Name, &parentID, &c.SyncStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return c, nil
}

// FindCategoryByExternalID looks up a category by its remote identifier
func (s *Storage) FindCategoryByExternalID(externalID string) (*Category, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE external_id = ?`, externalID)
	return s.scanCategory(row)
}

// FindCategoryBySlug looks up a category by its natural key
func (s *Storage) FindCategoryBySlug(slug string) (*Category, error) {
	if slug == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)
	return s.scanCategory(row)
}

// SaveCategory inserts the category when ID is zero, updates it otherwise
func (s *Storage) SaveCategory(c *Category) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	if c.ID == 0 {
		c.CreatedAt = now
		res, err := s.db.Exec(`
		INSERT INTO categories (external_id, slug, name, parent_id, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ExternalID, c.Slug, c.Name, nullInt64(c.ParentID), c.SyncStatus, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		c.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.db.Exec(`
	UPDATE categories SET external_id = ?, slug = ?, name = ?, parent_id = ?, sync_status = ?, updated_at = ?
	WHERE id = ?`,
		c.ExternalID, c.Slug, c.Name, nullInt64(c.ParentID), c.SyncStatus, c.UpdatedAt, c.ID)
	return err
}

// --- Shipping classes ---

const shippingClassColumns = `id, external_id, slug, name, sync_status, created_at, updated_at`

func (s *Storage) scanShippingClass(row *sql.Row) (*ShippingClass, error) {
	sc := &ShippingClass{}
	err := row.Scan(&sc.ID, &sc.ExternalID, &sc.Slug, &sc.Name, &sc.SyncStatus, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sc, nil
}

// FindShippingClassByExternalID looks up a shipping class by its remote identifier
func (s *Storage) FindShippingClassByExternalID(externalID string) (*ShippingClass, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+shippingClassColumns+` FROM shipping_classes WHERE external_id = ?`, externalID)
	return s.scanShippingClass(row)
}

// FindShippingClassBySlug looks up a shipping class by its natural key
func (s *Storage) FindShippingClassBySlug(slug string) (*ShippingClass, error) {
	if slug == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+shippingClassColumns+` FROM shipping_classes WHERE slug = ?`, slug)
	return s.scanShippingClass(row)
}

// SaveShippingClass inserts the shipping class when ID is zero, updates it otherwise
func (s *Storage) SaveShippingClass(sc *ShippingClass) error {
	now := time.Now().UTC()
	sc.UpdatedAt = now

	if sc.ID == 0 {
		sc.CreatedAt = now
		res, err := s.db.Exec(`
		INSERT INTO shipping_classes (external_id, slug, name, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			sc.ExternalID, sc.Slug, sc.Name, sc.SyncStatus, sc.CreatedAt, sc.UpdatedAt)
		if err != nil {
			return err
		}
		sc.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.db.Exec(`
	UPDATE shipping_classes SET external_id = ?, slug = ?, name = ?, sync_status = ?, updated_at = ?
	WHERE id = ?`,
		sc.ExternalID, sc.Slug, sc.Name, sc.SyncStatus, sc.UpdatedAt, sc.ID)
	return err
}

// --- Customers ---

const customerColumns = `id, external_id, email, first_name, last_name, sync_status, created_at, updated_at`

func (s *Storage) scanCustomer(row *sql.Row) (*Customer, error) {
	c := &Customer{}
	err := row.Scan(&c.ID, &c.ExternalID, &c.Email, &c.FirstName, &c.LastName, &c.SyncStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// FindCustomerByExternalID looks up a customer by its remote identifier
func (s *Storage) FindCustomerByExternalID(externalID string) (*Customer, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+customerColumns+` FROM customers WHERE external_id = ?`, externalID)
	return s.scanCustomer(row)
}

// FindCustomerByEmail looks up a customer by its natural key
func (s *Storage) FindCustomerByEmail(email string) (*Customer, error) {
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+customerColumns+` FROM customers WHERE email = ? COLLATE NOCASE`, email)
	return s.scanCustomer(row)
}

// SaveCustomer inserts the customer when ID is zero, updates it otherwise
func (s *Storage) SaveCustomer(c *Customer) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	if c.ID == 0 {
		c.CreatedAt = now
		res, err := s.db.Exec(`
		INSERT INTO customers (external_id, email, first_name, last_name, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ExternalID, c.Email, c.FirstName, c.LastName, c.SyncStatus, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		c.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.db.Exec(`
	UPDATE customers SET external_id = ?, email = ?, first_name = ?, last_name = ?, sync_status = ?, updated_at = ?
	WHERE id = ?`,
		c.ExternalID, c.Email, c.FirstName, c.LastName, c.SyncStatus, c.UpdatedAt, c.ID)
	return err
}

// --- Products ---

const productColumns = `id, external_id, sku, name, price, category_id, shipping_class_id, sync_status, created_at, updated_at`

func (s *Storage) scanProduct(row *sql.Row) (*Product, error) {
	p := &Product{}
	var categoryID, shippingClassID sql.NullInt64
	err := row.Scan(&p.ID, &p.ExternalID, &p.SKU, &p.Name, &p.Price, &categoryID, &shippingClassID, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	if shippingClassID.Valid {
		p.ShippingClassID = &shippingClassID.Int64
	}
	return p, nil
}

// FindProductByExternalID looks up a product by its remote identifier
func (s *Storage) FindProductByExternalID(externalID string) (*Product, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE external_id = ?`, externalID)
	return s.scanProduct(row)
}

// FindProductBySKU looks up a product by its natural key
func (s *Storage) FindProductBySKU(sku string) (*Product, error) {
	if sku == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	return s.scanProduct(row)
}

// SaveProduct inserts the product when ID is zero, updates it otherwise
func (s *Storage) SaveProduct(p *Product) error {
	now := time.Now().UTC()
	p.UpdatedAt = now

	if p.ID == 0 {
		p.CreatedAt = now
		res, err := s.db.Exec(`
		INSERT INTO products (external_id, sku, name, price, category_id, shipping_class_id, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ExternalID, p.SKU, p.Name, p.Price, nullInt64(p.CategoryID), nullInt64(p.ShippingClassID), p.SyncStatus, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.db.Exec(`
	UPDATE products SET external_id = ?, sku = ?, name = ?, price = ?, category_id = ?, shipping_class_id = ?, sync_status = ?, updated_at = ?
	WHERE id = ?`,
		p.ExternalID, p.SKU, p.Name, p.Price, nullInt64(p.CategoryID), nullInt64(p.ShippingClassID), p.SyncStatus, p.UpdatedAt, p.ID)
	return err
}

// --- Orders ---

const orderColumns = `id, external_id, number, customer_id, status, total, currency, lines_json, created_at, updated_at`

func (s *Storage) scanOrder(row *sql.Row) (*Order, error) {
	o := &Order{}
	var customerID sql.NullInt64
	err := row.Scan(&o.ID, &o.ExternalID, &o.Number, &customerID, &o.Status, &o.Total, &o.Currency, &o.LinesJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if customerID.Valid {
		o.CustomerID = &customerID.Int64
	}
	// Lines are optional enrichment; a decode failure leaves them empty
	_ = o.DecodeLines()
	return o, nil
}

// FindOrderByExternalID looks up an order by its remote identifier
func (s *Storage) FindOrderByExternalID(externalID string) (*Order, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE external_id = ?`, externalID)
	return s.scanOrder(row)
}

// FindOrderByNumber looks up an order by its natural key
func (s *Storage) FindOrderByNumber(number string) (*Order, error) {
	if number == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE number = ?`, number)
	return s.scanOrder(row)
}

// SaveOrder inserts the order when ID is zero, updates it otherwise
func (s *Storage) SaveOrder(o *Order) error {
	if err := o.EncodeLines(); err != nil {
		return fmt.Errorf("failed to encode order lines: %w", err)
	}

	now := time.Now().UTC()
	o.UpdatedAt = now

	if o.ID == 0 {
		o.CreatedAt = now
		res, err := s.db.Exec(`
		INSERT INTO orders (external_id, number, customer_id, status, total, currency, lines_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ExternalID, o.Number, nullInt64(o.CustomerID), o.Status, o.Total, o.Currency, o.LinesJSON, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		o.ID, err = res.LastInsertId()
		return err
	}

	_, err := s.db.Exec(`
	UPDATE orders SET external_id = ?, number = ?, customer_id = ?, status = ?, total = ?, currency = ?, lines_json = ?, updated_at = ?
	WHERE id = ?`,
		o.ExternalID, o.Number, nullInt64(o.CustomerID), o.Status, o.Total, o.Currency, o.LinesJSON, o.UpdatedAt, o.ID)
	return err
}

// nullInt64 converts an optional foreign key for SQL binding
func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
