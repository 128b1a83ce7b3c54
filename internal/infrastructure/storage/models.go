package storage

import (
	"encoding/json"
	"time"
)

// SyncStatus marks whether a local entity holds complete remote data.
// Placeholder entities created from partial inline data are "pending"
// until a later run re-fetches them.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
)

// JobKind identifies which remote collection a sync job walks.
type JobKind string

const (
	JobKindCustomers JobKind = "customers"
	JobKindProducts  JobKind = "products"
	JobKindOrders    JobKind = "orders"
)

// JobStatus is the lifecycle state of a sync job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Category is a local product category linked to its remote counterpart
type Category struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	ParentID   *int64     `json:"parent_id,omitempty"`
	SyncStatus SyncStatus `json:"sync_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ShippingClass is a local shipping class linked to its remote counterpart
type ShippingClass struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	SyncStatus SyncStatus `json:"sync_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Customer is a local customer record linked to its remote counterpart
type Customer struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	SyncStatus SyncStatus `json:"sync_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Product is a local product record linked to its remote counterpart
type Product struct {
	ID              int64      `json:"id"`
	ExternalID      string     `json:"external_id"`
	SKU             string     `json:"sku"`
	Name            string     `json:"name"`
	Price           float64    `json:"price"`
	CategoryID      *int64     `json:"category_id,omitempty"`
	ShippingClassID *int64     `json:"shipping_class_id,omitempty"`
	SyncStatus      SyncStatus `json:"sync_status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Order is a local order record linked to its remote counterpart
type Order struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Number     string    `json:"number"`
	CustomerID *int64    `json:"customer_id,omitempty"`
	Status     string    `json:"status"`
	Total      float64   `json:"total"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Line items stored as JSON
	Lines     []OrderLine `json:"lines"`
	LinesJSON string      `json:"-"` // For DB storage
}

// OrderLine is a single line item on an order
type OrderLine struct {
	ProductID         int64   `json:"product_id"`
	ExternalProductID string  `json:"external_product_id"`
	Name              string  `json:"name"`
	Quantity          int     `json:"quantity"`
	Price             float64 `json:"price"`
	Total             float64 `json:"total"`
}

// EncodeLines serializes line items to JSON for storage
func (o *Order) EncodeLines() error {
	if o.Lines == nil {
		o.LinesJSON = "[]"
		return nil
	}
	data, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	o.LinesJSON = string(data)
	return nil
}

// DecodeLines deserializes line items from stored JSON
func (o *Order) DecodeLines() error {
	if o.LinesJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(o.LinesJSON), &o.Lines)
}

// MaxJobErrors bounds the persisted error log; oldest entries are dropped.
const MaxJobErrors = 50

// JobError is one entry in a job's bounded error log
type JobError struct {
	Page      int       `json:"page"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncJob is the persisted state of a resumable paginated transfer
type SyncJob struct {
	ID               string     `json:"id"`
	Kind             JobKind    `json:"kind"`
	Status           JobStatus  `json:"status"`
	CurrentPage      int        `json:"current_page"`
	TotalPages       int        `json:"total_pages"`
	TotalItems       int        `json:"total_items"`
	ImportedCount    int        `json:"imported_count"`
	UpdatedCount     int        `json:"updated_count"`
	ErrorCount       int        `json:"error_count"`
	StartedAt        time.Time  `json:"started_at"`
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ResumedFromJobID string     `json:"resumed_from_job_id,omitempty"`

	// Bounded error log stored as JSON
	ErrorLog     []JobError `json:"error_log"`
	ErrorLogJSON string     `json:"-"` // For DB storage
}

// AppendError adds an entry to the error log, dropping the oldest
// entries beyond MaxJobErrors, and bumps the error count.
func (j *SyncJob) AppendError(page int, message string) {
	j.ErrorCount++
	j.ErrorLog = append(j.ErrorLog, JobError{
		Page:      page,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(j.ErrorLog) > MaxJobErrors {
		j.ErrorLog = j.ErrorLog[len(j.ErrorLog)-MaxJobErrors:]
	}
}

// IsActive reports whether the job still owns its logical stream
func (j *SyncJob) IsActive() bool {
	return j.Status == JobStatusRunning || j.Status == JobStatusPaused
}

// Progress returns completion as a fraction in [0, 1]
func (j *SyncJob) Progress() float64 {
	if j.TotalPages <= 0 {
		return 0
	}
	p := float64(j.CurrentPage-1) / float64(j.TotalPages)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// EncodeErrorLog serializes the error log for storage
func (j *SyncJob) EncodeErrorLog() error {
	if j.ErrorLog == nil {
		j.ErrorLogJSON = "[]"
		return nil
	}
	data, err := json.Marshal(j.ErrorLog)
	if err != nil {
		return err
	}
	j.ErrorLogJSON = string(data)
	return nil
}

// DecodeErrorLog deserializes the error log from stored JSON
func (j *SyncJob) DecodeErrorLog() error {
	if j.ErrorLogJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(j.ErrorLogJSON), &j.ErrorLog)
}

// SyncDirection tells which side initiated the data movement
type SyncDirection string

const (
	DirectionFromPlatform SyncDirection = "from_platform"
	DirectionToPlatform   SyncDirection = "to_platform"
)

// SyncAction is what the operation did to the entity
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionImport SyncAction = "import"
	ActionExport SyncAction = "export"
)

// SyncOutcome is the terminal result of one sync operation
type SyncOutcome string

const (
	OutcomeSuccess SyncOutcome = "success"
	OutcomeFailed  SyncOutcome = "failed"
	OutcomePending SyncOutcome = "pending"
)

// SyncLogEntry is one row of the append-only sync ledger.
// Entries are never mutated after creation.
type SyncLogEntry struct {
	ID           int64         `json:"id"`
	Direction    SyncDirection `json:"direction"`
	EntityType   string        `json:"entity_type"`
	EntityID     string        `json:"entity_id"`
	Action       SyncAction    `json:"action"`
	Outcome      SyncOutcome   `json:"outcome"`
	RequestJSON  string        `json:"request_json,omitempty"`
	ResponseJSON string        `json:"response_json,omitempty"`
	Error        string        `json:"error,omitempty"`
	DurationMs   int64         `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SyncLogFilters narrows ledger queries
type SyncLogFilters struct {
	EntityType string
	EntityID   string
	Outcome    string
	Limit      int // 0 = default 100
}

// JobFilters narrows job list queries
type JobFilters struct {
	Kind   JobKind   // empty = all
	Status JobStatus // empty = all
	Limit  int       // 0 = default 50
}

// Stats contains aggregate sync statistics
type Stats struct {
	Categories      int            `json:"categories"`
	ShippingClasses int            `json:"shipping_classes"`
	Customers       int            `json:"customers"`
	Products        int            `json:"products"`
	Orders          int            `json:"orders"`
	PendingEntities int            `json:"pending_entities"`
	LogOutcomes     map[string]int `json:"log_outcomes"`
	JobStatuses     map[string]int `json:"job_statuses"`
}
