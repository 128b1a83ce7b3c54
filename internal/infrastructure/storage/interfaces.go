package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	EntityRepository
	JobRepository
	SyncLogRepository
	Close() error
}

// EntityRepository handles local entity lookup and upsert.
//
// Find* methods return (nil, nil) when no row matches; an error means
// the lookup itself failed. Save* methods insert when ID is zero
// (setting ID on the model) and update otherwise.
type EntityRepository interface {
	FindCategoryByExternalID(externalID string) (*Category, error)
	FindCategoryBySlug(slug string) (*Category, error)
	SaveCategory(c *Category) error

	FindShippingClassByExternalID(externalID string) (*ShippingClass, error)
	FindShippingClassBySlug(slug string) (*ShippingClass, error)
	SaveShippingClass(sc *ShippingClass) error

	FindCustomerByExternalID(externalID string) (*Customer, error)
	FindCustomerByEmail(email string) (*Customer, error)
	SaveCustomer(c *Customer) error

	FindProductByExternalID(externalID string) (*Product, error)
	FindProductBySKU(sku string) (*Product, error)
	SaveProduct(p *Product) error

	FindOrderByExternalID(externalID string) (*Order, error)
	FindOrderByNumber(number string) (*Order, error)
	SaveOrder(o *Order) error
}

// JobRepository handles persisted sync job state
type JobRepository interface {
	// CreateJob inserts a new job record
	CreateJob(job *SyncJob) error

	// UpdateJobProgress persists a job's page counters and error log
	UpdateJobProgress(job *SyncJob) error

	// SetJobStatus transitions a job, stamping paused_at/completed_at as appropriate
	SetJobStatus(jobID string, status JobStatus) error

	// TransitionJobStatus moves a job to the given status only when its
	// current status is one of from, reporting whether a row changed
	TransitionJobStatus(jobID string, to JobStatus, from ...JobStatus) (bool, error)

	// GetActiveJob returns the RUNNING or PAUSED job for a kind, or (nil, nil)
	GetActiveJob(kind JobKind) (*SyncJob, error)

	// GetJobByID retrieves a job, or (nil, nil) if unknown
	GetJobByID(jobID string) (*SyncJob, error)

	// ListJobs returns jobs matching the filters, newest first
	ListJobs(filters JobFilters) ([]*SyncJob, error)

	// CreateResumeJob atomically inserts a new running job seeded from the
	// parent's counters and marks the parent completed, so only one record
	// stays active for the logical stream.
	CreateResumeJob(parent *SyncJob, newID string) (*SyncJob, error)

	// DeleteOldJobs removes terminal jobs older than retentionDays, returning the count
	DeleteOldJobs(retentionDays int) (int64, error)
}

// SyncLogRepository handles the append-only sync ledger
type SyncLogRepository interface {
	// AppendSyncLog writes one ledger row; rows are never mutated
	AppendSyncLog(entry *SyncLogEntry) error

	// ListSyncLogs returns ledger rows matching the filters, newest first
	ListSyncLogs(filters SyncLogFilters) ([]SyncLogEntry, error)

	// GetStats returns aggregate entity/ledger/job statistics
	GetStats() (*Stats, error)
}
