package storage

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu sync.Mutex

	categories      map[int64]*Category
	shippingClasses map[int64]*ShippingClass
	customers       map[int64]*Customer
	products        map[int64]*Product
	orders          map[int64]*Order
	jobs            map[string]*SyncJob
	logs            []SyncLogEntry
	nextID          int64
	nextLogID       int64

	// Hooks for test assertions
	SaveCategoryCalled bool
	SaveCustomerCalled bool
	SaveProductCalled  bool
	SaveOrderCalled    bool
	AppendLogCalled    bool
	LastSavedOrder     *Order

	// Error injection for testing error paths
	SaveCategoryErr  error
	SaveCustomerErr  error
	SaveProductErr   error
	SaveOrderErr     error
	CreateJobErr     error
	AppendSyncLogErr error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		categories:      make(map[int64]*Category),
		shippingClasses: make(map[int64]*ShippingClass),
		customers:       make(map[int64]*Customer),
		products:        make(map[int64]*Product),
		orders:          make(map[int64]*Order),
		jobs:            make(map[string]*SyncJob),
		nextID:          1,
		nextLogID:       1,
	}
}

// Close is a no-op for the mock
func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) allocID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// --- Categories ---

func (m *MockRepository) FindCategoryByExternalID(externalID string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if externalID == "" {
		return nil, nil
	}
	for _, c := range m.categories {
		if c.ExternalID == externalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindCategoryBySlug(slug string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slug == "" {
		return nil, nil
	}
	for _, c := range m.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SaveCategory(c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCategoryCalled = true
	if m.SaveCategoryErr != nil {
		return m.SaveCategoryErr
	}
	now := time.Now()
	c.UpdatedAt = now
	if c.ID == 0 {
		c.ID = m.allocID()
		c.CreatedAt = now
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

// --- Shipping classes ---

func (m *MockRepository) FindShippingClassByExternalID(externalID string) (*ShippingClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if externalID == "" {
		return nil, nil
	}
	for _, sc := range m.shippingClasses {
		if sc.ExternalID == externalID {
			cp := *sc
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindShippingClassBySlug(slug string) (*ShippingClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slug == "" {
		return nil, nil
	}
	for _, sc := range m.shippingClasses {
		if sc.Slug == slug {
			cp := *sc
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SaveShippingClass(sc *ShippingClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	sc.UpdatedAt = now
	if sc.ID == 0 {
		sc.ID = m.allocID()
		sc.CreatedAt = now
	}
	cp := *sc
	m.shippingClasses[sc.ID] = &cp
	return nil
}

// --- Customers ---

func (m *MockRepository) FindCustomerByExternalID(externalID string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if externalID == "" {
		return nil, nil
	}
	for _, c := range m.customers {
		if c.ExternalID == externalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindCustomerByEmail(email string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email == "" {
		return nil, nil
	}
	for _, c := range m.customers {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SaveCustomer(c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCustomerCalled = true
	if m.SaveCustomerErr != nil {
		return m.SaveCustomerErr
	}
	now := time.Now()
	c.UpdatedAt = now
	if c.ID == 0 {
		c.ID = m.allocID()
		c.CreatedAt = now
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

// --- Products ---

func (m *MockRepository) FindProductByExternalID(externalID string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if externalID == "" {
		return nil, nil
	}
	for _, p := range m.products {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindProductBySKU(sku string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sku == "" {
		return nil, nil
	}
	for _, p := range m.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SaveProduct(p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveProductCalled = true
	if m.SaveProductErr != nil {
		return m.SaveProductErr
	}
	now := time.Now()
	p.UpdatedAt = now
	if p.ID == 0 {
		p.ID = m.allocID()
		p.CreatedAt = now
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// --- Orders ---

func (m *MockRepository) FindOrderByExternalID(externalID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if externalID == "" {
		return nil, nil
	}
	for _, o := range m.orders {
		if o.ExternalID == externalID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindOrderByNumber(number string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if number == "" {
		return nil, nil
	}
	for _, o := range m.orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SaveOrder(o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveOrderCalled = true
	if m.SaveOrderErr != nil {
		return m.SaveOrderErr
	}
	now := time.Now()
	o.UpdatedAt = now
	if o.ID == 0 {
		o.ID = m.allocID()
		o.CreatedAt = now
	}
	cp := *o
	m.orders[o.ID] = &cp
	m.LastSavedOrder = &cp
	return nil
}

// --- Jobs ---

func (m *MockRepository) CreateJob(job *SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateJobErr != nil {
		return m.CreateJobErr
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	if job.CurrentPage == 0 {
		job.CurrentPage = 1
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockRepository) UpdateJobProgress(job *SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[job.ID]
	if !ok {
		return nil
	}
	stored.CurrentPage = job.CurrentPage
	stored.TotalPages = job.TotalPages
	stored.TotalItems = job.TotalItems
	stored.ImportedCount = job.ImportedCount
	stored.UpdatedCount = job.UpdatedCount
	stored.ErrorCount = job.ErrorCount
	stored.ErrorLog = append([]JobError(nil), job.ErrorLog...)
	return nil
}

func (m *MockRepository) SetJobStatus(jobID string, status JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil
	}
	job.Status = status
	now := time.Now()
	switch status {
	case JobStatusPaused:
		job.PausedAt = &now
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		job.CompletedAt = &now
	}
	return nil
}

func (m *MockRepository) TransitionJobStatus(jobID string, to JobStatus, from ...JobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		allowed := false
		for _, f := range from {
			if job.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, nil
		}
	}
	job.Status = to
	now := time.Now()
	switch to {
	case JobStatusPaused:
		job.PausedAt = &now
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		job.CompletedAt = &now
	}
	return true, nil
}

func (m *MockRepository) GetActiveJob(kind JobKind) (*SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *SyncJob
	for _, job := range m.jobs {
		if job.Kind != kind || !job.IsActive() {
			continue
		}
		if newest == nil || job.StartedAt.After(newest.StartedAt) {
			newest = job
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (m *MockRepository) GetJobByID(jobID string) (*SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *MockRepository) ListJobs(filters JobFilters) ([]*SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*SyncJob
	for _, job := range m.jobs {
		if filters.Kind != "" && job.Kind != filters.Kind {
			continue
		}
		if filters.Status != "" && job.Status != filters.Status {
			continue
		}
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *MockRepository) CreateResumeJob(parent *SyncJob, newID string) (*SyncJob, error) {
	m.mu.Lock()
	resumed := &SyncJob{
		ID:               newID,
		Kind:             parent.Kind,
		Status:           JobStatusRunning,
		CurrentPage:      parent.CurrentPage,
		TotalPages:       parent.TotalPages,
		TotalItems:       parent.TotalItems,
		ImportedCount:    parent.ImportedCount,
		UpdatedCount:     parent.UpdatedCount,
		ErrorCount:       parent.ErrorCount,
		ErrorLog:         append([]JobError(nil), parent.ErrorLog...),
		StartedAt:        time.Now(),
		ResumedFromJobID: parent.ID,
	}
	cp := *resumed
	m.jobs[newID] = &cp
	m.mu.Unlock()

	if err := m.SetJobStatus(parent.ID, JobStatusCompleted); err != nil {
		return nil, err
	}
	return resumed, nil
}

func (m *MockRepository) DeleteOldJobs(retentionDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var deleted int64
	for id, job := range m.jobs {
		if job.IsActive() || !job.StartedAt.Before(cutoff) {
			continue
		}
		delete(m.jobs, id)
		deleted++
	}
	return deleted, nil
}

// --- Sync logs ---

func (m *MockRepository) AppendSyncLog(entry *SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendLogCalled = true
	if m.AppendSyncLogErr != nil {
		return m.AppendSyncLogErr
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.ID = m.nextLogID
	m.nextLogID++
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *MockRepository) ListSyncLogs(filters SyncLogFilters) ([]SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []SyncLogEntry
	for i := len(m.logs) - 1; i >= 0; i-- {
		e := m.logs[i]
		if filters.EntityType != "" && e.EntityType != filters.EntityType {
			continue
		}
		if filters.EntityID != "" && e.EntityID != filters.EntityID {
			continue
		}
		if filters.Outcome != "" && string(e.Outcome) != filters.Outcome {
			continue
		}
		entries = append(entries, e)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Stats{
		Categories:      len(m.categories),
		ShippingClasses: len(m.shippingClasses),
		Customers:       len(m.customers),
		Products:        len(m.products),
		Orders:          len(m.orders),
		LogOutcomes:     make(map[string]int),
		JobStatuses:     make(map[string]int),
	}
	for _, c := range m.categories {
		if c.SyncStatus == SyncStatusPending {
			stats.PendingEntities++
		}
	}
	for _, p := range m.products {
		if p.SyncStatus == SyncStatusPending {
			stats.PendingEntities++
		}
	}
	for _, e := range m.logs {
		stats.LogOutcomes[string(e.Outcome)]++
	}
	for _, j := range m.jobs {
		stats.JobStatuses[string(j.Status)]++
	}
	return stats, nil
}

// LogCount returns the number of ledger rows (test helper)
func (m *MockRepository) LogCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

// EntityCount returns the total number of stored entities (test helper)
func (m *MockRepository) EntityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.categories) + len(m.shippingClasses) + len(m.customers) + len(m.products) + len(m.orders)
}
