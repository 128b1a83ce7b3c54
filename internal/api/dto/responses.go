package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// MessageResponse is a simple acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// JobErrorResponse represents one job error log entry.
type JobErrorResponse struct {
	Page      int    `json:"page"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// JobResponse represents a sync job in API responses.
type JobResponse struct {
	JobID          string             `json:"job_id"`
	Kind           string             `json:"kind"`
	Status         string             `json:"status"`
	CurrentPage    int                `json:"current_page"`
	TotalPages     int                `json:"total_pages"`
	TotalItems     int                `json:"total_items"`
	ImportedCount  int                `json:"imported_count"`
	UpdatedCount   int                `json:"updated_count"`
	ErrorCount     int                `json:"error_count"`
	Progress       float64            `json:"progress"`
	Errors         []JobErrorResponse `json:"errors,omitempty"`
	ResumedFrom    string             `json:"resumed_from,omitempty"`
	StartedAt      string             `json:"started_at"`
	PausedAt       *string            `json:"paused_at,omitempty"`
	CompletedAt    *string            `json:"completed_at,omitempty"`
	AlreadyRunning bool               `json:"already_running,omitempty"`
}

// JobListResponse is returned when listing sync jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// DeletedResponse reports how many rows a prune removed.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// StageResultResponse represents one import stage in API responses.
type StageResultResponse struct {
	Stage    string   `json:"stage"`
	Pages    int      `json:"pages"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

// ImportResultResponse is returned by the bulk import endpoints.
type ImportResultResponse struct {
	Stages      []StageResultResponse `json:"stages"`
	Imported    int                   `json:"imported"`
	Updated     int                   `json:"updated"`
	Errors      int                   `json:"errors"`
	AutoCreated map[string]int        `json:"auto_created,omitempty"`
	FailedStage string                `json:"failed_stage,omitempty"`
	DurationMs  int64                 `json:"duration_ms"`
}

// SyncLogResponse represents one ledger entry in API responses.
type SyncLogResponse struct {
	ID         int64  `json:"id"`
	Direction  string `json:"direction"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// SyncLogListResponse is returned when listing ledger entries.
type SyncLogListResponse struct {
	Logs  []SyncLogResponse `json:"logs"`
	Count int               `json:"count"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	Categories      int            `json:"categories"`
	ShippingClasses int            `json:"shipping_classes"`
	Customers       int            `json:"customers"`
	Products        int            `json:"products"`
	Orders          int            `json:"orders"`
	PendingEntities int            `json:"pending_entities"`
	LogOutcomes     map[string]int `json:"log_outcomes"`
	JobStatuses     map[string]int `json:"job_statuses"`
}

// WebhookAckResponse is returned by the webhook endpoint.
type WebhookAckResponse struct {
	Processed bool   `json:"processed"`
	Created   bool   `json:"created"`
	Reason    string `json:"reason,omitempty"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
