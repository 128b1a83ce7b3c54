package dto

// StartJobRequest is the body for POST /api/jobs.
type StartJobRequest struct {
	Kind string `json:"kind"`
}

// ImportRequest is the body for POST /api/import/full and /api/import/smart.
// Stages is optional; when empty every stage runs in dependency order.
type ImportRequest struct {
	Stages   []string `json:"stages,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// ExportOrderStatusRequest is the body for POST /api/export/orders.
type ExportOrderStatusRequest struct {
	Number string `json:"number"`
}

// ExportProductRequest is the body for POST /api/export/products.
type ExportProductRequest struct {
	SKU string `json:"sku"`
}
