package sync

// Options configures a bulk import run
type Options struct {
	// PageSize overrides the configured platform page size when > 0
	PageSize int

	// Stages limits the run to the named stages (empty = all, in order)
	Stages []string
}

// Stage names, in dependency order. Each later stage may reference
// entities from every earlier one.
const (
	StageCategories      = "categories"
	StageShippingClasses = "shipping_classes"
	StageCustomers       = "customers"
	StageProducts        = "products"
	StageOrders          = "orders"
)

// StageOrder is the fixed execution order for bulk import
var StageOrder = []string{
	StageCategories,
	StageShippingClasses,
	StageCustomers,
	StageProducts,
	StageOrders,
}

// StageResult aggregates one stage of a bulk run
type StageResult struct {
	Stage    string   `json:"stage"`
	Pages    int      `json:"pages"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

// Result aggregates a full bulk import run
type Result struct {
	Stages      []*StageResult `json:"stages"`
	Imported    int            `json:"imported"`
	Updated     int            `json:"updated"`
	Errors      int            `json:"errors"`
	AutoCreated map[string]int `json:"auto_created,omitempty"`

	// FailedStage is set when a stage-level fetch failure aborted the run
	FailedStage string `json:"failed_stage,omitempty"`
}

func (r *Result) addStage(sr *StageResult) {
	r.Stages = append(r.Stages, sr)
	r.Imported += sr.Imported
	r.Updated += sr.Updated
	r.Errors += sr.Errors
}

// orderStatusMap translates platform order statuses to local ones.
// Webhook-driven and poll-driven updates go through this same table so
// the two paths can never diverge.
var orderStatusMap = map[string]string{
	"pending":    "pending",
	"processing": "processing",
	"on-hold":    "on_hold",
	"completed":  "completed",
	"cancelled":  "cancelled",
	"refunded":   "refunded",
	"failed":     "failed",
	"trash":      "cancelled",
}

// TranslateOrderStatus maps a platform order status to the local status.
// Unknown statuses pass through unchanged.
func TranslateOrderStatus(status string) string {
	if mapped, ok := orderStatusMap[status]; ok {
		return mapped
	}
	return status
}
