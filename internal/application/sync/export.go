package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// ExportProductBySKU pushes a local product to the platform: PUT when it
// is already linked to a remote record, POST otherwise (storing the new
// remote id on the local row).
func (o *Orchestrator) ExportProductBySKU(ctx context.Context, sku string) error {
	p, err := o.store.FindProductBySKU(sku)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("product %q not found", sku)
	}

	remote := &platform.Product{
		ID:    p.ExternalID,
		SKU:   p.SKU,
		Name:  p.Name,
		Price: p.Price,
	}

	start := time.Now()
	var result *platform.Product
	if p.ExternalID != "" {
		result, err = o.api.UpdateProduct(ctx, remote)
	} else {
		result, err = o.api.CreateProduct(ctx, remote)
	}
	o.logExport("product", p.ExternalID, remote, result, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to export product %q: %w", sku, err)
	}

	if p.ExternalID == "" && result != nil {
		p.ExternalID = result.ID
	}
	p.SyncStatus = storage.SyncStatusSynced
	return o.store.SaveProduct(p)
}

// ExportOrderStatus pushes a local order's status to the platform
func (o *Orchestrator) ExportOrderStatus(ctx context.Context, orderNumber string) error {
	local, err := o.store.FindOrderByNumber(orderNumber)
	if err != nil {
		return err
	}
	if local == nil {
		return fmt.Errorf("order %q not found", orderNumber)
	}
	if local.ExternalID == "" {
		return fmt.Errorf("order %q has no platform counterpart", orderNumber)
	}

	start := time.Now()
	result, err := o.api.UpdateOrderStatus(ctx, local.ExternalID, local.Status)
	o.logExport("order", local.ExternalID, map[string]string{"status": local.Status}, result, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to export status for order %q: %w", orderNumber, err)
	}
	return nil
}

// logExport appends one ledger row for an export operation
func (o *Orchestrator) logExport(entityType, entityID string, request, response interface{}, exportErr error, duration time.Duration) {
	requestJSON, _ := json.Marshal(request)
	responseJSON, _ := json.Marshal(response)

	entry := &storage.SyncLogEntry{
		Direction:    storage.DirectionToPlatform,
		EntityType:   entityType,
		EntityID:     entityID,
		Action:       storage.ActionExport,
		Outcome:      storage.OutcomeSuccess,
		RequestJSON:  string(requestJSON),
		ResponseJSON: string(responseJSON),
		DurationMs:   duration.Milliseconds(),
	}
	if exportErr != nil {
		entry.Outcome = storage.OutcomeFailed
		entry.Error = exportErr.Error()
	}

	if err := o.store.AppendSyncLog(entry); err != nil {
		o.logger.Warn("failed to append sync log", "entity_type", entityType, "error", err)
	}
}
