package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erpsync/backend/internal/application/resolver"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// Per-record importers. Bulk import, page-by-page jobs and webhook
// ingestion all route through these, so the upsert behavior is identical
// no matter how a record arrives.
//
// Each importer matches by external id first, then by natural key
// (backfilling the external id), and creates otherwise. The returned
// bool is true when a new local row was created.

// ImportCategory upserts one remote category
func (o *Orchestrator) ImportCategory(ctx context.Context, rec platform.Category) (bool, error) {
	start := time.Now()

	existing, err := o.store.FindCategoryByExternalID(rec.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		existing, err = o.store.FindCategoryBySlug(rec.Slug)
		if err != nil {
			return false, err
		}
	}

	var parentID *int64
	if rec.ParentID != "" {
		res, err := o.resolver.EnsureCategory(ctx, resolver.Ref{ExternalID: rec.ParentID})
		if err != nil {
			o.logImport("category", rec.ID, rec, err, time.Since(start))
			return false, fmt.Errorf("category %q: %w", rec.ID, err)
		}
		parentID = &res.LocalID
	}

	created := existing == nil
	if created {
		existing = &storage.Category{}
	}
	existing.ExternalID = rec.ID
	existing.Slug = rec.Slug
	existing.Name = rec.Name
	existing.ParentID = parentID
	existing.SyncStatus = storage.SyncStatusSynced

	if err := o.store.SaveCategory(existing); err != nil {
		o.logImport("category", rec.ID, rec, err, time.Since(start))
		return false, fmt.Errorf("category %q: %w", rec.ID, err)
	}
	o.logImport("category", rec.ID, rec, nil, time.Since(start))
	return created, nil
}

// ImportShippingClass upserts one remote shipping class
func (o *Orchestrator) ImportShippingClass(ctx context.Context, rec platform.ShippingClass) (bool, error) {
	start := time.Now()

	existing, err := o.store.FindShippingClassByExternalID(rec.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		existing, err = o.store.FindShippingClassBySlug(rec.Slug)
		if err != nil {
			return false, err
		}
	}

	created := existing == nil
	if created {
		existing = &storage.ShippingClass{}
	}
	existing.ExternalID = rec.ID
	existing.Slug = rec.Slug
	existing.Name = rec.Name
	existing.SyncStatus = storage.SyncStatusSynced

	if err := o.store.SaveShippingClass(existing); err != nil {
		o.logImport("shipping_class", rec.ID, rec, err, time.Since(start))
		return false, fmt.Errorf("shipping class %q: %w", rec.ID, err)
	}
	o.logImport("shipping_class", rec.ID, rec, nil, time.Since(start))
	return created, nil
}

// ImportCustomer upserts one remote customer: external id match first,
// then email, then create.
func (o *Orchestrator) ImportCustomer(ctx context.Context, rec platform.Customer) (bool, error) {
	start := time.Now()

	if rec.Email == "" && rec.ID == "" {
		err := fmt.Errorf("customer record has neither id nor email")
		o.logImport("customer", rec.ID, rec, err, time.Since(start))
		return false, err
	}

	existing, err := o.store.FindCustomerByExternalID(rec.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		existing, err = o.store.FindCustomerByEmail(rec.Email)
		if err != nil {
			return false, err
		}
	}

	created := existing == nil
	if created {
		existing = &storage.Customer{}
	}
	existing.ExternalID = rec.ID
	existing.Email = rec.Email
	existing.FirstName = rec.FirstName
	existing.LastName = rec.LastName
	existing.SyncStatus = storage.SyncStatusSynced

	if err := o.store.SaveCustomer(existing); err != nil {
		o.logImport("customer", rec.ID, rec, err, time.Since(start))
		return false, fmt.Errorf("customer %q: %w", rec.ID, err)
	}
	o.logImport("customer", rec.ID, rec, nil, time.Since(start))
	return created, nil
}

// ImportProduct upserts one remote product, resolving its category and
// shipping class dependencies first.
func (o *Orchestrator) ImportProduct(ctx context.Context, rec platform.Product) (bool, error) {
	start := time.Now()

	existing, err := o.store.FindProductByExternalID(rec.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		existing, err = o.store.FindProductBySKU(rec.SKU)
		if err != nil {
			return false, err
		}
	}

	var categoryID, shippingClassID *int64
	if rec.CategoryID != "" {
		res, err := o.resolver.EnsureCategory(ctx, resolver.Ref{ExternalID: rec.CategoryID})
		if err != nil {
			o.logImport("product", rec.ID, rec, err, time.Since(start))
			return false, fmt.Errorf("product %q: %w", rec.ID, err)
		}
		categoryID = &res.LocalID
	}
	if rec.ShippingClassID != "" {
		res, err := o.resolver.EnsureShippingClass(ctx, resolver.Ref{ExternalID: rec.ShippingClassID})
		if err != nil {
			o.logImport("product", rec.ID, rec, err, time.Since(start))
			return false, fmt.Errorf("product %q: %w", rec.ID, err)
		}
		shippingClassID = &res.LocalID
	}

	created := existing == nil
	if created {
		existing = &storage.Product{}
	}
	existing.ExternalID = rec.ID
	existing.SKU = rec.SKU
	existing.Name = rec.Name
	existing.Price = rec.Price
	existing.CategoryID = categoryID
	existing.ShippingClassID = shippingClassID
	existing.SyncStatus = storage.SyncStatusSynced

	if err := o.store.SaveProduct(existing); err != nil {
		o.logImport("product", rec.ID, rec, err, time.Since(start))
		return false, fmt.Errorf("product %q: %w", rec.ID, err)
	}
	o.logImport("product", rec.ID, rec, nil, time.Since(start))
	return created, nil
}

// ImportOrder upserts one remote order, resolving its customer and the
// product behind every line item first.
func (o *Orchestrator) ImportOrder(ctx context.Context, rec platform.Order) (bool, error) {
	start := time.Now()

	var customerID *int64
	if rec.Customer.ID != "" || rec.Customer.Email != "" {
		res, err := o.resolver.EnsureCustomer(ctx, resolver.Ref{
			ExternalID: rec.Customer.ID,
			Email:      rec.Customer.Email,
			FirstName:  rec.Customer.FirstName,
			LastName:   rec.Customer.LastName,
		})
		if err != nil {
			o.logImport("order", rec.ID, rec, err, time.Since(start))
			return false, fmt.Errorf("order %q: failed to resolve customer: %w", rec.ID, err)
		}
		customerID = &res.LocalID
	}

	lines := make([]storage.OrderLine, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		var productID int64
		if line.ProductID != "" || line.SKU != "" {
			res, err := o.resolver.EnsureProduct(ctx, resolver.Ref{
				ExternalID: line.ProductID,
				SKU:        line.SKU,
				Name:       line.Name,
				Price:      line.Price,
			})
			if err != nil {
				o.logImport("order", rec.ID, rec, err, time.Since(start))
				return false, fmt.Errorf("order %q: failed to resolve product %q: %w", rec.ID, line.ProductID, err)
			}
			productID = res.LocalID
		}
		lines = append(lines, storage.OrderLine{
			ProductID:         productID,
			ExternalProductID: line.ProductID,
			Name:              line.Name,
			Quantity:          line.Quantity,
			Price:             line.Price,
			Total:             line.Total,
		})
	}

	existing, err := o.store.FindOrderByExternalID(rec.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		existing, err = o.store.FindOrderByNumber(rec.Number)
		if err != nil {
			return false, err
		}
	}

	created := existing == nil
	if created {
		existing = &storage.Order{}
	}
	existing.ExternalID = rec.ID
	existing.Number = rec.Number
	existing.CustomerID = customerID
	existing.Status = TranslateOrderStatus(rec.Status)
	existing.Total = rec.Total
	existing.Currency = rec.Currency
	existing.Lines = lines

	if err := o.store.SaveOrder(existing); err != nil {
		o.logImport("order", rec.ID, rec, err, time.Since(start))
		return false, fmt.Errorf("order %q: %w", rec.ID, err)
	}
	o.logImport("order", rec.ID, rec, nil, time.Since(start))
	return created, nil
}

// logImport appends one ledger row for a record import
func (o *Orchestrator) logImport(entityType, entityID string, request interface{}, importErr error, duration time.Duration) {
	requestJSON, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		requestJSON = []byte(fmt.Sprintf(`{"error": "failed to marshal: %v"}`, marshalErr))
	}

	entry := &storage.SyncLogEntry{
		Direction:   storage.DirectionFromPlatform,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      storage.ActionImport,
		Outcome:     storage.OutcomeSuccess,
		RequestJSON: string(requestJSON),
		DurationMs:  duration.Milliseconds(),
	}
	if importErr != nil {
		entry.Outcome = storage.OutcomeFailed
		entry.Error = importErr.Error()
	}

	if err := o.store.AppendSyncLog(entry); err != nil {
		o.logger.Warn("failed to append sync log", "entity_type", entityType, "error", err)
	}
}
