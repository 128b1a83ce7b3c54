// Package resolver guarantees that referenced entities exist locally
// before anything that depends on them is created.
//
// Resolution is deterministic and idempotent: ensuring the same external
// reference twice never produces two local entities. When a referenced
// parent is itself missing it is resolved first, recursively, so callers
// never need to pre-sort their input.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

// Kind names a resolvable entity type
type Kind string

const (
	KindCategory      Kind = "category"
	KindShippingClass Kind = "shipping_class"
	KindCustomer      Kind = "customer"
	KindProduct       Kind = "product"
)

// maxDepth caps recursive parent resolution. Parent chains are acyclic
// on the platform side, but a broken payload must not recurse forever.
const maxDepth = 8

// Ref is an external reference plus whatever inline data the caller
// already has. Inline fields feed the placeholder fallback when the
// remote record cannot be fetched.
type Ref struct {
	ExternalID string
	Slug       string
	SKU        string
	Email      string
	Name       string
	FirstName  string
	LastName   string
	Price      float64
}

// Result reports where a reference landed locally
type Result struct {
	LocalID int64
	Created bool
}

// Store is the persistence surface the resolver needs
type Store interface {
	storage.EntityRepository
	storage.SyncLogRepository
}

// OnCreateFunc observes every entity the resolver creates, including
// placeholders, so callers can count auto-created dependencies.
type OnCreateFunc func(kind Kind, localID int64, placeholder bool)

// Resolver resolves external references to local entity ids
type Resolver struct {
	store    Store
	api      platform.API
	logger   *slog.Logger
	onCreate OnCreateFunc
}

// New creates a resolver
func New(store Store, api platform.API, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, api: api, logger: logger}
}

// WithObserver returns a view of the resolver that reports every
// creation to fn. The receiver is not modified, so concurrent callers
// (bulk imports, job workers, webhook ingestion) each own their view
// and never see another run's creations.
func (r *Resolver) WithObserver(fn OnCreateFunc) *Resolver {
	view := *r
	view.onCreate = fn
	return &view
}

// Ensure resolves a reference of the given kind
func (r *Resolver) Ensure(ctx context.Context, kind Kind, ref Ref) (Result, error) {
	switch kind {
	case KindCategory:
		return r.ensureCategory(ctx, ref, 0)
	case KindShippingClass:
		return r.EnsureShippingClass(ctx, ref)
	case KindCustomer:
		return r.EnsureCustomer(ctx, ref)
	case KindProduct:
		return r.EnsureProduct(ctx, ref)
	default:
		return Result{}, fmt.Errorf("unknown entity kind: %s", kind)
	}
}

// EnsureCategory resolves a category reference, creating the category
// and its parent chain if absent.
func (r *Resolver) EnsureCategory(ctx context.Context, ref Ref) (Result, error) {
	return r.ensureCategory(ctx, ref, 0)
}

func (r *Resolver) ensureCategory(ctx context.Context, ref Ref, depth int) (Result, error) {
	if depth >= maxDepth {
		return Result{}, fmt.Errorf("category %q: parent chain exceeds depth %d", ref.ExternalID, maxDepth)
	}

	// 1. External id match
	if existing, err := r.store.FindCategoryByExternalID(ref.ExternalID); err != nil {
		return Result{}, err
	} else if existing != nil {
		return Result{LocalID: existing.ID}, nil
	}

	// 2. Natural key match; backfill the external id
	if existing, err := r.store.FindCategoryBySlug(ref.Slug); err != nil {
		return Result{}, err
	} else if existing != nil {
		if ref.ExternalID != "" && existing.ExternalID == "" {
			existing.ExternalID = ref.ExternalID
			if err := r.store.SaveCategory(existing); err != nil {
				return Result{}, err
			}
		}
		return Result{LocalID: existing.ID}, nil
	}

	// 3. Fetch the full remote record
	start := time.Now()
	remote, err := r.api.GetCategory(ctx, ref.ExternalID)
	if err != nil {
		return r.placeholderCategory(ref, err)
	}

	// The remote slug may match a local row the caller didn't know about
	if existing, findErr := r.store.FindCategoryBySlug(remote.Slug); findErr != nil {
		return Result{}, findErr
	} else if existing != nil {
		existing.ExternalID = remote.ID
		if err := r.store.SaveCategory(existing); err != nil {
			return Result{}, err
		}
		return Result{LocalID: existing.ID}, nil
	}

	// Parent first, so the chain is created in topological order
	var parentID *int64
	if remote.ParentID != "" {
		parentRes, err := r.ensureCategory(ctx, Ref{ExternalID: remote.ParentID}, depth+1)
		if err != nil {
			return Result{}, fmt.Errorf("category %q: failed to resolve parent %q: %w", remote.ID, remote.ParentID, err)
		}
		parentID = &parentRes.LocalID
	}

	cat := &storage.Category{
		ExternalID: remote.ID,
		Slug:       remote.Slug,
		Name:       remote.Name,
		ParentID:   parentID,
		SyncStatus: storage.SyncStatusSynced,
	}
	if err := r.store.SaveCategory(cat); err != nil {
		return Result{}, err
	}
	r.logCreate(KindCategory, remote.ID, storage.OutcomeSuccess, time.Since(start))
	r.notifyCreate(KindCategory, cat.ID, false)
	return Result{LocalID: cat.ID, Created: true}, nil
}

func (r *Resolver) placeholderCategory(ref Ref, cause error) (Result, error) {
	name := ref.Name
	if name == "" {
		name = ref.ExternalID
	}
	cat := &storage.Category{
		ExternalID: ref.ExternalID,
		Slug:       ref.Slug,
		Name:       name,
		SyncStatus: storage.SyncStatusPending,
	}
	if err := r.store.SaveCategory(cat); err != nil {
		return Result{}, err
	}
	r.logger.Warn("created placeholder category",
		"external_id", ref.ExternalID, "cause", cause)
	r.logCreateError(KindCategory, ref.ExternalID, cause)
	r.notifyCreate(KindCategory, cat.ID, true)
	return Result{LocalID: cat.ID, Created: true}, nil
}

// EnsureShippingClass resolves a shipping class reference
func (r *Resolver) EnsureShippingClass(ctx context.Context, ref Ref) (Result, error) {
	if existing, err := r.store.FindShippingClassByExternalID(ref.ExternalID); err != nil {
		return Result{}, err
	} else if existing != nil {
		return Result{LocalID: existing.ID}, nil
	}

	if existing, err := r.store.FindShippingClassBySlug(ref.Slug); err != nil {
		return Result{}, err
	} else if existing != nil {
		if ref.ExternalID != "" && existing.ExternalID == "" {
			existing.ExternalID = ref.ExternalID
			if err := r.store.SaveShippingClass(existing); err != nil {
				return Result{}, err
			}
		}
		return Result{LocalID: existing.ID}, nil
	}

	start := time.Now()
	remote, err := r.api.GetShippingClass(ctx, ref.ExternalID)
	if err != nil {
		name := ref.Name
		if name == "" {
			name = ref.ExternalID
		}
		sc := &storage.ShippingClass{
			ExternalID: ref.ExternalID,
			Slug:       ref.Slug,
			Name:       name,
			SyncStatus: storage.SyncStatusPending,
		}
		if saveErr := r.store.SaveShippingClass(sc); saveErr != nil {
			return Result{}, saveErr
		}
		r.logger.Warn("created placeholder shipping class",
			"external_id", ref.ExternalID, "cause", err)
		r.logCreateError(KindShippingClass, ref.ExternalID, err)
		r.notifyCreate(KindShippingClass, sc.ID, true)
		return Result{LocalID: sc.ID, Created: true}, nil
	}

	sc := &storage.ShippingClass{
		ExternalID: remote.ID,
		Slug:       remote.Slug,
		Name:       remote.Name,
		SyncStatus: storage.SyncStatusSynced,
	}
	if err := r.store.SaveShippingClass(sc); err != nil {
		return Result{}, err
	}
	r.logCreate(KindShippingClass, remote.ID, storage.OutcomeSuccess, time.Since(start))
	r.notifyCreate(KindShippingClass, sc.ID, false)
	return Result{LocalID: sc.ID, Created: true}, nil
}

// EnsureCustomer resolves a customer reference
func (r *Resolver) EnsureCustomer(ctx context.Context, ref Ref) (Result, error) {
	if existing, err := r.store.FindCustomerByExternalID(ref.ExternalID); err != nil {
		return Result{}, err
	} else if existing != nil {
		return Result{LocalID: existing.ID}, nil
	}

	if existing, err := r.store.FindCustomerByEmail(ref.Email); err != nil {
		return Result{}, err
	} else if existing != nil {
		if ref.ExternalID != "" && existing.ExternalID == "" {
			existing.ExternalID = ref.ExternalID
			if err := r.store.SaveCustomer(existing); err != nil {
				return Result{}, err
			}
		}
		return Result{LocalID: existing.ID}, nil
	}

	start := time.Now()
	remote, err := r.api.GetCustomer(ctx, ref.ExternalID)
	if err != nil {
		cust := &storage.Customer{
			ExternalID: ref.ExternalID,
			Email:      ref.Email,
			FirstName:  ref.FirstName,
			LastName:   ref.LastName,
			SyncStatus: storage.SyncStatusPending,
		}
		if saveErr := r.store.SaveCustomer(cust); saveErr != nil {
			return Result{}, saveErr
		}
		r.logger.Warn("created placeholder customer",
			"external_id", ref.ExternalID, "cause", err)
		r.logCreateError(KindCustomer, ref.ExternalID, err)
		r.notifyCreate(KindCustomer, cust.ID, true)
		return Result{LocalID: cust.ID, Created: true}, nil
	}

	// The remote email may match a local row the caller didn't know about
	if existing, findErr := r.store.FindCustomerByEmail(remote.Email); findErr != nil {
		return Result{}, findErr
	} else if existing != nil {
		existing.ExternalID = remote.ID
		if err := r.store.SaveCustomer(existing); err != nil {
			return Result{}, err
		}
		return Result{LocalID: existing.ID}, nil
	}

	cust := &storage.Customer{
		ExternalID: remote.ID,
		Email:      remote.Email,
		FirstName:  remote.FirstName,
		LastName:   remote.LastName,
		SyncStatus: storage.SyncStatusSynced,
	}
	if err := r.store.SaveCustomer(cust); err != nil {
		return Result{}, err
	}
	r.logCreate(KindCustomer, remote.ID, storage.OutcomeSuccess, time.Since(start))
	r.notifyCreate(KindCustomer, cust.ID, false)
	return Result{LocalID: cust.ID, Created: true}, nil
}

// EnsureProduct resolves a product reference, creating its category and
// shipping class first when the remote record references them.
func (r *Resolver) EnsureProduct(ctx context.Context, ref Ref) (Result, error) {
	if existing, err := r.store.FindProductByExternalID(ref.ExternalID); err != nil {
		return Result{}, err
	} else if existing != nil {
		return Result{LocalID: existing.ID}, nil
	}

	if existing, err := r.store.FindProductBySKU(ref.SKU); err != nil {
		return Result{}, err
	} else if existing != nil {
		if ref.ExternalID != "" && existing.ExternalID == "" {
			existing.ExternalID = ref.ExternalID
			if err := r.store.SaveProduct(existing); err != nil {
				return Result{}, err
			}
		}
		return Result{LocalID: existing.ID}, nil
	}

	start := time.Now()
	remote, err := r.api.GetProduct(ctx, ref.ExternalID)
	if err != nil {
		// A dead reference must not block the batch: create a minimal
		// placeholder from the caller's inline data, marked for re-sync.
		name := ref.Name
		if name == "" {
			name = ref.ExternalID
		}
		p := &storage.Product{
			ExternalID: ref.ExternalID,
			SKU:        ref.SKU,
			Name:       name,
			Price:      ref.Price,
			SyncStatus: storage.SyncStatusPending,
		}
		if saveErr := r.store.SaveProduct(p); saveErr != nil {
			return Result{}, saveErr
		}
		r.logger.Warn("created placeholder product",
			"external_id", ref.ExternalID, "cause", err)
		r.logCreateError(KindProduct, ref.ExternalID, err)
		r.notifyCreate(KindProduct, p.ID, true)
		return Result{LocalID: p.ID, Created: true}, nil
	}

	var categoryID, shippingClassID *int64
	if remote.CategoryID != "" {
		res, err := r.ensureCategory(ctx, Ref{ExternalID: remote.CategoryID}, 0)
		if err != nil {
			return Result{}, fmt.Errorf("product %q: failed to resolve category %q: %w", remote.ID, remote.CategoryID, err)
		}
		categoryID = &res.LocalID
	}
	if remote.ShippingClassID != "" {
		res, err := r.EnsureShippingClass(ctx, Ref{ExternalID: remote.ShippingClassID})
		if err != nil {
			return Result{}, fmt.Errorf("product %q: failed to resolve shipping class %q: %w", remote.ID, remote.ShippingClassID, err)
		}
		shippingClassID = &res.LocalID
	}

	p := &storage.Product{
		ExternalID:      remote.ID,
		SKU:             remote.SKU,
		Name:            remote.Name,
		Price:           remote.Price,
		CategoryID:      categoryID,
		ShippingClassID: shippingClassID,
		SyncStatus:      storage.SyncStatusSynced,
	}
	if err := r.store.SaveProduct(p); err != nil {
		return Result{}, err
	}
	r.logCreate(KindProduct, remote.ID, storage.OutcomeSuccess, time.Since(start))
	r.notifyCreate(KindProduct, p.ID, false)
	return Result{LocalID: p.ID, Created: true}, nil
}

func (r *Resolver) notifyCreate(kind Kind, localID int64, placeholder bool) {
	if r.onCreate != nil {
		r.onCreate(kind, localID, placeholder)
	}
}

func (r *Resolver) logCreate(kind Kind, externalID string, outcome storage.SyncOutcome, duration time.Duration) {
	entry := &storage.SyncLogEntry{
		Direction:  storage.DirectionFromPlatform,
		EntityType: string(kind),
		EntityID:   externalID,
		Action:     storage.ActionCreate,
		Outcome:    outcome,
		DurationMs: duration.Milliseconds(),
	}
	if err := r.store.AppendSyncLog(entry); err != nil {
		r.logger.Warn("failed to append sync log", "entity_type", kind, "error", err)
	}
}

func (r *Resolver) logCreateError(kind Kind, externalID string, cause error) {
	entry := &storage.SyncLogEntry{
		Direction:  storage.DirectionFromPlatform,
		EntityType: string(kind),
		EntityID:   externalID,
		Action:     storage.ActionCreate,
		Outcome:    storage.OutcomePending,
		Error:      cause.Error(),
	}
	if err := r.store.AppendSyncLog(entry); err != nil {
		r.logger.Warn("failed to append sync log", "entity_type", kind, "error", err)
	}
}
