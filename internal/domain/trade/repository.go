package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
)

// Repository lookups return shared.ErrNotFound when nothing matches.
// SaveWithLock implementations compare against Version-1 and return
// shared.ErrConcurrencyConflict when the stored row moved on.

// DraftRepository persists purchase drafts
type DraftRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Draft, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Draft, error)
	Create(ctx context.Context, draft *Draft) error
	SaveWithLock(ctx context.Context, draft *Draft) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter shared.Filter) ([]Draft, int64, error)
}

// PurchaseRepository persists committed purchases
type PurchaseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	FindByDraftID(ctx context.Context, draftID uuid.UUID) (*Purchase, error)
	// FindByInvoiceNumberForUpdate returns the latest purchase with the
	// invoice number, narrowed to supplier when one is given.
	FindByInvoiceNumberForUpdate(ctx context.Context, invoiceNumber, supplier string) (*Purchase, error)
	Create(ctx context.Context, purchase *Purchase) error
	SaveWithLock(ctx context.Context, purchase *Purchase) error
}

// DispenseRepository persists sale bills
type DispenseRepository interface {
	FindByBillNumber(ctx context.Context, billNumber string) (*Dispense, error)
	FindByBillNumberForUpdate(ctx context.Context, billNumber string) (*Dispense, error)
	Create(ctx context.Context, dispense *Dispense) error
	SaveWithLock(ctx context.Context, dispense *Dispense) error
}

// ReturnRepository persists return documents
type ReturnRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnEntry, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*ReturnEntry, error)
	ListByReference(ctx context.Context, reference string) ([]ReturnEntry, error)
	Create(ctx context.Context, entry *ReturnEntry) error
}
