package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
)

// ItemRepository persists inventory valuation records.
// Lookups return shared.ErrNotFound when nothing matches.
type ItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	FindByKey(ctx context.Context, key string) (*InventoryItem, error)

	// FindByKeyForUpdate and FindByIDForUpdate take a row lock where the
	// database supports it. Only meaningful inside a transaction.
	FindByKeyForUpdate(ctx context.Context, key string) (*InventoryItem, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// Create inserts a new record; the key must be unused.
	Create(ctx context.Context, item *InventoryItem) error

	// SaveWithLock writes a mutated record if the stored version is
	// item.Version-1, otherwise it returns shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	List(ctx context.Context, filter shared.Filter) ([]InventoryItem, int64, error)
	ListBelowMinimum(ctx context.Context, filter shared.Filter) ([]InventoryItem, int64, error)
}
