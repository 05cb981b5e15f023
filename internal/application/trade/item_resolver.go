package trade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
)

// itemResolver loads inventory items once per transaction and hands out the
// same instance for repeated references, so several lines touching one item
// accumulate on a single row lock and version.
type itemResolver struct {
	repo  inventory.ItemRepository
	byID  map[uuid.UUID]*inventory.InventoryItem
	byKey map[string]*inventory.InventoryItem
	order []*inventory.InventoryItem
}

func newItemResolver(repo inventory.ItemRepository) *itemResolver {
	return &itemResolver{
		repo:  repo,
		byID:  make(map[uuid.UUID]*inventory.InventoryItem),
		byKey: make(map[string]*inventory.InventoryItem),
	}
}

func (r *itemResolver) remember(item *inventory.InventoryItem) *inventory.InventoryItem {
	if cached, ok := r.byID[item.ID]; ok {
		return cached
	}
	r.byID[item.ID] = item
	r.byKey[item.Key] = item
	r.order = append(r.order, item)
	return item
}

// resolve finds an item by id, falling back to the normalized name.
// It returns nil without error when neither matches.
func (r *itemResolver) resolve(ctx context.Context, id *uuid.UUID, name string) (*inventory.InventoryItem, error) {
	if id != nil {
		if item, ok := r.byID[*id]; ok {
			return item, nil
		}
		item, err := r.repo.FindByIDForUpdate(ctx, *id)
		switch {
		case err == nil:
			return r.remember(item), nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}
	return r.byName(ctx, name)
}

func (r *itemResolver) byName(ctx context.Context, name string) (*inventory.InventoryItem, error) {
	key := inventory.NormalizeKey(name)
	if key == "" {
		return nil, nil
	}
	if item, ok := r.byKey[key]; ok {
		return item, nil
	}
	item, err := r.repo.FindByKeyForUpdate(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.remember(item), nil
}

// obtain returns the item for name, creating an empty record when the name
// has never been seen.
func (r *itemResolver) obtain(ctx context.Context, name string, now time.Time) (*inventory.InventoryItem, error) {
	item, err := r.byName(ctx, name)
	if err != nil || item != nil {
		return item, err
	}
	item, err = inventory.NewInventoryItem(name, now)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return r.remember(item), nil
}

func (r *itemResolver) save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.repo.SaveWithLock(ctx, item)
}

// touched returns every item loaded or created, in first-seen order
func (r *itemResolver) touched() []*inventory.InventoryItem {
	return r.order
}
