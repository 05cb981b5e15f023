package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
)

// InventoryService answers stock and valuation queries
type InventoryService struct {
	items   inventory.ItemRepository
	metrics *telemetry.EngineMetrics
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(items inventory.ItemRepository) *InventoryService {
	return &InventoryService{items: items}
}

// SetEngineMetrics sets the business metrics collector
func (s *InventoryService) SetEngineMetrics(m *telemetry.EngineMetrics) {
	s.metrics = m
}

// Get looks an item up by id, or by name when ref is not a uuid
func (s *InventoryService) Get(ctx context.Context, ref string) (*ItemResponse, error) {
	var (
		item *inventory.InventoryItem
		err  error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		item, err = s.items.FindByID(ctx, id)
	} else {
		key := inventory.NormalizeKey(ref)
		if key == "" {
			return nil, shared.NewValidationError("item reference is required")
		}
		item, err = s.items.FindByKey(ctx, key)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewNotFoundError("item", ref)
	}
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// List returns a page of items ordered by name
func (s *InventoryService) List(ctx context.Context, q ListQuery) (*shared.Paginated[ItemResponse], error) {
	filter := toFilter(q)
	items, total, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toPage(items, total, filter), nil
}

// ListLowStock returns items whose on-hand is below their minimum stock
func (s *InventoryService) ListLowStock(ctx context.Context, q ListQuery) (*shared.Paginated[ItemResponse], error) {
	filter := toFilter(q)
	items, total, err := s.items.ListBelowMinimum(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.Search == "" {
		s.metrics.RecordLowStockCount(ctx, total)
	}
	return toPage(items, total, filter), nil
}

func toFilter(q ListQuery) shared.Filter {
	return shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: q.Search}.Normalize()
}

func toPage(items []inventory.InventoryItem, total int64, filter shared.Filter) *shared.Paginated[ItemResponse] {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = ToItemResponse(&items[i])
	}
	page := shared.NewPaginated(out, total, filter.Page, filter.PageSize)
	return &page
}
