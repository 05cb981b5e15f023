package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements inventory.ItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by its ID
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// FindByKey finds an inventory item by its normalized name
func (r *GormInventoryItemRepository) FindByKey(ctx context.Context, key string) (*inventory.InventoryItem, error) {
	return r.first(r.db.WithContext(ctx), "item_key = ?", key)
}

// FindByIDForUpdate finds an inventory item by ID and locks its row
func (r *GormInventoryItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByKeyForUpdate finds an inventory item by key and locks its row
func (r *GormInventoryItemRepository) FindByKeyForUpdate(ctx context.Context, key string) (*inventory.InventoryItem, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "item_key = ?", key)
}

func (r *GormInventoryItemRepository) first(db *gorm.DB, query string, args ...any) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new inventory item
func (r *GormInventoryItemRepository) Create(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Create(models.InventoryItemModelFromDomain(item)).Error
}

// SaveWithLock saves an inventory item with optimistic locking.
// The item's Version has already been incremented by its domain operation.
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	model := models.InventoryItemModelFromDomain(item)
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(model.UpdateColumns())

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// List returns a page of items ordered by name
func (r *GormInventoryItemRepository) List(ctx context.Context, filter shared.Filter) ([]inventory.InventoryItem, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&models.InventoryItemModel{}), filter)
}

// ListBelowMinimum returns a page of items whose on-hand is below a
// positive minimum stock
func (r *GormInventoryItemRepository) ListBelowMinimum(ctx context.Context, filter shared.Filter) ([]inventory.InventoryItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItemModel{}).
		Where("min_stock > 0 AND on_hand < min_stock")
	return r.page(query, filter)
}

func (r *GormInventoryItemRepository) page(query *gorm.DB, filter shared.Filter) ([]inventory.InventoryItem, int64, error) {
	filter = filter.Normalize()
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + inventory.NormalizeKey(search) + "%"
		query = query.Where("item_key LIKE ? OR LOWER(generic_name) LIKE ?", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryItemModel
	if err := query.Order("item_key ASC").Offset(filter.Offset()).Limit(filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	items := make([]inventory.InventoryItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, total, nil
}

// forUpdate adds a row lock to the query. The sqlite dialector drops the
// clause since it locks the whole database per write transaction.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Ensure GormInventoryItemRepository implements inventory.ItemRepository
var _ inventory.ItemRepository = (*GormInventoryItemRepository)(nil)
