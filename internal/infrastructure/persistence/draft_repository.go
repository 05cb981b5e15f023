package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDraftRepository implements trade.DraftRepository using GORM
type GormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GormDraftRepository
func NewGormDraftRepository(db *gorm.DB) *GormDraftRepository {
	return &GormDraftRepository{db: db}
}

// FindByID finds a draft by its ID
func (r *GormDraftRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Draft, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a draft by its ID and locks its row
func (r *GormDraftRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Draft, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormDraftRepository) first(db *gorm.DB, id uuid.UUID) (*trade.Draft, error) {
	var model models.PurchaseDraftModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new draft
func (r *GormDraftRepository) Create(ctx context.Context, draft *trade.Draft) error {
	model, err := models.PurchaseDraftModelFromDomain(draft)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock saves a draft if nobody else changed it since it was loaded
func (r *GormDraftRepository) SaveWithLock(ctx context.Context, draft *trade.Draft) error {
	model, err := models.PurchaseDraftModelFromDomain(draft)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseDraftModel{}).
		Where("id = ? AND version = ?", draft.ID, draft.Version-1).
		Updates(model.UpdateColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete removes a draft
func (r *GormDraftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PurchaseDraftModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns a page of drafts, most recently edited first. Search matches
// the supplier name or invoice number.
func (r *GormDraftRepository) List(ctx context.Context, filter shared.Filter) ([]trade.Draft, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.PurchaseDraftModel{})
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(supplier_name) LIKE ? OR LOWER(invoice_number) LIKE ?", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PurchaseDraftModel
	if err := query.Order("updated_at DESC").Offset(filter.Offset()).Limit(filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	drafts := make([]trade.Draft, len(rows))
	for i := range rows {
		drafts[i] = *rows[i].ToDomain()
	}
	return drafts, total, nil
}

// Ensure GormDraftRepository implements trade.DraftRepository
var _ trade.DraftRepository = (*GormDraftRepository)(nil)
