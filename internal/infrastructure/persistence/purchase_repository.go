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

// GormPurchaseRepository implements trade.PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByID finds a purchase with its lines
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Purchase, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByDraftID finds the purchase a draft was committed into
func (r *GormPurchaseRepository) FindByDraftID(ctx context.Context, draftID uuid.UUID) (*trade.Purchase, error) {
	return r.first(r.db.WithContext(ctx).Where("draft_id = ?", draftID))
}

// FindByInvoiceNumberForUpdate locks and returns the most recent purchase
// booked under invoiceNumber. A non-empty supplier narrows the match.
func (r *GormPurchaseRepository) FindByInvoiceNumberForUpdate(ctx context.Context, invoiceNumber, supplier string) (*trade.Purchase, error) {
	query := forUpdate(r.db.WithContext(ctx)).Where("invoice_number = ?", strings.TrimSpace(invoiceNumber))
	if supplier = strings.TrimSpace(supplier); supplier != "" {
		query = query.Where("LOWER(supplier_name) = ?", strings.ToLower(supplier))
	}
	return r.first(query.Order("purchased_at DESC").Order("created_at DESC"))
}

func (r *GormPurchaseRepository) first(query *gorm.DB) (*trade.Purchase, error) {
	var model models.PurchaseModel
	err := query.
		Preload("Lines", orderLines).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a purchase and its lines
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *trade.Purchase) error {
	model, err := models.PurchaseModelFromDomain(purchase)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock writes a purchase changed by a supplier return and replaces
// its lines.
func (r *GormPurchaseRepository) SaveWithLock(ctx context.Context, purchase *trade.Purchase) error {
	model, err := models.PurchaseModelFromDomain(purchase)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	result := db.Model(&models.PurchaseModel{}).
		Where("id = ? AND version = ?", purchase.ID, purchase.Version-1).
		Updates(model.UpdateColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	if err := db.Where("purchase_id = ?", purchase.ID).Delete(&models.PurchaseLineModel{}).Error; err != nil {
		return err
	}
	if len(model.Lines) == 0 {
		return nil
	}
	return db.Create(&model.Lines).Error
}

// Ensure GormPurchaseRepository implements trade.PurchaseRepository
var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
