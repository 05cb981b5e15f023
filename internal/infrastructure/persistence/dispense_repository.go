package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDispenseRepository implements trade.DispenseRepository using GORM
type GormDispenseRepository struct {
	db *gorm.DB
}

// NewGormDispenseRepository creates a new GormDispenseRepository
func NewGormDispenseRepository(db *gorm.DB) *GormDispenseRepository {
	return &GormDispenseRepository{db: db}
}

// FindByBillNumber finds a bill with its remaining lines
func (r *GormDispenseRepository) FindByBillNumber(ctx context.Context, billNumber string) (*trade.Dispense, error) {
	return r.first(r.db.WithContext(ctx), billNumber)
}

// FindByBillNumberForUpdate finds a bill and locks its row
func (r *GormDispenseRepository) FindByBillNumberForUpdate(ctx context.Context, billNumber string) (*trade.Dispense, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), billNumber)
}

func (r *GormDispenseRepository) first(db *gorm.DB, billNumber string) (*trade.Dispense, error) {
	var model models.DispenseModel
	err := db.Where("bill_number = ?", strings.TrimSpace(billNumber)).
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

// Create inserts a bill and its lines
func (r *GormDispenseRepository) Create(ctx context.Context, dispense *trade.Dispense) error {
	return r.db.WithContext(ctx).Create(models.DispenseModelFromDomain(dispense)).Error
}

// SaveWithLock writes a bill changed by a customer return. Lines returned
// in full are removed; the rest are rewritten with their new quantities.
func (r *GormDispenseRepository) SaveWithLock(ctx context.Context, dispense *trade.Dispense) error {
	model := models.DispenseModelFromDomain(dispense)
	db := r.db.WithContext(ctx)
	result := db.Model(&models.DispenseModel{}).
		Where("id = ? AND version = ?", dispense.ID, dispense.Version-1).
		Updates(model.UpdateColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	if err := db.Where("dispense_id = ?", dispense.ID).Delete(&models.DispenseLineModel{}).Error; err != nil {
		return err
	}
	if len(model.Lines) == 0 {
		return nil
	}
	return db.Create(&model.Lines).Error
}

// Ensure GormDispenseRepository implements trade.DispenseRepository
var _ trade.DispenseRepository = (*GormDispenseRepository)(nil)
