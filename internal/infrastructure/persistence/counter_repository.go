package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/hospital/pharmacy/internal/domain/sequence"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterRepository implements sequence.CounterRepository on the
// document_counters table. Next is atomic: the upsert takes the row lock and
// keeps it until the surrounding transaction ends, so two bills in the same
// period never share a number.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// Next increments the counter of periodKey and returns the new value,
// starting at 1 for a new period
func (r *GormCounterRepository) Next(ctx context.Context, periodKey string) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now()
	row := models.DocumentCounterModel{PeriodKey: periodKey, Value: 1, UpdatedAt: now}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      gorm.Expr("document_counters.value + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}
	return r.Current(ctx, periodKey)
}

// Current returns the last value issued for periodKey, or 0
func (r *GormCounterRepository) Current(ctx context.Context, periodKey string) (int64, error) {
	var row models.DocumentCounterModel
	err := r.db.WithContext(ctx).Where("period_key = ?", periodKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

// Ensure GormCounterRepository implements sequence.CounterRepository
var _ sequence.CounterRepository = (*GormCounterRepository)(nil)
