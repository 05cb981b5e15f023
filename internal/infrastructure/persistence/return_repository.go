package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReturnRepository implements trade.ReturnRepository using GORM.
// Return documents are append-only.
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// FindByID finds a return document with its lines
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ReturnEntry, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIdempotencyKey finds the return recorded under a client key
func (r *GormReturnRepository) FindByIdempotencyKey(ctx context.Context, key string) (*trade.ReturnEntry, error) {
	if key == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("idempotency_key = ?", key))
}

func (r *GormReturnRepository) first(query *gorm.DB) (*trade.ReturnEntry, error) {
	var model models.ReturnEntryModel
	if err := query.Preload("Lines", orderLines).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByReference returns every return against a bill or invoice number,
// oldest first
func (r *GormReturnRepository) ListByReference(ctx context.Context, reference string) ([]trade.ReturnEntry, error) {
	var rows []models.ReturnEntryModel
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Preload("Lines", orderLines).
		Order("returned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]trade.ReturnEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Create inserts a return document and its lines
func (r *GormReturnRepository) Create(ctx context.Context, entry *trade.ReturnEntry) error {
	return r.db.WithContext(ctx).Create(models.ReturnEntryModelFromDomain(entry)).Error
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// Ensure GormReturnRepository implements trade.ReturnRepository
var _ trade.ReturnRepository = (*GormReturnRepository)(nil)
