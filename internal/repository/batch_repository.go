package repository

import (
	"context"

	"github.com/deliverypulse/engine/internal/models"
	"gorm.io/gorm"
)

// BatchRepository records import provenance. Batches are never updated.
type BatchRepository interface {
	Create(ctx context.Context, b *models.ImportBatch) error
	GetByID(ctx context.Context, id any, dest *models.ImportBatch) error
	ListRecent(ctx context.Context, limit int) ([]models.ImportBatch, error)
}

type batchRepository struct {
	base BaseRepository[models.ImportBatch]
	db   *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{base: NewBaseRepository[models.ImportBatch](db), db: db}
}

func (r *batchRepository) Create(ctx context.Context, b *models.ImportBatch) error {
	return r.base.Create(ctx, b)
}

func (r *batchRepository) GetByID(ctx context.Context, id any, dest *models.ImportBatch) error {
	return r.base.GetByID(ctx, id, dest)
}

func (r *batchRepository) ListRecent(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	var out []models.ImportBatch
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, classify(err, "list import batches failed")
	}
	return out, nil
}
