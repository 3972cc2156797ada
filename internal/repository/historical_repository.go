package repository

import (
	"context"

	"github.com/deliverypulse/engine/internal/models"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"gorm.io/gorm"
)

type HistoricalRepository interface {
	Create(ctx context.Context, rec *models.HistoricalRecord) error
	DeleteByCode(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]models.HistoricalRecord, error)
}

type historicalRepository struct {
	db *gorm.DB
}

func NewHistoricalRepository(db *gorm.DB) HistoricalRepository {
	return &historicalRepository{db: db}
}

func (r *historicalRepository) Create(ctx context.Context, rec *models.HistoricalRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return classify(err, "create historical record failed")
	}
	return nil
}

func (r *historicalRepository) DeleteByCode(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Where("project_code = ?", code).Delete(&models.HistoricalRecord{})
	if res.Error != nil {
		return classify(res.Error, "delete historical record failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "historical record not found").WithMeta("project_code", code)
	}
	return nil
}

func (r *historicalRepository) Exists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.HistoricalRecord{}).Where("project_code = ?", code).Count(&n).Error; err != nil {
		return false, classify(err, "check historical record failed")
	}
	return n > 0, nil
}

func (r *historicalRepository) List(ctx context.Context) ([]models.HistoricalRecord, error) {
	var out []models.HistoricalRecord
	if err := r.db.WithContext(ctx).Order("archived_at DESC, project_code").Find(&out).Error; err != nil {
		return nil, classify(err, "list historical records failed")
	}
	return out, nil
}
