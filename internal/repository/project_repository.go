package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/deliverypulse/engine/internal/models"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository interface {
	// Upsert inserts the project or merges attrs into the stored row. The row
	// stays locked until the surrounding transaction ends.
	Upsert(ctx context.Context, code string, attrs models.ProjectAttributes) (*models.Project, error)
	GetByCode(ctx context.Context, code string) (*models.Project, error)
	SetHistorical(ctx context.Context, projectID uuid.UUID, historical bool) error
	Search(ctx context.Context, q string, limit int) ([]models.Project, error)
	ListByManager(ctx context.Context, manager string) ([]models.Project, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
	SetPhaseHours(ctx context.Context, code string, phase models.Phase, hours float64) (*models.Project, error)
	SetRoleHours(ctx context.Context, code string, role models.Role, hours float64) (*models.Project, error)
	SetComment(ctx context.Context, code string, comment *string) (*models.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Upsert(ctx context.Context, code string, attrs models.ProjectAttributes) (*models.Project, error) {
	db := r.db.WithContext(ctx)

	p := &models.Project{Code: code, ProjectAttributes: attrs}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_code"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return nil, classify(res.Error, "insert project failed")
	}
	if res.RowsAffected == 1 {
		return p, nil
	}

	var existing models.Project
	if err := forUpdate(db).Where("project_code = ?", code).First(&existing).Error; err != nil {
		return nil, classify(err, "lock project failed")
	}
	MergeAttributes(&existing.ProjectAttributes, attrs)
	if err := db.Save(&existing).Error; err != nil {
		return nil, classify(err, "update project failed")
	}
	return &existing, nil
}

func (r *projectRepository) GetByCode(ctx context.Context, code string) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Where("project_code = ?", code).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "project not found").WithMeta("project_code", code)
		}
		return nil, classify(err, "get project failed")
	}
	return &p, nil
}

func (r *projectRepository) SetHistorical(ctx context.Context, projectID uuid.UUID, historical bool) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Update("is_historical", historical)
	if res.Error != nil {
		return classify(res.Error, "set historical flag failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

// Search matches code, name or client case-insensitively.
func (r *projectRepository) Search(ctx context.Context, q string, limit int) ([]models.Project, error) {
	like := "%" + escapeLike(strings.ToLower(q)) + "%"
	var out []models.Project
	err := r.db.WithContext(ctx).
		Where(`LOWER(project_code) LIKE ? ESCAPE '\' OR LOWER(project_name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(client, '')) LIKE ? ESCAPE '\'`, like, like, like).
		Order("project_code").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, classify(err, "search projects failed")
	}
	return out, nil
}

func (r *projectRepository) ListByManager(ctx context.Context, manager string) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("project_manager = ?", manager).Order("project_code").Find(&out).Error; err != nil {
		return nil, classify(err, "list projects by manager failed")
	}
	return out, nil
}

func (r *projectRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, classify(err, "list projects by id failed")
	}
	return out, nil
}

func (r *projectRepository) SetPhaseHours(ctx context.Context, code string, phase models.Phase, hours float64) (*models.Project, error) {
	return r.setHours(ctx, code, func(h *models.AssignedHours) (*float64, bool) { return h.PhaseField(phase) }, hours)
}

func (r *projectRepository) SetRoleHours(ctx context.Context, code string, role models.Role, hours float64) (*models.Project, error) {
	return r.setHours(ctx, code, func(h *models.AssignedHours) (*float64, bool) { return h.RoleField(role) }, hours)
}

func (r *projectRepository) setHours(ctx context.Context, code string, field func(*models.AssignedHours) (*float64, bool), hours float64) (*models.Project, error) {
	var out *models.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := forUpdate(tx).Where("project_code = ?", code).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.New(appErr.CodeNotFound, "project not found").WithMeta("project_code", code)
			}
			return classify(err, "lock project failed")
		}
		dst, ok := field(&p.AssignedHours)
		if !ok {
			return appErr.New(appErr.CodeInvalid, "unknown assigned hours key")
		}
		*dst = hours
		if err := tx.Save(&p).Error; err != nil {
			return classify(err, "update assigned hours failed")
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepository) SetComment(ctx context.Context, code string, comment *string) (*models.Project, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).Where("project_code = ?", code).Update("comments", comment)
	if res.Error != nil {
		return nil, classify(res.Error, "update comment failed")
	}
	if res.RowsAffected == 0 {
		return nil, appErr.New(appErr.CodeNotFound, "project not found").WithMeta("project_code", code)
	}
	return r.GetByCode(ctx, code)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
