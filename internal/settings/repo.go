package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
)

// Repository reads system_settings rows.
type Repository interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Upsert(ctx context.Context, setting *models.SystemSetting) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	var setting models.SystemSetting
	found, err := r.base.First(ctx, &setting, "key = ?", key)
	if err != nil || !found {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.SystemSetting) error {
	return r.base.DB(ctx).Save(setting).Error
}
