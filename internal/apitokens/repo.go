package apitokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
)

type Repository interface {
	FindByHash(ctx context.Context, hash string) (*models.APIToken, error)
	Create(ctx context.Context, token *models.APIToken) error
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) FindByHash(ctx context.Context, hash string) (*models.APIToken, error) {
	var token models.APIToken
	found, err := r.base.First(ctx, &token, "token_hash = ?", hash)
	if err != nil || !found {
		return nil, err
	}
	return &token, nil
}

func (r *repository) Create(ctx context.Context, token *models.APIToken) error {
	return r.base.DB(ctx).Create(token).Error
}

func (r *repository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.APIToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
