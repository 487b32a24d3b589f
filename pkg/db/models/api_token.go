package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/johsantss21/Thays-admin/pkg/db/types"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// APIToken authenticates automation clients. Only the SHA-256 of the token is stored.
type APIToken struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string               `gorm:"column:name;not null"`
	TokenHash    string               `gorm:"column:token_hash;not null;uniqueIndex"`
	TokenPreview string               `gorm:"column:token_preview;not null"`
	Status       enums.APITokenStatus `gorm:"column:status;not null;default:'ativo'"`
	Scopes       dbtypes.StringArray  `gorm:"column:scopes;type:text[]"`
	IPAllowlist  dbtypes.StringArray  `gorm:"column:ip_allowlist;type:text[]"`
	ExpiresAt    *time.Time           `gorm:"column:expires_at"`
	RevokedAt    *time.Time           `gorm:"column:revoked_at"`
	LastUsedAt   *time.Time           `gorm:"column:last_used_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (APIToken) TableName() string { return "api_tokens" }

func (t *APIToken) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
