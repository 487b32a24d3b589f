package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// SystemSetting is a key/JSON pair edited from the admin panel.
type SystemSetting struct {
	Key         string         `gorm:"column:key;primaryKey"`
	Value       datatypes.JSON `gorm:"column:value;type:jsonb"`
	Description *string        `gorm:"column:description"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (SystemSetting) TableName() string { return "system_settings" }

// SystemAuditLog is an append-only audit entry.
type SystemAuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType   string            `gorm:"column:event_type;not null"`
	EntityType  string            `gorm:"column:entity_type;not null"`
	EntityID    *uuid.UUID        `gorm:"column:entity_id;type:uuid"`
	PayloadJSON datatypes.JSONMap `gorm:"column:payload_json;type:jsonb"`
	Status      enums.AuditStatus `gorm:"column:status;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (SystemAuditLog) TableName() string { return "system_audit_logs" }

func (a *SystemAuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// WebhookEvent is one row of the idempotency ledger, unique on (event_id, provider).
type WebhookEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     string                `gorm:"column:event_id;not null;uniqueIndex:webhook_events_event_provider_key"`
	Provider    enums.WebhookProvider `gorm:"column:provider;not null;uniqueIndex:webhook_events_event_provider_key"`
	ProcessedAt time.Time             `gorm:"column:processed_at;not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

func (w *WebhookEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
