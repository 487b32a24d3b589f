// Package audit appends rows to system_audit_logs. Writes are best-effort:
// a failed insert is logged and swallowed.
package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

const (
	EntityOrder        = "order"
	EntitySubscription = "subscription"
	EntityStock        = "stock"
	EntityWebhook      = "webhook"
)

// Entry is a single audit record.
type Entry struct {
	EventType  string
	EntityType string
	EntityID   *uuid.UUID
	Payload    map[string]any
	Status     enums.AuditStatus
}

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder is the database-backed Sink.
type Recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewRecorder(db *gorm.DB, logg *logger.Logger) *Recorder {
	return &Recorder{db: db, logg: logg}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	row := models.SystemAuditLog{
		EventType:   entry.EventType,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		PayloadJSON: datatypes.JSONMap(entry.Payload),
		Status:      entry.Status,
	}
	if row.Status == "" {
		row.Status = enums.AuditSuccess
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"audit_event": entry.EventType,
			"entity_type": entry.EntityType,
		})
		r.logg.Error(logCtx, "audit write failed", err)
	}
}
