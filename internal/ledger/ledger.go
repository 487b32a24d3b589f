// Package ledger is the webhook idempotency ledger backed by webhook_events.
// The (event_id, provider) unique constraint is the only mutual exclusion
// between concurrent deliveries of the same event.
package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

const uniqueConstraint = "webhook_events_event_provider_key"

// ErrAlreadyProcessed is returned by Claim when the key is already recorded.
var ErrAlreadyProcessed = errors.New("webhook event already processed")

type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	IsProcessed(ctx context.Context, eventID string, provider enums.WebhookProvider) (bool, error)
	// MarkProcessed records the key, ignoring an existing row.
	MarkProcessed(ctx context.Context, eventID string, provider enums.WebhookProvider) error
	// Claim records the key and fails with ErrAlreadyProcessed on conflict.
	// Run it inside the transaction that applies the event.
	Claim(ctx context.Context, eventID string, provider enums.WebhookProvider) error
}

type ledger struct {
	base repo.Base
	now  func() time.Time
}

func New(conn *gorm.DB) Ledger {
	return &ledger{base: repo.NewBase(conn), now: time.Now}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	return &ledger{base: l.base.WithTx(tx), now: l.now}
}

func (l *ledger) IsProcessed(ctx context.Context, eventID string, provider enums.WebhookProvider) (bool, error) {
	var count int64
	err := l.base.DB(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ? AND provider = ?", eventID, provider).
		Count(&count).Error
	return count > 0, err
}

func (l *ledger) MarkProcessed(ctx context.Context, eventID string, provider enums.WebhookProvider) error {
	row := l.row(eventID, provider)
	return l.base.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (l *ledger) Claim(ctx context.Context, eventID string, provider enums.WebhookProvider) error {
	row := l.row(eventID, provider)
	err := l.base.DB(ctx).Create(&row).Error
	if db.IsUniqueViolation(err, uniqueConstraint) {
		return ErrAlreadyProcessed
	}
	return err
}

func (l *ledger) row(eventID string, provider enums.WebhookProvider) models.WebhookEvent {
	return models.WebhookEvent{
		EventID:     eventID,
		Provider:    provider,
		ProcessedAt: l.now().UTC(),
	}
}
