package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// Repository covers the order reads and payment writes made by webhook
// reconciliation and the delivery feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPixTxID(ctx context.Context, txid string) (*models.Order, error)
	FindByStripeIntent(ctx context.Context, intentID string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListForDeliveryDate(ctx context.Context, date time.Time) ([]models.Order, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByPixTxID(ctx context.Context, txid string) (*models.Order, error) {
	return r.findOne(ctx, "pix_transaction_id = ?", txid)
}

func (r *repository) FindByStripeIntent(ctx context.Context, intentID string) (*models.Order, error) {
	return r.findOne(ctx, "stripe_payment_intent_id = ?", intentID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	found, err := r.base.First(ctx, &order, query, arg)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListForDeliveryDate returns orders dated for date, skipping cancelled ones.
func (r *repository) ListForDeliveryDate(ctx context.Context, date time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.base.DB(ctx).
		Where("delivery_date = ?", date).
		Where("delivery_status <> ?", enums.DeliveryStatusCancelled).
		Where("payment_status <> ?", enums.PaymentStatusCancelled).
		Order("delivery_time_slot ASC, order_number ASC").
		Find(&orders).Error
	return orders, err
}
