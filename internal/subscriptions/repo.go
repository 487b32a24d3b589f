package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// Repository covers subscription and delivery persistence for reconciliation,
// the delivery feed and the next-delivery refresh job.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	// FindByProviderReference matches ref against either the instant
	// transaction id or the recurrence authorization id.
	FindByProviderReference(ctx context.Context, ref string) (*models.Subscription, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	InsertDeliveries(ctx context.Context, deliveries []models.SubscriptionDelivery) error
	// DeleteFutureWaitingDeliveries removes waiting deliveries dated on or after from.
	DeleteFutureWaitingDeliveries(ctx context.Context, subscriptionID uuid.UUID, from time.Time) (int64, error)
	ListDeliveries(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionDelivery, error)
	ListDeliveriesForDate(ctx context.Context, date time.Time) ([]models.SubscriptionDelivery, error)
	ListActiveWithNextDeliveryBefore(ctx context.Context, date time.Time, limit int) ([]models.Subscription, error)
	EarliestWaitingDelivery(ctx context.Context, subscriptionID uuid.UUID, from time.Time) (*models.SubscriptionDelivery, error)
}

type repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByProviderReference(ctx context.Context, ref string) (*models.Subscription, error) {
	return r.findOne(ctx, "pix_transaction_id = ? OR pix_autorizacao_id = ?", ref, ref)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.Subscription, error) {
	var sub models.Subscription
	found, err := r.base.First(ctx, &sub, query, args...)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) InsertDeliveries(ctx context.Context, deliveries []models.SubscriptionDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&deliveries).Error
}

func (r *repository) DeleteFutureWaitingDeliveries(ctx context.Context, subscriptionID uuid.UUID, from time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Where("delivery_status = ?", enums.DeliveryStatusWaiting).
		Where("delivery_date >= ?", from).
		Delete(&models.SubscriptionDelivery{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListDeliveries(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionDelivery, error) {
	var deliveries []models.SubscriptionDelivery
	err := r.base.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("delivery_date ASC").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repository) ListDeliveriesForDate(ctx context.Context, date time.Time) ([]models.SubscriptionDelivery, error) {
	var deliveries []models.SubscriptionDelivery
	err := r.base.DB(ctx).
		Where("delivery_date = ?", date).
		Where("delivery_status <> ?", enums.DeliveryStatusCancelled).
		Order("created_at ASC").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repository) ListActiveWithNextDeliveryBefore(ctx context.Context, date time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	query := r.base.DB(ctx).
		Where("status = ?", enums.SubscriptionStatusActive).
		Where("(next_delivery_date IS NULL OR next_delivery_date < ?)", date).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&subs).Error
	return subs, err
}

func (r *repository) EarliestWaitingDelivery(ctx context.Context, subscriptionID uuid.UUID, from time.Time) (*models.SubscriptionDelivery, error) {
	var delivery models.SubscriptionDelivery
	err := r.base.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Where("delivery_status = ?", enums.DeliveryStatusWaiting).
		Where("delivery_date >= ?", from).
		Order("delivery_date ASC").
		First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}
