package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbtypes "github.com/johsantss21/Thays-admin/pkg/db/types"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// Subscription is a recurring purchase paid by PIX (instant first cycle plus
// recurring authorization) or by card.
type Subscription struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         *uuid.UUID                  `gorm:"column:customer_id;type:uuid"`
	SubscriptionNumber string                      `gorm:"column:subscription_number;not null"`
	DeliveryWeekday    enums.Weekday               `gorm:"column:delivery_weekday;type:weekday"`
	DeliveryWeekdays   dbtypes.StringArray         `gorm:"column:delivery_weekdays;type:text[]"`
	DeliveryTimeSlot   *enums.TimeSlot             `gorm:"column:delivery_time_slot;type:time_slot"`
	Frequency          enums.SubscriptionFrequency `gorm:"column:frequency;type:subscription_frequency;not null;default:'semanal'"`
	Status             enums.SubscriptionStatus    `gorm:"column:status;type:subscription_status;not null;default:'pausada'"`
	IsEmergency        bool                        `gorm:"column:is_emergency;not null;default:false"`
	TotalAmount        decimal.Decimal             `gorm:"column:total_amount;type:numeric(12,2);not null"`
	NextDeliveryDate   *datatypes.Date             `gorm:"column:next_delivery_date;type:date"`

	PixTransactionID       *string                 `gorm:"column:pix_transaction_id;index"`
	PixAuthorizationID     *string                 `gorm:"column:pix_autorizacao_id;index"`
	RecurrenceAuthorized   bool                    `gorm:"column:pix_recorrencia_autorizada;not null;default:false"`
	RecurrenceStatus       *enums.RecurrenceStatus `gorm:"column:pix_recorrencia_status"`
	RecurrenceStartedAt    *time.Time              `gorm:"column:pix_recorrencia_data_inicio"`
	RecurrenceMonthlyValue decimal.NullDecimal     `gorm:"column:pix_recorrencia_valor_mensal;type:numeric(12,2)"`
	StripeSubscriptionID   *string                 `gorm:"column:stripe_subscription_id"`
	Notes                  *string                 `gorm:"column:notes"`
	CreatedAt              time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SubscriptionItem is read-only here; it feeds the stock checker.
type SubscriptionItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID       `gorm:"column:subscription_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	ReservedStock  int             `gorm:"column:reserved_stock;not null;default:0"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Product        *Product        `gorm:"foreignKey:ProductID;references:ID"`
}

func (SubscriptionItem) TableName() string { return "subscription_items" }

func (i *SubscriptionItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// SubscriptionDelivery is one materialized delivery of a billing cycle.
type SubscriptionDelivery struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID            `gorm:"column:subscription_id;type:uuid;not null;index"`
	DeliveryDate   datatypes.Date       `gorm:"column:delivery_date;type:date;not null"`
	PaymentStatus  enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Notes          *string              `gorm:"column:notes"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (SubscriptionDelivery) TableName() string { return "subscription_deliveries" }

func (d *SubscriptionDelivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
