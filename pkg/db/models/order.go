package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// Order is a one-off purchase. DeliveryDate stays nil until payment is confirmed.
type Order struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID            *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	OrderNumber           string               `gorm:"column:order_number;not null"`
	TotalAmount           decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus         enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null;default:'pendente'"`
	DeliveryStatus        enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null;default:'aguardando'"`
	DeliveryDate          *datatypes.Date      `gorm:"column:delivery_date;type:date"`
	DeliveryTimeSlot      *enums.TimeSlot      `gorm:"column:delivery_time_slot;type:time_slot"`
	PaymentMethod         *string              `gorm:"column:payment_method"`
	PaymentConfirmedAt    *time.Time           `gorm:"column:payment_confirmed_at"`
	PixTransactionID      *string              `gorm:"column:pix_transaction_id;index"`
	StripePaymentIntentID *string              `gorm:"column:stripe_payment_intent_id;index"`
	CancellationReason    *string              `gorm:"column:cancellation_reason"`
	CancelledAt           *time.Time           `gorm:"column:cancelled_at"`
	Notes                 *string              `gorm:"column:notes"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
