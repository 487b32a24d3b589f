package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// OrderPaymentConfirmedEvent is emitted when a one-off order is paid and dated.
type OrderPaymentConfirmedEvent struct {
	OrderID          uuid.UUID             `json:"order_id"`
	Provider         enums.WebhookProvider `json:"provider"`
	ProviderRef      string                `json:"provider_ref"`
	DeliveryDate     string                `json:"delivery_date"`
	DeliveryTimeSlot enums.TimeSlot        `json:"delivery_time_slot"`
	ConfirmedAt      time.Time             `json:"confirmed_at"`
}

// OrderPaymentFailedEvent is emitted when a card payment is refused or cancelled.
type OrderPaymentFailedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	ProviderRef   string              `json:"provider_ref"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Reason        string              `json:"reason,omitempty"`
}

// SubscriptionActivatedEvent is emitted when a subscription becomes ativa.
type SubscriptionActivatedEvent struct {
	SubscriptionID   uuid.UUID              `json:"subscription_id"`
	RecurrenceStatus enums.RecurrenceStatus `json:"recurrence_status"`
	NextDeliveryDate string                 `json:"next_delivery_date,omitempty"`
	MonthlyValue     decimal.Decimal        `json:"monthly_value"`
}

// SubscriptionRecurrenceAuthorizedEvent is emitted on an approved PIX recurrence.
type SubscriptionRecurrenceAuthorizedEvent struct {
	SubscriptionID uuid.UUID                `json:"subscription_id"`
	RecurrenceID   string                   `json:"recurrence_id"`
	Status         enums.SubscriptionStatus `json:"status"`
}

// SubscriptionPausedEvent is emitted when a failure pauses a subscription.
type SubscriptionPausedEvent struct {
	SubscriptionID    uuid.UUID              `json:"subscription_id"`
	RecurrenceStatus  enums.RecurrenceStatus `json:"recurrence_status"`
	ProviderStatus    string                 `json:"provider_status"`
	DeliveriesRemoved int64                  `json:"deliveries_removed"`
}

// SubscriptionDeliveriesScheduledEvent lists the deliveries materialized for a cycle.
type SubscriptionDeliveriesScheduledEvent struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	DeliveryDates  []string        `json:"delivery_dates"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}
