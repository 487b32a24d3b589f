package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateSubscription OutboxAggregateType = "subscription"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSubscription,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventOrderPaymentConfirmed            OutboxEventType = "order_payment_confirmed"
	EventOrderPaymentFailed               OutboxEventType = "order_payment_failed"
	EventSubscriptionActivated            OutboxEventType = "subscription_activated"
	EventSubscriptionRecurrenceAuthorized OutboxEventType = "subscription_recurrence_authorized"
	EventSubscriptionPaused               OutboxEventType = "subscription_paused"
	EventSubscriptionDeliveriesScheduled  OutboxEventType = "subscription_deliveries_scheduled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaymentConfirmed,
	EventOrderPaymentFailed,
	EventSubscriptionActivated,
	EventSubscriptionRecurrenceAuthorized,
	EventSubscriptionPaused,
	EventSubscriptionDeliveriesScheduled,
}

// IsValid reports whether the value matches a known outbox event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
