package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/johsantss21/Thays-admin/internal/audit"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/outbox"
	"github.com/johsantss21/Thays-admin/pkg/outbox/payloads"
)

// Outcome is what happened to one event.
type Outcome string

const (
	// OutcomeApplied changed state; the key is recorded.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoop changed nothing but the key is recorded, so retries stop.
	OutcomeNoop Outcome = "noop"
	// OutcomeNotFound leaves the key unrecorded so a later retry can match
	// an entity created after the payment.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeIgnored covers provider statuses with no transition. Not recorded.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means the key was already recorded.
	OutcomeDuplicate Outcome = "duplicate"
)

// Records reports whether the outcome claims the idempotency key.
func (o Outcome) Records() bool {
	return o == OutcomeApplied || o == OutcomeNoop
}

// Target is the entity an event resolved to. At most one field is set.
type Target struct {
	Order        *models.Order
	Subscription *models.Subscription
}

// Env is the time and settings context a decision is taken in.
type Env struct {
	// Now is the current instant in the business timezone.
	Now      time.Time
	Cutoff   scheduling.TimeOfDay
	Holidays scheduling.HolidaySet
}

// Decision is the full effect of one event, computed without I/O.
type Decision struct {
	Outcome               Outcome
	OrderUpdates          map[string]any
	SubscriptionUpdates   map[string]any
	ClearFutureDeliveries bool
	DeliveryDates         []time.Time
	// StockAuditTag, when set, runs an advisory stock check after commit and
	// audits shortfalls under this event type.
	StockAuditTag string
	Audit         audit.Entry
	Events        []outbox.DomainEvent
}

// Decide maps an event and the entity it resolved to onto a Decision.
func Decide(route Route, event Event, target Target, env Env) Decision {
	switch ev := event.(type) {
	case InstantPayment:
		return decideInstant(route, ev, target, env)
	case RecurrenceUpdate:
		return decideRecurrence(ev, target.Subscription)
	case ChargeUpdate:
		return decideCharge(ev, target.Subscription, env)
	case CardPayment:
		return decideCard(ev, target.Order, env)
	default:
		return Decision{Outcome: OutcomeIgnored}
	}
}

func decideInstant(route Route, ev InstantPayment, target Target, env Env) Decision {
	details := ev.details()
	switch {
	case target.Order != nil:
		return confirmOrder(target.Order, "pix_order_confirmed", enums.ProviderEfi, ev.TxID, details, env)
	case target.Subscription != nil:
		return activateSubscription(route, target.Subscription, details, env)
	default:
		return notFound("pix_txid_nao_encontrado", details)
	}
}

func confirmOrder(order *models.Order, tag string, provider enums.WebhookProvider, ref string, details map[string]any, env Env) Decision {
	if order.PaymentStatus == enums.PaymentStatusConfirmed {
		return noop(tag+"_duplicado", audit.EntityOrder, order.ID, details, enums.AuditWarning)
	}

	slot := scheduling.NextDeliverySlot(env.Now, env.Cutoff, env.Holidays)
	confirmedAt := env.Now.UTC()
	date := slot.Date.Format(scheduling.DateLayout)

	payload := withFields(details, map[string]any{
		"delivery": map[string]any{
			"delivery_date":      date,
			"delivery_time_slot": slot.TimeSlot,
		},
	})
	return Decision{
		Outcome: OutcomeApplied,
		OrderUpdates: map[string]any{
			"payment_status":       enums.PaymentStatusConfirmed,
			"payment_confirmed_at": confirmedAt,
			"delivery_date":        datatypes.Date(slot.Date),
			"delivery_time_slot":   slot.TimeSlot,
		},
		Audit: entry(tag, audit.EntityOrder, order.ID, payload, enums.AuditSuccess),
		Events: []outbox.DomainEvent{{
			EventType:     enums.EventOrderPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: &payloads.OrderPaymentConfirmedEvent{
				OrderID:          order.ID,
				Provider:         provider,
				ProviderRef:      ref,
				DeliveryDate:     date,
				DeliveryTimeSlot: slot.TimeSlot,
				ConfirmedAt:      confirmedAt,
			},
		}},
	}
}

// activateSubscription handles the first-cycle instant payment: the
// subscription becomes ativa awaiting recurrence authorization. Routes with
// MaterializeOnActivation also create the paid cycle's deliveries. An already
// active subscription is left untouched.
func activateSubscription(route Route, sub *models.Subscription, details map[string]any, env Env) Decision {
	switch sub.Status {
	case enums.SubscriptionStatusCancelled:
		return noop("pix_sub_cancelada", audit.EntitySubscription, sub.ID, details, enums.AuditError)
	case enums.SubscriptionStatusActive:
		return noop("pix_sub_ja_ativa", audit.EntitySubscription, sub.ID, details, enums.AuditWarning)
	}

	today := scheduling.CivilDate(env.Now)
	pattern := subscriptions.PatternOf(sub)
	var (
		nextDate time.Time
		dates    []time.Time
	)
	if route.MaterializeOnActivation {
		cycle := pattern.PlanCycle(today)
		nextDate, dates = cycle.Next, cycle.Dates
	} else {
		nextDate = pattern.NextDeliveryDate(today)
	}
	next := nextDate.Format(scheduling.DateLayout)

	return Decision{
		Outcome: OutcomeApplied,
		SubscriptionUpdates: map[string]any{
			"status":                       enums.SubscriptionStatusActive,
			"next_delivery_date":           datatypes.Date(nextDate),
			"pix_recorrencia_data_inicio":  env.Now.UTC(),
			"pix_recorrencia_valor_mensal": sub.TotalAmount,
			"pix_recorrencia_autorizada":   false,
			"pix_recorrencia_status":       enums.RecurrenceAwaitingAuthorization,
		},
		DeliveryDates: dates,
		StockAuditTag: "pix_sub_stock_insuficiente",
		Audit: entry(route.ActivationTag, audit.EntitySubscription, sub.ID, withFields(details, map[string]any{
			"nextDelivery":  next,
			"deliveryCount": len(dates),
		}), enums.AuditSuccess),
		Events: append([]outbox.DomainEvent{{
			EventType:     enums.EventSubscriptionActivated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Data: &payloads.SubscriptionActivatedEvent{
				SubscriptionID:   sub.ID,
				RecurrenceStatus: enums.RecurrenceAwaitingAuthorization,
				NextDeliveryDate: next,
				MonthlyValue:     sub.TotalAmount,
			},
		}}, scheduledEvent(sub, dates)...),
	}
}

func decideRecurrence(ev RecurrenceUpdate, sub *models.Subscription) Decision {
	details := ev.details()
	if sub == nil {
		return notFound("rec_sub_nao_encontrada", details)
	}
	switch ev.Status {
	case RecurrenceApproved, RecurrenceRejected, RecurrenceCancelled:
	default:
		return Decision{Outcome: OutcomeIgnored}
	}
	if sub.Status == enums.SubscriptionStatusCancelled {
		return noop("rec_sub_cancelada", audit.EntitySubscription, sub.ID, details, enums.AuditWarning)
	}

	if ev.Status == RecurrenceApproved {
		updates := map[string]any{
			"pix_recorrencia_autorizada": true,
			"pix_recorrencia_status":     enums.RecurrenceActive,
		}
		events := []outbox.DomainEvent{}
		if sub.Status == enums.SubscriptionStatusPaused {
			updates["status"] = enums.SubscriptionStatusActive
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionActivated,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Data: &payloads.SubscriptionActivatedEvent{
					SubscriptionID:   sub.ID,
					RecurrenceStatus: enums.RecurrenceActive,
					NextDeliveryDate: dateString(sub.NextDeliveryDate),
					MonthlyValue:     sub.TotalAmount,
				},
			})
		}
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionRecurrenceAuthorized,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Data: &payloads.SubscriptionRecurrenceAuthorizedEvent{
				SubscriptionID: sub.ID,
				RecurrenceID:   ev.RecurrenceID,
				Status:         enums.SubscriptionStatusActive,
			},
		})
		return Decision{
			Outcome:             OutcomeApplied,
			SubscriptionUpdates: updates,
			Audit: entry("rec_aprovada", audit.EntitySubscription, sub.ID, withFields(details, map[string]any{
				"newSubStatus": enums.SubscriptionStatusActive,
			}), enums.AuditSuccess),
			Events: events,
		}
	}

	recStatus := enums.RecurrenceRejected
	if ev.Status == RecurrenceCancelled {
		recStatus = enums.RecurrenceCancelled
	}
	return pause(sub, ev.Status, map[string]any{
		"status":                     enums.SubscriptionStatusPaused,
		"pix_recorrencia_autorizada": false,
		"pix_recorrencia_status":     recStatus,
	}, recStatus, entry("rec_rejeitada_sub_pausada", audit.EntitySubscription, sub.ID, details, enums.AuditError))
}

func decideCharge(ev ChargeUpdate, sub *models.Subscription, env Env) Decision {
	details := ev.details()
	paid := ev.Status == ChargeSettled || ev.Status == ChargeConcluded
	failed := ev.Status == ChargeCancelled || ev.Status == ChargeNotPerformed || ev.Status == ChargeRejected
	if sub == nil {
		return notFound("cobr_sub_nao_encontrada", details)
	}
	if !paid && !failed {
		return Decision{Outcome: OutcomeIgnored}
	}
	if sub.Status == enums.SubscriptionStatusCancelled {
		status := enums.AuditWarning
		if paid {
			status = enums.AuditError
		}
		return noop("cobr_sub_cancelada", audit.EntitySubscription, sub.ID, details, status)
	}

	if failed {
		return pause(sub, ev.Status, map[string]any{
			"status":                 enums.SubscriptionStatusPaused,
			"pix_recorrencia_status": enums.RecurrenceChargeFailed,
		}, enums.RecurrenceChargeFailed, entry("cobr_falha_sub_pausada", audit.EntitySubscription, sub.ID, details, enums.AuditError))
	}

	cycle := subscriptions.PatternOf(sub).PlanCycle(scheduling.CivilDate(env.Now))
	return Decision{
		Outcome: OutcomeApplied,
		SubscriptionUpdates: map[string]any{
			"next_delivery_date":     datatypes.Date(cycle.Next),
			"pix_recorrencia_status": enums.RecurrenceActive,
		},
		DeliveryDates: cycle.Dates,
		StockAuditTag: "cobr_stock_insuficiente",
		Audit: entry("cobr_paga", audit.EntitySubscription, sub.ID, withFields(details, map[string]any{
			"deliveryCount": len(cycle.Dates),
			"nextDelivery":  cycle.Next.Format(scheduling.DateLayout),
		}), enums.AuditSuccess),
		Events: scheduledEvent(sub, cycle.Dates),
	}
}

func decideCard(ev CardPayment, order *models.Order, env Env) Decision {
	details := ev.details()
	var failedStatus enums.PaymentStatus
	switch ev.Type {
	case StripeIntentSucceeded:
	case StripeIntentFailed:
		failedStatus = enums.PaymentStatusRefused
	case StripeIntentCanceled:
		failedStatus = enums.PaymentStatusCancelled
	default:
		return Decision{Outcome: OutcomeIgnored}
	}
	if order == nil {
		return notFound("stripe_intent_nao_encontrado", details)
	}
	if failedStatus == "" {
		return confirmOrder(order, "stripe_order_confirmed", enums.ProviderStripe, ev.PaymentIntentID, details, env)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return noop("stripe_pagamento_ignorado", audit.EntityOrder, order.ID, details, enums.AuditWarning)
	}
	return Decision{
		Outcome:      OutcomeApplied,
		OrderUpdates: map[string]any{"payment_status": failedStatus},
		Audit:        entry("stripe_pagamento_falhou", audit.EntityOrder, order.ID, details, enums.AuditWarning),
		Events: []outbox.DomainEvent{{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: &payloads.OrderPaymentFailedEvent{
				OrderID:       order.ID,
				ProviderRef:   ev.PaymentIntentID,
				PaymentStatus: failedStatus,
				Reason:        ev.FailureMessage,
			},
		}},
	}
}

func pause(sub *models.Subscription, providerStatus string, updates map[string]any, recStatus enums.RecurrenceStatus, auditEntry audit.Entry) Decision {
	return Decision{
		Outcome:               OutcomeApplied,
		SubscriptionUpdates:   updates,
		ClearFutureDeliveries: true,
		Audit:                 auditEntry,
		Events: []outbox.DomainEvent{{
			EventType:     enums.EventSubscriptionPaused,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Data: &payloads.SubscriptionPausedEvent{
				SubscriptionID:   sub.ID,
				RecurrenceStatus: recStatus,
				ProviderStatus:   providerStatus,
			},
		}},
	}
}

func scheduledEvent(sub *models.Subscription, dates []time.Time) []outbox.DomainEvent {
	if len(dates) == 0 {
		return nil
	}
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = d.Format(scheduling.DateLayout)
	}
	return []outbox.DomainEvent{{
		EventType:     enums.EventSubscriptionDeliveriesScheduled,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Data: &payloads.SubscriptionDeliveriesScheduledEvent{
			SubscriptionID: sub.ID,
			DeliveryDates:  formatted,
			TotalAmount:    sub.TotalAmount,
		},
	}}
}

func notFound(tag string, details map[string]any) Decision {
	return Decision{
		Outcome: OutcomeNotFound,
		Audit:   entry(tag, audit.EntityWebhook, uuid.Nil, details, enums.AuditWarning),
	}
}

func noop(tag, entityType string, id uuid.UUID, details map[string]any, status enums.AuditStatus) Decision {
	return Decision{
		Outcome: OutcomeNoop,
		Audit:   entry(tag, entityType, id, details, status),
	}
}

func entry(tag, entityType string, id uuid.UUID, payload map[string]any, status enums.AuditStatus) audit.Entry {
	e := audit.Entry{EventType: tag, EntityType: entityType, Payload: payload, Status: status}
	if id != uuid.Nil {
		e.EntityID = &id
	}
	return e
}

func withFields(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func dateString(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format(scheduling.DateLayout)
}

// deliveryRows builds the confirmed, waiting delivery rows for a paid cycle.
func deliveryRows(subID uuid.UUID, amount decimal.Decimal, dates []time.Time) []models.SubscriptionDelivery {
	rows := make([]models.SubscriptionDelivery, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, models.SubscriptionDelivery{
			SubscriptionID: subID,
			DeliveryDate:   datatypes.Date(d),
			PaymentStatus:  enums.PaymentStatusConfirmed,
			DeliveryStatus: enums.DeliveryStatusWaiting,
			TotalAmount:    amount,
		})
	}
	return rows
}
