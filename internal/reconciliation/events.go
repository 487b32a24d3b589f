// Package reconciliation applies payment-provider webhook events to orders
// and subscriptions. Each route classifies its payload into typed events; a
// pure decision step maps (entity state, event) to a transition, and the
// engine persists it together with the idempotency key in one transaction.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// Kind groups events by shape.
type Kind string

const (
	KindInstant    Kind = "instant"
	KindRecurrence Kind = "recurrence"
	KindCharge     Kind = "charge"
	KindCard       Kind = "card"
)

// Provider statuses carried by recurrence (rec) and charge (cobr) events.
const (
	RecurrenceApproved  = "APROVADA"
	RecurrenceRejected  = "REJEITADA"
	RecurrenceCancelled = "CANCELADA"

	ChargeSettled      = "LIQUIDADA"
	ChargeConcluded    = "CONCLUIDA"
	ChargeCancelled    = "CANCELADA"
	ChargeNotPerformed = "NAO_REALIZADA"
	ChargeRejected     = "REJEITADA"
)

// Stripe event types handled by the card route.
const (
	StripeIntentSucceeded = "payment_intent.succeeded"
	StripeIntentFailed    = "payment_intent.payment_failed"
	StripeIntentCanceled  = "payment_intent.canceled"
)

// Event is one provider notification.
type Event interface {
	Kind() Kind
	// Key is the idempotency key recorded in the ledger.
	Key() string
	Provider() enums.WebhookProvider
	// Reference is the provider identifier used to find the affected entity.
	Reference() string
	details() map[string]any
}

// InstantPayment confirms an instant PIX charge (pix[] entries).
type InstantPayment struct {
	TxID       string
	EndToEndID string
	Amount     decimal.NullDecimal
}

func (e InstantPayment) Kind() Kind                      { return KindInstant }
func (e InstantPayment) Provider() enums.WebhookProvider { return enums.ProviderEfi }
func (e InstantPayment) Reference() string               { return e.TxID }

func (e InstantPayment) Key() string {
	if e.EndToEndID != "" {
		return e.EndToEndID
	}
	return e.TxID
}

func (e InstantPayment) details() map[string]any {
	out := map[string]any{"txid": e.TxID}
	if e.EndToEndID != "" {
		out["endToEndId"] = e.EndToEndID
	}
	if e.Amount.Valid {
		out["valor"] = e.Amount.Decimal.StringFixed(2)
	}
	return out
}

// RecurrenceUpdate reports a status change of a PIX recurrence authorization (rec[] entries).
type RecurrenceUpdate struct {
	RecurrenceID string
	Status       string
}

func (e RecurrenceUpdate) Kind() Kind                      { return KindRecurrence }
func (e RecurrenceUpdate) Provider() enums.WebhookProvider { return enums.ProviderEfi }
func (e RecurrenceUpdate) Reference() string               { return e.RecurrenceID }

// Key includes the status so each transition of one authorization is applied once.
func (e RecurrenceUpdate) Key() string {
	return "rec_" + e.RecurrenceID + "_" + e.Status
}

func (e RecurrenceUpdate) details() map[string]any {
	return map[string]any{"idRec": e.RecurrenceID, "status": e.Status}
}

// ChargeUpdate reports the outcome of an automatic recurring charge (cobr[] entries).
type ChargeUpdate struct {
	RecurrenceID string
	TxID         string
	Status       string
}

func (e ChargeUpdate) Kind() Kind                      { return KindCharge }
func (e ChargeUpdate) Provider() enums.WebhookProvider { return enums.ProviderEfi }
func (e ChargeUpdate) Reference() string               { return e.RecurrenceID }

func (e ChargeUpdate) Key() string {
	id := e.TxID
	if id == "" {
		id = e.RecurrenceID
	}
	return "cobr_" + id + "_" + e.Status
}

func (e ChargeUpdate) details() map[string]any {
	out := map[string]any{"idRec": e.RecurrenceID, "status": e.Status}
	if e.TxID != "" {
		out["txid"] = e.TxID
	}
	return out
}

// CardPayment is a Stripe payment_intent event.
type CardPayment struct {
	EventID         string
	Type            string
	PaymentIntentID string
	FailureMessage  string
}

func (e CardPayment) Kind() Kind                      { return KindCard }
func (e CardPayment) Provider() enums.WebhookProvider { return enums.ProviderStripe }
func (e CardPayment) Reference() string               { return e.PaymentIntentID }
func (e CardPayment) Key() string                     { return e.EventID }

func (e CardPayment) details() map[string]any {
	out := map[string]any{
		"event_id":          e.EventID,
		"type":              e.Type,
		"payment_intent_id": e.PaymentIntentID,
	}
	if e.FailureMessage != "" {
		out["failure_message"] = e.FailureMessage
	}
	return out
}
