package reconciliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johsantss21/Thays-admin/internal/audit"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/outbox/payloads"
)

// Sao Paulo has kept UTC-3 all year since 2019.
var saoPaulo = time.FixedZone("America/Sao_Paulo", -3*60*60)

func testEnv(t *testing.T, clock string) Env {
	t.Helper()
	now, err := time.ParseInLocation("2006-01-02 15:04", clock, saoPaulo)
	require.NoError(t, err)
	return Env{Now: now, Cutoff: scheduling.DefaultCutoff, Holidays: scheduling.NewHolidaySet()}
}

func weeklySub(status enums.SubscriptionStatus) *models.Subscription {
	return &models.Subscription{
		ID:              uuid.New(),
		DeliveryWeekday: enums.WeekdayMonday,
		Frequency:       enums.FrequencyWeekly,
		Status:          status,
		TotalAmount:     decimal.RequireFromString("120.00"),
	}
}

func TestDecideInstantOrderBeforeCutoff(t *testing.T) {
	env := testEnv(t, "2026-10-19 10:00")
	order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusPending}
	ev := InstantPayment{TxID: "tx-1", EndToEndID: "E2E-1"}

	d := Decide(InstantRoute, ev, Target{Order: order}, env)

	require.Equal(t, OutcomeApplied, d.Outcome)
	assert.Equal(t, enums.PaymentStatusConfirmed, d.OrderUpdates["payment_status"])
	assert.Equal(t, enums.TimeSlotAfternoon, d.OrderUpdates["delivery_time_slot"])
	assert.Equal(t, "pix_order_confirmed", d.Audit.EventType)
	assert.Equal(t, "E2E-1", d.Audit.Payload["endToEndId"])
	require.Len(t, d.Events, 1)
	data, ok := d.Events[0].Data.(*payloads.OrderPaymentConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, "2026-10-19", data.DeliveryDate)
	assert.Equal(t, enums.ProviderEfi, data.Provider)
}

func TestDecideInstantOrderAfterCutoffRollsPastWeekend(t *testing.T) {
	env := testEnv(t, "2026-10-23 15:30") // Friday
	order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusPending}

	d := Decide(InstantRoute, InstantPayment{TxID: "tx-2"}, Target{Order: order}, env)

	data := d.Events[0].Data.(*payloads.OrderPaymentConfirmedEvent)
	assert.Equal(t, "2026-10-26", data.DeliveryDate)
	assert.Equal(t, enums.TimeSlotMorning, data.DeliveryTimeSlot)
}

func TestDecideConfirmedOrderIsNotRedated(t *testing.T) {
	env := testEnv(t, "2026-10-19 10:00")
	order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusConfirmed}

	d := Decide(InstantRoute, InstantPayment{TxID: "tx-3"}, Target{Order: order}, env)

	assert.Equal(t, OutcomeNoop, d.Outcome)
	assert.Empty(t, d.OrderUpdates)
	assert.Empty(t, d.Events)
	assert.Equal(t, enums.AuditWarning, d.Audit.Status)
}

func TestDecideInstantNotFound(t *testing.T) {
	d := Decide(InstantRoute, InstantPayment{TxID: "ghost"}, Target{}, testEnv(t, "2026-10-19 10:00"))

	assert.Equal(t, OutcomeNotFound, d.Outcome)
	assert.False(t, d.Outcome.Records())
	assert.Equal(t, "pix_txid_nao_encontrado", d.Audit.EventType)
	assert.Equal(t, audit.EntityWebhook, d.Audit.EntityType)
	assert.Nil(t, d.Audit.EntityID)
	assert.Equal(t, enums.AuditWarning, d.Audit.Status)
}

func TestDecideInstantActivatesSubscription(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusPaused)
	env := testEnv(t, "2026-10-19 10:00")

	d := Decide(AutomaticRoute, InstantPayment{TxID: "tx-sub"}, Target{Subscription: sub}, env)

	require.Equal(t, OutcomeApplied, d.Outcome)
	assert.Equal(t, enums.SubscriptionStatusActive, d.SubscriptionUpdates["status"])
	assert.Equal(t, false, d.SubscriptionUpdates["pix_recorrencia_autorizada"])
	assert.Equal(t, enums.RecurrenceAwaitingAuthorization, d.SubscriptionUpdates["pix_recorrencia_status"])
	assert.Equal(t, sub.TotalAmount, d.SubscriptionUpdates["pix_recorrencia_valor_mensal"])
	assert.Equal(t, "pix_sub_ativada_aguardando_rec", d.Audit.EventType)
	assert.Equal(t, "2026-10-26", d.Audit.Payload["nextDelivery"])
	assert.Equal(t, "pix_sub_stock_insuficiente", d.StockAuditTag)
	require.Len(t, d.DeliveryDates, 4)
	for _, date := range d.DeliveryDates {
		assert.Equal(t, time.Monday, date.Weekday())
	}
	require.Len(t, d.Events, 2)
	assert.Equal(t, enums.EventSubscriptionActivated, d.Events[0].EventType)
	assert.Equal(t, enums.EventSubscriptionDeliveriesScheduled, d.Events[1].EventType)
}

func TestDecideInstantRouteActivationLeavesCycleToCharge(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusPaused)

	d := Decide(InstantRoute, InstantPayment{TxID: "tx-sub"}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

	require.Equal(t, OutcomeApplied, d.Outcome)
	assert.Equal(t, enums.SubscriptionStatusActive, d.SubscriptionUpdates["status"])
	assert.Equal(t, enums.RecurrenceAwaitingAuthorization, d.SubscriptionUpdates["pix_recorrencia_status"])
	assert.Equal(t, "pix_sub_ativada", d.Audit.EventType)
	assert.Equal(t, "2026-10-26", d.Audit.Payload["nextDelivery"])
	assert.Equal(t, 0, d.Audit.Payload["deliveryCount"])
	assert.Empty(t, d.DeliveryDates)
	require.Len(t, d.Events, 1)
	assert.Equal(t, enums.EventSubscriptionActivated, d.Events[0].EventType)
}

func TestDecideInstantOnActiveSubscriptionIsNoop(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusActive)

	d := Decide(InstantRoute, InstantPayment{TxID: "tx"}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

	assert.Equal(t, OutcomeNoop, d.Outcome)
	assert.True(t, d.Outcome.Records())
	assert.Empty(t, d.SubscriptionUpdates)
	assert.Empty(t, d.DeliveryDates)
}

func TestDecideRecurrenceApprovedPromotesPaused(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusPaused)

	d := Decide(AutomaticRoute, RecurrenceUpdate{RecurrenceID: "rec-1", Status: RecurrenceApproved}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

	require.Equal(t, OutcomeApplied, d.Outcome)
	assert.Equal(t, enums.SubscriptionStatusActive, d.SubscriptionUpdates["status"])
	assert.Equal(t, true, d.SubscriptionUpdates["pix_recorrencia_autorizada"])
	assert.Equal(t, enums.RecurrenceActive, d.SubscriptionUpdates["pix_recorrencia_status"])
	assert.Equal(t, "rec_aprovada", d.Audit.EventType)
	assert.Equal(t, enums.SubscriptionStatusActive, d.Audit.Payload["newSubStatus"])
	require.Len(t, d.Events, 2)
}

func TestDecideRecurrenceApprovedKeepsActive(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusActive)

	d := Decide(AutomaticRoute, RecurrenceUpdate{RecurrenceID: "rec-1", Status: RecurrenceApproved}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

	_, touched := d.SubscriptionUpdates["status"]
	assert.False(t, touched)
	require.Len(t, d.Events, 1)
	assert.Equal(t, enums.EventSubscriptionRecurrenceAuthorized, d.Events[0].EventType)
}

func TestDecideRecurrenceRejectedPauses(t *testing.T) {
	cases := map[string]enums.RecurrenceStatus{
		RecurrenceRejected:  enums.RecurrenceRejected,
		RecurrenceCancelled: enums.RecurrenceCancelled,
	}
	for status, want := range cases {
		t.Run(status, func(t *testing.T) {
			sub := weeklySub(enums.SubscriptionStatusActive)
			d := Decide(AutomaticRoute, RecurrenceUpdate{RecurrenceID: "rec-2", Status: status}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

			require.Equal(t, OutcomeApplied, d.Outcome)
			assert.True(t, d.ClearFutureDeliveries)
			assert.Equal(t, enums.SubscriptionStatusPaused, d.SubscriptionUpdates["status"])
			assert.Equal(t, want, d.SubscriptionUpdates["pix_recorrencia_status"])
			assert.Equal(t, "rec_rejeitada_sub_pausada", d.Audit.EventType)
			assert.Equal(t, enums.AuditError, d.Audit.Status)
		})
	}
}

func TestDecideRecurrenceUnknownStatusIgnored(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusActive)
	d := Decide(AutomaticRoute, RecurrenceUpdate{RecurrenceID: "rec-3", Status: "CRIADA"}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))
	assert.Equal(t, OutcomeIgnored, d.Outcome)
	assert.Empty(t, d.Audit.EventType)
}

func TestDecideUnknownStatusOnMissingSubscriptionIsNotFound(t *testing.T) {
	env := testEnv(t, "2026-10-19 10:00")

	rec := Decide(AutomaticRoute, RecurrenceUpdate{RecurrenceID: "rec-x", Status: "CRIADA"}, Target{}, env)
	assert.Equal(t, OutcomeNotFound, rec.Outcome)
	assert.Equal(t, "rec_sub_nao_encontrada", rec.Audit.EventType)
	assert.Equal(t, enums.AuditWarning, rec.Audit.Status)

	cobr := Decide(AutomaticRoute, ChargeUpdate{RecurrenceID: "rec-x", TxID: "c-x", Status: "ATIVA"}, Target{}, env)
	assert.Equal(t, OutcomeNotFound, cobr.Outcome)
	assert.Equal(t, "cobr_sub_nao_encontrada", cobr.Audit.EventType)
}

func TestDecideChargeSettledMaterializesCycle(t *testing.T) {
	sub := weeklySub(enums.SubscriptionStatusActive)
	sub.DeliveryWeekdays = []string{"segunda", "quinta"}

	d := Decide(AutomaticRoute, ChargeUpdate{RecurrenceID: "rec-4", TxID: "tx-4", Status: ChargeSettled}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

	require.Equal(t, OutcomeApplied, d.Outcome)
	// round(2 * 4.33) = 9 deliveries in the 35-day window.
	assert.Len(t, d.DeliveryDates, 9)
	assert.Equal(t, "cobr_paga", d.Audit.EventType)
	assert.Equal(t, 9, d.Audit.Payload["deliveryCount"])
	assert.Equal(t, "2026-10-22", d.Audit.Payload["nextDelivery"])
	assert.Equal(t, enums.RecurrenceActive, d.SubscriptionUpdates["pix_recorrencia_status"])
	assert.Equal(t, "cobr_stock_insuficiente", d.StockAuditTag)
}

func TestDecideChargeFailurePauses(t *testing.T) {
	for _, status := range []string{ChargeCancelled, ChargeNotPerformed, ChargeRejected} {
		sub := weeklySub(enums.SubscriptionStatusActive)
		d := Decide(AutomaticRoute, ChargeUpdate{RecurrenceID: "rec-5", Status: status}, Target{Subscription: sub}, testEnv(t, "2026-10-19 10:00"))

		require.Equal(t, OutcomeApplied, d.Outcome, status)
		assert.True(t, d.ClearFutureDeliveries)
		assert.Equal(t, enums.RecurrenceChargeFailed, d.SubscriptionUpdates["pix_recorrencia_status"])
		assert.Equal(t, "cobr_falha_sub_pausada", d.Audit.EventType)
	}
}

func TestDecideCancelledSubscriptionIsTerminal(t *testing.T) {
	env := testEnv(t, "2026-10-19 10:00")
	events := []Event{
		InstantPayment{TxID: "tx"},
		RecurrenceUpdate{RecurrenceID: "rec", Status: RecurrenceApproved},
		ChargeUpdate{RecurrenceID: "rec", Status: ChargeSettled},
		ChargeUpdate{RecurrenceID: "rec", Status: ChargeRejected},
	}
	for _, ev := range events {
		sub := weeklySub(enums.SubscriptionStatusCancelled)
		d := Decide(AutomaticRoute, ev, Target{Subscription: sub}, env)
		assert.Equal(t, OutcomeNoop, d.Outcome, ev.Key())
		assert.Empty(t, d.SubscriptionUpdates, ev.Key())
		assert.Empty(t, d.Events, ev.Key())
	}

	paid := Decide(AutomaticRoute, ChargeUpdate{RecurrenceID: "rec", Status: ChargeConcluded}, Target{Subscription: weeklySub(enums.SubscriptionStatusCancelled)}, env)
	assert.Equal(t, enums.AuditError, paid.Audit.Status)
}

func TestDecideCardPayment(t *testing.T) {
	env := testEnv(t, "2026-10-19 10:00")

	t.Run("succeeded confirms", func(t *testing.T) {
		order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusPending}
		d := Decide(CardRoute, CardPayment{EventID: "evt_1", Type: StripeIntentSucceeded, PaymentIntentID: "pi_1"}, Target{Order: order}, env)
		require.Equal(t, OutcomeApplied, d.Outcome)
		data := d.Events[0].Data.(*payloads.OrderPaymentConfirmedEvent)
		assert.Equal(t, enums.ProviderStripe, data.Provider)
		assert.Equal(t, "pi_1", data.ProviderRef)
	})

	t.Run("failed refuses pending order", func(t *testing.T) {
		order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusPending}
		d := Decide(CardRoute, CardPayment{EventID: "evt_2", Type: StripeIntentFailed, PaymentIntentID: "pi_2"}, Target{Order: order}, env)
		assert.Equal(t, enums.PaymentStatusRefused, d.OrderUpdates["payment_status"])
		assert.Equal(t, enums.EventOrderPaymentFailed, d.Events[0].EventType)
	})

	t.Run("canceled leaves confirmed order", func(t *testing.T) {
		order := &models.Order{ID: uuid.New(), PaymentStatus: enums.PaymentStatusConfirmed}
		d := Decide(CardRoute, CardPayment{EventID: "evt_3", Type: StripeIntentCanceled, PaymentIntentID: "pi_3"}, Target{Order: order}, env)
		assert.Equal(t, OutcomeNoop, d.Outcome)
		assert.Empty(t, d.OrderUpdates)
	})

	t.Run("other types ignored", func(t *testing.T) {
		d := Decide(CardRoute, CardPayment{EventID: "evt_4", Type: "charge.refunded"}, Target{}, env)
		assert.Equal(t, OutcomeIgnored, d.Outcome)
	})
}
