package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/audit"
	"github.com/johsantss21/Thays-admin/internal/ledger"
	"github.com/johsantss21/Thays-admin/internal/orders"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/stock"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	pkgdb "github.com/johsantss21/Thays-admin/pkg/db"
	"github.com/johsantss21/Thays-admin/pkg/db/dbtest"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	"github.com/johsantss21/Thays-admin/pkg/outbox"
)

type stubSettings struct{}

func (stubSettings) CutoffTime(context.Context) scheduling.TimeOfDay { return scheduling.DefaultCutoff }
func (stubSettings) Holidays(context.Context) scheduling.HolidaySet {
	return scheduling.NewHolidaySet()
}
func (stubSettings) OperatingDays(context.Context) []time.Weekday { return nil }

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

// blindLedger hides recorded keys from the fast-path check so Claim is the
// only gate, as with two concurrent deliveries.
type blindLedger struct{ ledger.Ledger }

func (blindLedger) IsProcessed(context.Context, string, enums.WebhookProvider) (bool, error) {
	return false, nil
}

type harness struct {
	db     *gorm.DB
	engine *Engine
	ledger ledger.Ledger
	subs   subscriptions.Repository
	orders orders.Repository
}

func newHarness(t *testing.T, tweak func(*ServiceParams)) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.Nop()
	h := &harness{
		db:     conn,
		ledger: ledger.New(conn),
		subs:   subscriptions.NewRepository(conn),
		orders: orders.NewRepository(conn),
	}
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, saoPaulo)
	params := ServiceParams{
		DB:            pkgdb.Wrap(conn),
		Ledger:        h.ledger,
		Orders:        h.orders,
		Subscriptions: h.subs,
		Outbox:        outbox.NewService(outbox.NewRepository(conn), logg),
		Audit:         audit.NewRecorder(conn, logg),
		Stock:         stock.NewChecker(conn),
		Settings:      stubSettings{},
		Clock:         scheduling.FixedClock(now),
		Tasks:         InlineDispatcher{},
		Logger:        logg,
	}
	if tweak != nil {
		tweak(&params)
	}
	engine, err := NewEngine(params)
	require.NoError(t, err)
	h.engine = engine
	return h
}

func strPtr(v string) *string { return &v }

func (h *harness) seedOrder(t *testing.T, txid string) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:      "PED-" + uuid.NewString()[:6],
		TotalAmount:      decimal.RequireFromString("59.90"),
		PaymentStatus:    enums.PaymentStatusPending,
		DeliveryStatus:   enums.DeliveryStatusWaiting,
		PixTransactionID: strPtr(txid),
	}
	require.NoError(t, h.db.Create(&order).Error)
	return order
}

func (h *harness) seedSubscription(t *testing.T, status enums.SubscriptionStatus, txid, idRec string) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		SubscriptionNumber: "ASS-" + uuid.NewString()[:6],
		DeliveryWeekday:    enums.WeekdayMonday,
		Frequency:          enums.FrequencyWeekly,
		Status:             status,
		TotalAmount:        decimal.RequireFromString("120.00"),
		PixTransactionID:   strPtr(txid),
		PixAuthorizationID: strPtr(idRec),
	}
	require.NoError(t, h.db.Create(&sub).Error)
	return sub
}

func (h *harness) subscription(t *testing.T, id uuid.UUID) *models.Subscription {
	t.Helper()
	sub, err := h.subs.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}

func (h *harness) audits(t *testing.T, eventType string) []models.SystemAuditLog {
	t.Helper()
	var rows []models.SystemAuditLog
	require.NoError(t, h.db.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func TestInstantOrderConfirmedOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	order := h.seedOrder(t, "tx-order")
	body := []byte(`{"pix":[{"txid":"tx-order","endToEndId":"E2E-ORDER","valor":"59.90"}]}`)

	first, err := h.engine.HandleBatch(ctx, InstantRoute, body)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Applied)

	second, err := h.engine.HandleBatch(ctx, InstantRoute, body)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Duplicate)
	assert.Equal(t, 0, second.Applied)

	got, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusConfirmed, got.PaymentStatus)
	require.NotNil(t, got.DeliveryDate)
	assert.Equal(t, "2026-10-19", time.Time(*got.DeliveryDate).Format(scheduling.DateLayout))
	require.NotNil(t, got.DeliveryTimeSlot)
	assert.Equal(t, enums.TimeSlotAfternoon, *got.DeliveryTimeSlot)
	assert.NotNil(t, got.PaymentConfirmedAt)

	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}))
	assert.Len(t, h.audits(t, "pix_order_confirmed"), 1)
	processed, err := h.ledger.IsProcessed(ctx, "E2E-ORDER", enums.ProviderEfi)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestNotFoundStaysRetryable(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	body := []byte(`{"pix":{"txid":"tx-early","endToEndId":"E2E-EARLY"}}`)

	summary, err := h.engine.HandleBatch(ctx, InstantRoute, body)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotFound)
	require.Len(t, h.audits(t, "pix_txid_nao_encontrado"), 1)
	processed, err := h.ledger.IsProcessed(ctx, "E2E-EARLY", enums.ProviderEfi)
	require.NoError(t, err)
	assert.False(t, processed)

	h.seedOrder(t, "tx-early")
	summary, err = h.engine.HandleBatch(ctx, InstantRoute, body)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
}

func TestInstantThenRecurrenceApproval(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusPaused, "tx-sub", "RR-1")

	_, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"pix":[{"txid":"tx-sub","endToEndId":"E2E-SUB"}]}`))
	require.NoError(t, err)
	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, got.Status)
	assert.False(t, got.RecurrenceAuthorized)
	require.NotNil(t, got.RecurrenceStatus)
	assert.Equal(t, enums.RecurrenceAwaitingAuthorization, *got.RecurrenceStatus)
	require.NotNil(t, got.NextDeliveryDate)
	assert.Equal(t, "2026-10-26", time.Time(*got.NextDeliveryDate).Format(scheduling.DateLayout))
	deliveries, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, deliveries, 4)

	activation := h.audits(t, "pix_sub_ativada_aguardando_rec")
	require.Len(t, activation, 1)
	assert.Equal(t, true, activation[0].PayloadJSON["stockOk"])

	_, err = h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"rec":[{"idRec":"RR-1","status":"APROVADA"}]}`))
	require.NoError(t, err)
	got = h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, got.Status)
	assert.True(t, got.RecurrenceAuthorized)
	assert.Equal(t, enums.RecurrenceActive, *got.RecurrenceStatus)
}

func TestRecurrenceApprovalThenInstantIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusPaused, "tx-late", "RR-2")

	_, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"rec":[{"idRec":"RR-2","status":"APROVADA"}]}`))
	require.NoError(t, err)

	summary, err := h.engine.HandleBatch(ctx, InstantRoute, []byte(`{"pix":[{"txid":"tx-late"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Noop)

	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, got.Status)
	assert.True(t, got.RecurrenceAuthorized)
	assert.Equal(t, enums.RecurrenceActive, *got.RecurrenceStatus)
	processed, err := h.ledger.IsProcessed(ctx, "tx-late", enums.ProviderEfi)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestRecurrenceStatusesAreDistinctEvents(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusActive, "tx-rec", "RR-3")
	_, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"cobr":[{"idRec":"RR-3","txid":"cobr-1","status":"LIQUIDADA"}]}`))
	require.NoError(t, err)

	summary, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"rec":[
		{"idRec":"RR-3","status":"APROVADA"},
		{"idRec":"RR-3","status":"CANCELADA"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Applied)

	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusPaused, got.Status)
	assert.False(t, got.RecurrenceAuthorized)
	assert.Equal(t, enums.RecurrenceCancelled, *got.RecurrenceStatus)

	deliveries, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
	assert.Len(t, h.audits(t, "rec_rejeitada_sub_pausada"), 1)
}

func TestChargeFailureKeepsPastAndRoutedDeliveries(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusActive, "tx-c", "RR-4")
	rows := []models.SubscriptionDelivery{
		deliveryRows(sub.ID, sub.TotalAmount, []time.Time{scheduling.CivilDate(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC))})[0],
		deliveryRows(sub.ID, sub.TotalAmount, []time.Time{scheduling.CivilDate(time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC))})[0],
		deliveryRows(sub.ID, sub.TotalAmount, []time.Time{scheduling.CivilDate(time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC))})[0],
	}
	rows[2].DeliveryStatus = enums.DeliveryStatusInRoute
	require.NoError(t, h.subs.InsertDeliveries(ctx, rows))

	_, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"cobr":[{"idRec":"RR-4","txid":"cobr-9","status":"NAO_REALIZADA"}]}`))
	require.NoError(t, err)

	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusPaused, got.Status)
	assert.Equal(t, enums.RecurrenceChargeFailed, *got.RecurrenceStatus)
	left, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, left, 2)

	var event models.OutboxEvent
	require.NoError(t, h.db.Where("event_type = ?", enums.EventSubscriptionPaused).First(&event).Error)
	assert.Contains(t, string(event.Payload), `"deliveries_removed":1`)
}

func TestCancelledSubscriptionIsNeverReactivated(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusCancelled, "tx-x", "RR-5")

	summary, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{
		"rec":[{"idRec":"RR-5","status":"APROVADA"}],
		"cobr":[{"idRec":"RR-5","txid":"cobr-5","status":"CONCLUIDA"}],
		"pix":[{"txid":"tx-x"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Noop)

	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusCancelled, got.Status)
	assert.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}))
	assert.EqualValues(t, 3, h.count(t, &models.WebhookEvent{}))
	paid := h.audits(t, "cobr_sub_cancelada")
	require.Len(t, paid, 1)
	assert.Equal(t, enums.AuditError, paid[0].Status)
}

func TestFailedEmitRollsBackTransition(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) { p.Outbox = failingEmitter{} })
	ctx := context.Background()
	order := h.seedOrder(t, "tx-rollback")

	_, err := h.engine.HandleBatch(ctx, InstantRoute, []byte(`{"pix":[{"txid":"tx-rollback"}]}`))
	require.Error(t, err)

	got, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, got.PaymentStatus)
	assert.Nil(t, got.DeliveryDate)
	assert.EqualValues(t, 0, h.count(t, &models.WebhookEvent{}))
	assert.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}))
	assert.Len(t, h.audits(t, "pix_webhook_erro"), 1)
}

func TestConcurrentClaimCountsAsDuplicate(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) { p.Ledger = blindLedger{Ledger: p.Ledger} })
	ctx := context.Background()
	order := h.seedOrder(t, "tx-race")
	require.NoError(t, h.ledger.MarkProcessed(ctx, "tx-race", enums.ProviderEfi))

	summary, err := h.engine.HandleBatch(ctx, InstantRoute, []byte(`{"pix":[{"txid":"tx-race"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Duplicate)

	got, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, got.PaymentStatus)
	assert.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}))
}

func TestMalformedBodyIsAudited(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.engine.HandleBatch(context.Background(), AutomaticRoute, []byte(`{"rec":"oops"}`))
	require.Error(t, err)
	assert.Len(t, h.audits(t, "pix_auto_webhook_erro"), 1)
}

func TestStockShortfallIsAuditedAfterCommit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusActive, "tx-stock", "RR-6")
	product := models.Product{Name: "Alface crespa", Code: "ALF", Stock: 1, Active: true}
	require.NoError(t, h.db.Create(&product).Error)
	require.NoError(t, h.db.Create(&models.SubscriptionItem{
		SubscriptionID: sub.ID,
		ProductID:      product.ID,
		Quantity:       3,
		UnitPrice:      decimal.RequireFromString("4.00"),
	}).Error)

	_, err := h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"cobr":[{"idRec":"RR-6","txid":"cobr-6","status":"LIQUIDADA"}]}`))
	require.NoError(t, err)

	shortfall := h.audits(t, "cobr_stock_insuficiente")
	require.Len(t, shortfall, 1)
	assert.Equal(t, audit.EntityStock, shortfall[0].EntityType)
	paid := h.audits(t, "cobr_paga")
	require.Len(t, paid, 1)
	assert.Equal(t, false, paid[0].PayloadJSON["stockOk"])

	deliveries, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, deliveries, 4)
}

func TestChargeReplayMaterializesOneCycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusActive, "tx-cycle", "RR-7")
	body := []byte(`{"cobr":[{"idRec":"RR-7","txid":"cobr-7","status":"CONCLUIDA"}]}`)

	for i := 0; i < 3; i++ {
		_, err := h.engine.HandleBatch(ctx, AutomaticRoute, body)
		require.NoError(t, err)
	}

	deliveries, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 4)
	for _, d := range deliveries {
		assert.Equal(t, enums.PaymentStatusConfirmed, d.PaymentStatus)
		assert.Equal(t, enums.DeliveryStatusWaiting, d.DeliveryStatus)
		assert.Equal(t, time.Monday, time.Time(d.DeliveryDate).Weekday())
	}
	assert.Len(t, h.audits(t, "cobr_paga"), 1)
	processed, err := h.ledger.IsProcessed(ctx, "cobr_cobr-7_CONCLUIDA", enums.ProviderEfi)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestCardPaymentProcessedOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	order := h.seedOrder(t, "tx-card")
	require.NoError(t, h.orders.Update(ctx, order.ID, map[string]any{"stripe_payment_intent_id": "pi_card"}))
	event := CardPayment{EventID: "evt_card", Type: StripeIntentSucceeded, PaymentIntentID: "pi_card"}

	first, err := h.engine.Process(ctx, CardRoute, []Event{event})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Applied)
	second, err := h.engine.Process(ctx, CardRoute, []Event{event})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Duplicate)

	got, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusConfirmed, got.PaymentStatus)
	require.NotNil(t, got.DeliveryDate)
	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}))
	processed, err := h.ledger.IsProcessed(ctx, "evt_card", enums.ProviderStripe)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInstantRouteActivationDefersDeliveriesToCharge(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sub := h.seedSubscription(t, enums.SubscriptionStatusPaused, "tx-s", "RR-s")

	summary, err := h.engine.HandleBatch(ctx, InstantRoute, []byte(`{"pix":[{"txid":"tx-s"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)

	got := h.subscription(t, sub.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, got.Status)
	require.NotNil(t, got.NextDeliveryDate)
	assert.Equal(t, "2026-10-26", time.Time(*got.NextDeliveryDate).Format(scheduling.DateLayout))
	assert.EqualValues(t, 0, h.count(t, &models.SubscriptionDelivery{}))

	_, err = h.engine.HandleBatch(ctx, AutomaticRoute, []byte(`{"cobr":[{"idRec":"RR-s","txid":"c1","status":"LIQUIDADA"}]}`))
	require.NoError(t, err)

	deliveries, err := h.subs.ListDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 4)
	seen := map[string]bool{}
	for _, d := range deliveries {
		date := time.Time(d.DeliveryDate).Format(scheduling.DateLayout)
		assert.False(t, seen[date], "duplicate delivery on %s", date)
		seen[date] = true
	}
}

func TestUnreadableAmountStillConfirmsOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	order := h.seedOrder(t, "tx-ok")

	summary, err := h.engine.HandleBatch(ctx, InstantRoute, []byte(`{"pix":[{"txid":"tx-ok","valor":"","endToEndId":"E1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)

	got, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusConfirmed, got.PaymentStatus)
}

func TestUnknownRecurrenceWithUnmappedStatusIsAudited(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	body := []byte(`{"rec":[{"idRec":"RR-ghost","status":"CRIADA"}]}`)

	for i := 0; i < 2; i++ {
		summary, err := h.engine.HandleBatch(ctx, AutomaticRoute, body)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.NotFound)
		assert.Equal(t, 0, summary.Ignored)
	}
	assert.Len(t, h.audits(t, "rec_sub_nao_encontrada"), 2)
	assert.EqualValues(t, 0, h.count(t, &models.WebhookEvent{}))
}
