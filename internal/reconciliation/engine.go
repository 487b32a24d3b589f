package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/audit"
	"github.com/johsantss21/Thays-admin/internal/ledger"
	"github.com/johsantss21/Thays-admin/internal/orders"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/settings"
	"github.com/johsantss21/Thays-admin/internal/stock"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	"github.com/johsantss21/Thays-admin/pkg/db"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	"github.com/johsantss21/Thays-admin/pkg/metrics"
	"github.com/johsantss21/Thays-admin/pkg/outbox"
	"github.com/johsantss21/Thays-admin/pkg/outbox/payloads"
)

const tracerName = "github.com/johsantss21/Thays-admin/internal/reconciliation"

// Emitter appends domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Summary counts the outcomes of one batch.
type Summary struct {
	Received  int `json:"received"`
	Applied   int `json:"applied"`
	Noop      int `json:"noop"`
	NotFound  int `json:"not_found"`
	Ignored   int `json:"ignored"`
	Duplicate int `json:"duplicate"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeApplied:
		s.Applied++
	case OutcomeNoop:
		s.Noop++
	case OutcomeNotFound:
		s.NotFound++
	case OutcomeIgnored:
		s.Ignored++
	case OutcomeDuplicate:
		s.Duplicate++
	}
}

type ServiceParams struct {
	DB            db.TxRunner
	Ledger        ledger.Ledger
	Orders        orders.Repository
	Subscriptions subscriptions.Repository
	Outbox        Emitter
	Audit         audit.Sink
	Stock         stock.Checker
	Settings      settings.Provider
	Clock         scheduling.Clock
	Tasks         Dispatcher
	Metrics       *metrics.WebhookMetrics
	Tracer        trace.Tracer
	Logger        *logger.Logger
}

// Engine applies classified webhook events one at a time, in payload order.
type Engine struct {
	db       db.TxRunner
	ledger   ledger.Ledger
	orders   orders.Repository
	subs     subscriptions.Repository
	outbox   Emitter
	audit    audit.Sink
	stock    stock.Checker
	settings settings.Provider
	clock    scheduling.Clock
	tasks    Dispatcher
	metrics  *metrics.WebhookMetrics
	tracer   trace.Tracer
	logg     *logger.Logger
}

func NewEngine(params ServiceParams) (*Engine, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock checker required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = scheduling.LocationClock{}
	}
	tasks := params.Tasks
	if tasks == nil {
		tasks = InlineDispatcher{}
	}
	tracer := params.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		db:       params.DB,
		ledger:   params.Ledger,
		orders:   params.Orders,
		subs:     params.Subscriptions,
		outbox:   params.Outbox,
		audit:    params.Audit,
		stock:    params.Stock,
		settings: params.Settings,
		clock:    clock,
		tasks:    tasks,
		metrics:  params.Metrics,
		tracer:   tracer,
		logg:     params.Logger,
	}, nil
}

// HandleBatch classifies a raw provider payload and processes it. A
// classification failure is audited and returned before anything is applied.
func (e *Engine) HandleBatch(ctx context.Context, route Route, body []byte) (Summary, error) {
	if route.Classify == nil {
		return Summary{}, fmt.Errorf("route %s has no classifier", route.Name)
	}
	events, err := route.Classify(body)
	if err != nil {
		e.fail(ctx, route, err)
		return Summary{}, err
	}
	return e.Process(ctx, route, events)
}

// Process applies events sequentially. The first infrastructure error stops
// the batch; events committed before it stay applied and the provider's retry
// skips them through the ledger.
func (e *Engine) Process(ctx context.Context, route Route, events []Event) (Summary, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveBatch(route.Name, time.Since(start)) }()

	ctx = e.logg.WithField(ctx, "route", route.Name)
	cutoff := e.settings.CutoffTime(ctx)
	holidays := e.settings.Holidays(ctx)

	summary := Summary{Received: len(events)}
	for _, ev := range events {
		env := Env{Now: e.clock.Now(), Cutoff: cutoff, Holidays: holidays}
		outcome, err := e.processOne(ctx, route, ev, env)
		if err != nil {
			e.metrics.ObserveEvent(route.Name, string(ev.Kind()), "error")
			err = fmt.Errorf("event %s: %w", ev.Key(), err)
			e.fail(ctx, route, err)
			return summary, err
		}
		summary.add(outcome)
		e.metrics.ObserveEvent(route.Name, string(ev.Kind()), string(outcome))
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"received":  summary.Received,
		"applied":   summary.Applied,
		"duplicate": summary.Duplicate,
		"not_found": summary.NotFound,
	})
	e.logg.Info(logCtx, "webhook batch processed")
	return summary, nil
}

func (e *Engine) processOne(ctx context.Context, route Route, ev Event, env Env) (outcome Outcome, err error) {
	ctx = e.logg.WithEvent(ctx, string(ev.Kind()), ev.Key())
	ctx = e.logg.WithField(ctx, "provider", string(ev.Provider()))
	ctx, span := e.tracer.Start(ctx, "reconciliation.process_event", trace.WithAttributes(
		attribute.String("webhook.route", route.Name),
		attribute.String("webhook.event_kind", string(ev.Kind())),
		attribute.String("webhook.event_key", ev.Key()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
		}
		span.End()
	}()

	processed, err := e.ledger.IsProcessed(ctx, ev.Key(), ev.Provider())
	if err != nil {
		return "", fmt.Errorf("check ledger: %w", err)
	}
	if processed {
		e.logg.Debug(ctx, "webhook event already processed")
		return OutcomeDuplicate, nil
	}

	target, err := e.lookup(ctx, route, ev)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", ev.Reference(), err)
	}

	decision := Decide(route, ev, target, env)
	switch decision.Outcome {
	case OutcomeIgnored:
		e.logg.Debug(ctx, "webhook event status has no transition")
		return OutcomeIgnored, nil
	case OutcomeNotFound:
		e.logg.Warn(ctx, "webhook event matched no order or subscription")
		e.audit.Record(ctx, decision.Audit)
		return OutcomeNotFound, nil
	}

	if err := e.apply(ctx, route, ev, target, decision, env); err != nil {
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			e.logg.Info(ctx, "webhook event claimed concurrently; rolled back")
			return OutcomeDuplicate, nil
		}
		return "", err
	}

	e.afterCommit(ctx, target, decision)
	e.logg.Info(e.logg.WithField(ctx, "outcome", string(decision.Outcome)), "webhook event reconciled")
	return decision.Outcome, nil
}

func (e *Engine) lookup(ctx context.Context, route Route, ev Event) (Target, error) {
	ref := ev.Reference()
	if ref == "" {
		return Target{}, nil
	}
	switch ev.(type) {
	case InstantPayment:
		if route.MatchOrders {
			order, err := e.orders.FindByPixTxID(ctx, ref)
			if err != nil || order != nil {
				return Target{Order: order}, err
			}
		}
		sub, err := e.subs.FindByProviderReference(ctx, ref)
		return Target{Subscription: sub}, err
	case RecurrenceUpdate, ChargeUpdate:
		sub, err := e.subs.FindByProviderReference(ctx, ref)
		return Target{Subscription: sub}, err
	case CardPayment:
		order, err := e.orders.FindByStripeIntent(ctx, ref)
		return Target{Order: order}, err
	}
	return Target{}, nil
}

// apply claims the idempotency key and writes the transition in one
// transaction. A concurrent claim of the same key surfaces as
// ledger.ErrAlreadyProcessed and nothing is kept.
func (e *Engine) apply(ctx context.Context, route Route, ev Event, target Target, d Decision, env Env) error {
	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.ledger.WithTx(tx).Claim(ctx, ev.Key(), ev.Provider()); err != nil {
			return err
		}

		if len(d.OrderUpdates) > 0 {
			if err := e.orders.WithTx(tx).Update(ctx, target.Order.ID, d.OrderUpdates); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
		}

		var removed int64
		if sub := target.Subscription; sub != nil {
			subs := e.subs.WithTx(tx)
			if len(d.SubscriptionUpdates) > 0 {
				if err := subs.Update(ctx, sub.ID, d.SubscriptionUpdates); err != nil {
					return fmt.Errorf("update subscription: %w", err)
				}
			}
			if d.ClearFutureDeliveries {
				n, err := subs.DeleteFutureWaitingDeliveries(ctx, sub.ID, scheduling.CivilDate(env.Now))
				if err != nil {
					return fmt.Errorf("delete future deliveries: %w", err)
				}
				removed = n
			}
			if len(d.DeliveryDates) > 0 {
				if err := subs.InsertDeliveries(ctx, deliveryRows(sub.ID, sub.TotalAmount, d.DeliveryDates)); err != nil {
					return fmt.Errorf("insert deliveries: %w", err)
				}
			}
		}

		for _, event := range d.Events {
			event.Source = route.Name
			event.OccurredAt = env.Now.UTC()
			if paused, ok := event.Data.(*payloads.SubscriptionPausedEvent); ok {
				paused.DeliveriesRemoved = removed
			}
			if err := e.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit %s: %w", event.EventType, err)
			}
		}
		return nil
	})
}

// afterCommit writes the audit entry. Transitions that materialize a cycle
// first run the advisory stock check on the dispatcher; a shortfall is
// audited separately and never undoes the transition.
func (e *Engine) afterCommit(ctx context.Context, target Target, d Decision) {
	if d.StockAuditTag == "" || target.Subscription == nil {
		e.audit.Record(ctx, d.Audit)
		return
	}

	subID := target.Subscription.ID
	entry := d.Audit
	entry.Payload = withFields(entry.Payload, nil)
	e.tasks.Go(ctx, "stock_check", func(ctx context.Context) {
		entry.Payload["stockOk"] = e.checkStock(ctx, subID, d.StockAuditTag, entry.Payload)
		e.audit.Record(ctx, entry)
	})
}

func (e *Engine) checkStock(ctx context.Context, subID uuid.UUID, tag string, details map[string]any) bool {
	report, err := e.stock.Check(ctx, subID)
	if err != nil {
		e.logg.Error(ctx, "stock check failed", err)
		return false
	}
	if report.OK {
		return true
	}
	payload := map[string]any{"issues": report.Shortfalls}
	if txid, ok := details["txid"]; ok {
		payload["txid"] = txid
	}
	if idRec, ok := details["idRec"]; ok {
		payload["idRec"] = idRec
	}
	e.audit.Record(ctx, audit.Entry{
		EventType:  tag,
		EntityType: audit.EntityStock,
		EntityID:   &subID,
		Payload:    payload,
		Status:     enums.AuditError,
	})
	return false
}

func (e *Engine) fail(ctx context.Context, route Route, err error) {
	e.logg.Error(ctx, "webhook batch failed", err)
	e.audit.Record(ctx, audit.Entry{
		EventType:  route.FailureTag,
		EntityType: audit.EntityWebhook,
		Payload:    map[string]any{"error": err.Error()},
		Status:     enums.AuditError,
	})
}
