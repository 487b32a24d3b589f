package webhooks

import (
	"net/http"

	"github.com/stripe/stripe-go/v79"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/internal/reconciliation"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	pkgstripe "github.com/johsantss21/Thays-admin/pkg/stripe"
)

type stripeVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

// StripeWebhook handles card payment_intent events. Other event types are
// acknowledged without side effects.
func StripeWebhook(engine Reconciler, verifier stripeVerifier, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	route := reconciliation.CardRoute
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "route", route.Name)
		}

		if verifier == nil {
			responses.WriteWebhookError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe verifier unavailable"))
			return
		}

		payload, err := readBody(w, r, maxBody)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		event, err := verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			return
		}

		intent, ok, err := pkgstripe.DecodeIntentEvent(event)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, "decode event"))
			return
		}
		if !ok {
			if logg != nil {
				logg.Debug(logg.WithEvent(ctx, string(event.Type), event.ID), "stripe event ignored")
			}
			responses.WriteWebhookAck(w)
			return
		}

		card := reconciliation.CardPayment{
			EventID:         intent.EventID,
			Type:            intent.Type,
			PaymentIntentID: intent.PaymentIntentID,
			FailureMessage:  intent.FailureMessage,
		}
		if _, err := engine.Process(ctx, route, []reconciliation.Event{card}); err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}
		responses.WriteWebhookAck(w)
	}
}
