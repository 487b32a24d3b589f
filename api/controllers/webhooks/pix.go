package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/internal/reconciliation"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

// Reconciler is the slice of the reconciliation engine the webhook routes use.
type Reconciler interface {
	HandleBatch(ctx context.Context, route reconciliation.Route, body []byte) (reconciliation.Summary, error)
	Process(ctx context.Context, route reconciliation.Route, events []reconciliation.Event) (reconciliation.Summary, error)
}

// PixWebhook receives instant PIX notifications ({pix: [...]}).
func PixWebhook(engine Reconciler, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return batchWebhook(engine, reconciliation.InstantRoute, maxBody, logg)
}

// PixAutomaticWebhook receives PIX Automático notifications (rec, cobr and
// fallback pix arrays).
func PixAutomaticWebhook(engine Reconciler, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return batchWebhook(engine, reconciliation.AutomaticRoute, maxBody, logg)
}

func batchWebhook(engine Reconciler, route reconciliation.Route, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "route", route.Name)
		}

		body, err := readBody(w, r, maxBody)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		if _, err := engine.HandleBatch(ctx, route, body); err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}
		responses.WriteWebhookAck(w)
	}
}

func readBody(w http.ResponseWriter, r *http.Request, maxBody int64) ([]byte, error) {
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	return body, nil
}
