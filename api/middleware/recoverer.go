package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/johsantss21/Thays-admin/api/responses"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

type errorWriter func(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error)

// Recoverer turns a handler panic into a 500 error envelope.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return recoverWith(logg, responses.WriteError)
}

// WebhookRecoverer answers a panic with the provider contract (400 {error})
// so the provider redelivers the batch.
func WebhookRecoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return recoverWith(logg, responses.WriteWebhookError)
}

func recoverWith(logg *logger.Logger, write errorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
					logg.Error(ctx, "panic.recovered", err)
				}
				write(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
