package automation

import (
	"net/http"
	"strings"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/internal/deliveries"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

// DeliveriesForDate lists what goes out on ?date=YYYY-MM-DD, today by default.
func DeliveriesForDate(svc deliveries.Service, clock scheduling.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || clock == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		date := scheduling.Today(clock)
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			parsed, err := scheduling.ParseDate(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD").WithDetails(map[string]any{"field": "date"}))
				return
			}
			date = parsed
		}

		feed, err := svc.DayFeed(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed)
	}
}
