package automation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/internal/stock"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

type stockResponse struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	stock.Report
}

// SubscriptionStock reports whether product stock covers a subscription's items.
func SubscriptionStock(checker stock.Checker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock checker unavailable"))
			return
		}

		subscriptionID, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription id"))
			return
		}

		report, err := checker.Check(r.Context(), subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock"))
			return
		}
		if report.Shortfalls == nil {
			report.Shortfalls = []stock.Shortfall{}
		}
		responses.WriteSuccess(w, stockResponse{SubscriptionID: subscriptionID, Report: report})
	}
}
