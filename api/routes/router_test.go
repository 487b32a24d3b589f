package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johsantss21/Thays-admin/internal/deliveries"
	"github.com/johsantss21/Thays-admin/internal/reconciliation"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/stock"
	"github.com/johsantss21/Thays-admin/pkg/config"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	"github.com/johsantss21/Thays-admin/pkg/metrics"
)

const validToken = "hvt_valid"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubTokens struct{}

func (stubTokens) Authenticate(_ context.Context, raw, _ string) (*models.APIToken, error) {
	if raw != validToken {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return &models.APIToken{ID: uuid.New(), Name: "n8n"}, nil
}

func (stubTokens) Issue(context.Context, string, *time.Time) (string, *models.APIToken, error) {
	return "", nil, nil
}

type stubEngine struct{ batches int }

func (s *stubEngine) HandleBatch(context.Context, reconciliation.Route, []byte) (reconciliation.Summary, error) {
	s.batches++
	return reconciliation.Summary{}, nil
}

func (s *stubEngine) Process(context.Context, reconciliation.Route, []reconciliation.Event) (reconciliation.Summary, error) {
	return reconciliation.Summary{}, nil
}

type stubSettings struct{}

func (stubSettings) CutoffTime(context.Context) scheduling.TimeOfDay { return scheduling.DefaultCutoff }
func (stubSettings) Holidays(context.Context) scheduling.HolidaySet {
	return scheduling.NewHolidaySet()
}
func (stubSettings) OperatingDays(context.Context) []time.Weekday { return nil }

type stubStock struct{}

func (stubStock) Check(context.Context, uuid.UUID) (stock.Report, error) {
	return stock.Report{OK: true}, nil
}

type stubFeed struct{}

func (stubFeed) DayFeed(_ context.Context, date time.Time) (deliveries.Feed, error) {
	return deliveries.Feed{Date: date.Format(scheduling.DateLayout)}, nil
}

func newTestRouter(t *testing.T, engine *stubEngine) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewWebhookMetrics(reg)
	m.ObserveEvent("pix", "instant", "applied")

	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"*"}},
		Webhooks: config.WebhooksConfig{MaxBodyBytes: 1 << 16},
	}
	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logger.Nop(),
		DB:         stubPinger{},
		Redis:      stubPinger{},
		Gatherer:   reg,
		Engine:     engine,
		Tokens:     stubTokens{},
		Settings:   stubSettings{},
		Clock:      scheduling.FixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)),
		Stock:      stubStock{},
		Deliveries: stubFeed{},
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, &stubEngine{})

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t, &stubEngine{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webhook_events_total")
}

func TestWebhookRoutesNeedNoToken(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(t, engine)

	for _, path := range []string{"/api/v1/webhooks/pix", "/api/v1/webhooks/pix-automatic"} {
		rec := serve(router, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, 2, engine.batches)
}

func TestStripeRouteAbsentWithoutVerifier(t *testing.T) {
	router := newTestRouter(t, &stubEngine{})

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAutomationRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubEngine{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/delivery-slot", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	paths := []string{
		"/api/v1/delivery-slot",
		"/api/v1/subscriptions/" + uuid.NewString() + "/stock",
		"/api/v1/deliveries?date=2026-10-20",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-API-Key", validToken)
		assert.Equal(t, http.StatusOK, serve(router, req).Code, path)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/preview", strings.NewReader(`{"frequency":"semanal","delivery_weekday":"quarta"}`))
	req.Header.Set("Authorization", "Bearer "+validToken)
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}
