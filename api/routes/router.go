package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v79"

	"github.com/johsantss21/Thays-admin/api/controllers"
	"github.com/johsantss21/Thays-admin/api/controllers/automation"
	webhookcontrollers "github.com/johsantss21/Thays-admin/api/controllers/webhooks"
	"github.com/johsantss21/Thays-admin/api/middleware"
	"github.com/johsantss21/Thays-admin/internal/apitokens"
	"github.com/johsantss21/Thays-admin/internal/deliveries"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/settings"
	"github.com/johsantss21/Thays-admin/internal/stock"
	"github.com/johsantss21/Thays-admin/pkg/config"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

type stripeVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

// RouterParams carries everything the HTTP surface is wired to.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      controllers.Pinger
	Gatherer   prometheus.Gatherer
	Engine     webhookcontrollers.Reconciler
	Stripe     stripeVerifier
	Tokens     apitokens.Service
	Settings   settings.Provider
	Clock      scheduling.Clock
	Stock      stock.Checker
	Deliveries deliveries.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	maxBody := cfg.Webhooks.MaxBodyBytes

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Recoverer(logg))
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Check{Name: "db", Pinger: p.DB},
			controllers.Check{Name: "redis", Pinger: p.Redis},
		))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookRecoverer(logg))
		r.Post("/pix", webhookcontrollers.PixWebhook(p.Engine, maxBody, logg))
		r.Post("/pix-automatic", webhookcontrollers.PixAutomaticWebhook(p.Engine, maxBody, logg))
		if p.Stripe != nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(p.Engine, p.Stripe, maxBody, logg))
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Recoverer(logg))
		r.Use(middleware.CORS(cfg.App.CORSAllowedOrigins))
		r.Use(middleware.APIToken(p.Tokens, logg))

		r.Get("/delivery-slot", automation.DeliverySlot(p.Settings, p.Clock, logg))
		r.Post("/schedule/preview", automation.SchedulePreview(p.Clock, logg))
		r.Get("/subscriptions/{subscriptionId}/stock", automation.SubscriptionStock(p.Stock, logg))
		r.Get("/deliveries", automation.DeliveriesForDate(p.Deliveries, p.Clock, logg))
	})

	return r
}
