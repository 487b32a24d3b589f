package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/johsantss21/Thays-admin/api"
	"github.com/johsantss21/Thays-admin/api/routes"
	"github.com/johsantss21/Thays-admin/internal/apitokens"
	"github.com/johsantss21/Thays-admin/internal/audit"
	"github.com/johsantss21/Thays-admin/internal/deliveries"
	"github.com/johsantss21/Thays-admin/internal/ledger"
	"github.com/johsantss21/Thays-admin/internal/orders"
	"github.com/johsantss21/Thays-admin/internal/reconciliation"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/settings"
	"github.com/johsantss21/Thays-admin/internal/stock"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	"github.com/johsantss21/Thays-admin/pkg/config"
	"github.com/johsantss21/Thays-admin/pkg/db"
	"github.com/johsantss21/Thays-admin/pkg/instance"
	"github.com/johsantss21/Thays-admin/pkg/logger"
	"github.com/johsantss21/Thays-admin/pkg/metrics"
	"github.com/johsantss21/Thays-admin/pkg/migrate"
	"github.com/johsantss21/Thays-admin/pkg/outbox"
	"github.com/johsantss21/Thays-admin/pkg/redis"
	pkgstripe "github.com/johsantss21/Thays-admin/pkg/stripe"
	"github.com/johsantss21/Thays-admin/pkg/tracing"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(ctx, "failed to load business timezone", err)
		os.Exit(1)
	}
	clock := scheduling.LocationClock{Location: loc}

	shutdownTracing, err := tracing.Setup(ctx, "thays-"+serviceName, cfg.Tracing)
	if err != nil {
		logg.Error(ctx, "failed to set up tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()

	settingsProvider, err := settings.NewService(settings.ServiceParams{
		Repo:        settings.NewRepository(conn),
		Logger:      logg,
		Cache:       redisClient,
		CacheTTL:    cfg.Settings.CacheTTL,
		IsCacheMiss: redis.IsNil,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settings provider", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ordersRepo := orders.NewRepository(conn)
	subsRepo := subscriptions.NewRepository(conn)
	stockChecker := stock.NewChecker(conn)
	tasks := reconciliation.NewAsyncDispatcher(cfg.Webhooks.AsyncTaskTimeout, logg)

	engine, err := reconciliation.NewEngine(reconciliation.ServiceParams{
		DB:            dbClient,
		Ledger:        ledger.New(conn),
		Orders:        ordersRepo,
		Subscriptions: subsRepo,
		Outbox:        outbox.NewService(outbox.NewRepository(conn), logg),
		Audit:         audit.NewRecorder(conn, logg),
		Stock:         stockChecker,
		Settings:      settingsProvider,
		Clock:         clock,
		Tasks:         tasks,
		Metrics:       metrics.NewWebhookMetrics(registry),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	tokenService, err := apitokens.NewService(apitokens.ServiceParams{
		Repo:   apitokens.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create api token service", err)
		os.Exit(1)
	}

	deliveryService, err := deliveries.NewService(deliveries.ServiceParams{
		Orders:        ordersRepo,
		Subscriptions: subsRepo,
		Settings:      settingsProvider,
	})
	if err != nil {
		logg.Error(ctx, "failed to create deliveries service", err)
		os.Exit(1)
	}

	params := routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Gatherer:   registry,
		Engine:     engine,
		Tokens:     tokenService,
		Settings:   settingsProvider,
		Clock:      clock,
		Stock:      stockChecker,
		Deliveries: deliveryService,
	}
	if cfg.Stripe.WebhookSecret != "" {
		verifier, err := pkgstripe.NewVerifier(cfg.Stripe)
		if err != nil {
			logg.Error(ctx, "failed to create stripe verifier", err)
			os.Exit(1)
		}
		params.Stripe = verifier
		logg.Info(logg.WithField(ctx, "stripe_env", verifier.Environment()), "stripe webhook enabled")
	} else {
		logg.Warn(ctx, "stripe webhook secret not set; /api/v1/webhooks/stripe disabled")
	}

	server := api.NewServer(cfg, otelhttp.NewHandler(routes.NewRouter(params), "thays-"+serviceName))

	port := os.Getenv("PORT")
	if port != "" {
		server.Addr = ":" + port
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"timezone": loc.String(),
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "api server shutdown error", err)
	}
	tasks.Wait()
	logg.Info(logCtx, "api server stopped")
}
