package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/storefront/backend/internal/application/billing"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/billing"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := logs.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()
	log = telemetry.BridgeLogger(log, cfg.Telemetry.ServiceName, logs, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meters.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPass,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Telemetry.SpanProfilesEnabled {
		tracer.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver() == "sqlite" {
		// PostgreSQL is migrated by cmd/migrate.
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if db.Driver() == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to enable database tracing", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}

	idempotency := newIdempotencyStore(ctx, cfg, log)
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	if p, ok := idempotency.(handler.Pinger); ok {
		checks["redis"] = p
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewOrderActivityLogger(log))
	orderMetrics, err := event.NewOrderMetrics(meters.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to register order metrics", zap.Error(err))
	}
	eventBus.Subscribe(orderMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	placement := orderapp.NewPlacementService(orderapp.PlacementServiceConfig{
		Repo:           orderRepo,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Events:         eventBus,
		Logger:         log,
	})

	currency, err := valueobject.ParseCurrency(cfg.Stripe.Currency)
	if err != nil {
		log.Fatal("Invalid payment currency", zap.Error(err))
	}
	intents := billingapp.NewIntentService(billingapp.IntentServiceConfig{
		Gateway:  newIntentGateway(cfg, log),
		Orders:   orderRepo,
		Currency: currency,
		Logger:   log,
	})

	webhookCfg := billingapp.StripeWebhookServiceConfig{
		Orders:  placement,
		Seen:    idempotency,
		SeenTTL: 72 * time.Hour,
		Logger:  log,
	}
	if cfg.Stripe.WebhookSecret != "" {
		verifier, err := billing.NewStripeEventVerifier(cfg.Stripe.WebhookSecret)
		if err != nil {
			log.Fatal("Invalid Stripe webhook configuration", zap.Error(err))
		}
		webhookCfg.Verifier = verifier
	} else {
		log.Warn("Stripe webhook secret not set, webhook endpoint will answer 503")
	}
	webhooks := billingapp.NewStripeWebhookService(webhookCfg)

	routerCfg := router.Config{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.Enabled,
		Logger:      log,
	}
	if meters.IsEnabled() {
		routerCfg.Meter = meters.Meter("http.server")
	}
	if jwtService := auth.NewJWTService(cfg.JWT); jwtService.Enabled() {
		routerCfg.Tokens = jwtService
	} else {
		log.Warn("JWT secret not set, all orders are placed as guest orders")
	}
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		routerCfg.Limiter = limiter
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(routerCfg, router.Handlers{
		Health:        handler.NewHealthHandler(cfg.App.Name, version, checks),
		Orders:        handler.NewOrderHandler(placement),
		PaymentIntent: handler.NewPaymentIntentHandler(intents),
		StripeWebhook: handler.NewStripeWebhookHandler(webhooks),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

type closableStore interface {
	shared.IdempotencyStore
	Close() error
}

// newIdempotencyStore picks the placement idempotency backend. Redis falls
// back to memory unless idempotency.require_redis is set.
func newIdempotencyStore(ctx context.Context, cfg *config.Config, log *zap.Logger) closableStore {
	if cfg.Idempotency.Backend != "redis" {
		log.Info("Using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore()
	}

	factory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Idempotency.RequireRedis),
	)
	store, err := factory.CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	closable, ok := store.(closableStore)
	if !ok {
		log.Fatal("Idempotency store cannot be closed")
	}
	return closable
}

// newIntentGateway returns the Stripe adapter, or nil when no secret key is
// configured so the payment intent endpoint answers 503.
func newIntentGateway(cfg *config.Config, log *zap.Logger) payment.IntentGateway {
	if cfg.Stripe.SecretKey == "" {
		log.Warn("Stripe secret key not set, payment intents are disabled")
		return nil
	}
	stripeCfg := &billing.StripeConfig{
		SecretKey:       cfg.Stripe.SecretKey,
		WebhookSecret:   cfg.Stripe.WebhookSecret,
		DefaultCurrency: cfg.Stripe.Currency,
	}
	adapter, err := billing.NewStripeAdapter(stripeCfg, log)
	if err != nil {
		log.Fatal("Invalid Stripe configuration", zap.Error(err))
	}
	if stripeCfg.IsTestMode() {
		log.Info("Stripe running in test mode")
	}
	return adapter
}
