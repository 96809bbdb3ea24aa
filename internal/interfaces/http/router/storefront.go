package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Handlers are the endpoints served by the storefront API
type Handlers struct {
	Health        *handler.HealthHandler
	Orders        *handler.OrderHandler
	PaymentIntent *handler.PaymentIntentHandler
	StripeWebhook *handler.StripeWebhookHandler
}

// Config holds everything New needs to build the engine
type Config struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	// Tokens validates bearer tokens. Nil disables authenticated routes
	// and places every order as a guest.
	Tokens middleware.TokenValidator
	// Limiter throttles order placement and payment intents. Nil disables it.
	Limiter *middleware.RateLimiter
	// Meter records HTTP server metrics. Nil disables them.
	Meter  metric.Meter
	Logger *zap.Logger
}

// New builds the gin engine with the middleware stack and all storefront routes.
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before logging and tracing
	// read it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Tracing,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if h.Orders != nil {
		r.Register(orderRoutes(cfg, h.Orders, log))
		if cfg.Tokens != nil {
			admin := NewDomainGroup("admin", "/admin")
			admin.Use(middleware.RequireAuth(cfg.Tokens, log), middleware.RequireAdmin())
			admin.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
			r.Register(admin)
		}
	}
	if h.PaymentIntent != nil {
		intents := NewDomainGroup("payment-intents", "/payment-intents")
		intents.POST("", throttled(cfg.Limiter, h.PaymentIntent.CreatePaymentIntent)...)
		r.Register(intents)
	}
	if h.StripeWebhook != nil {
		webhooks := NewDomainGroup("webhooks", "/webhooks")
		webhooks.POST("/stripe", h.StripeWebhook.HandleStripeWebhook)
		r.Register(webhooks)
	}
	r.Setup()

	return engine
}

func orderRoutes(cfg Config, orders *handler.OrderHandler, log *zap.Logger) *DomainGroup {
	g := NewDomainGroup("orders", "/orders")

	place := []gin.HandlerFunc{}
	if cfg.Tokens != nil {
		place = append(place, middleware.OptionalAuth(cfg.Tokens, log))
	}
	g.POST("", append(place, throttled(cfg.Limiter, orders.PlaceOrder)...)...)

	if cfg.Tokens == nil {
		return g
	}

	auth := middleware.RequireAuth(cfg.Tokens, log)
	g.GET("/mine", auth, orders.ListMyOrders)
	g.GET("/:id", auth, orders.GetOrder)
	return g
}

func throttled(limiter *middleware.RateLimiter, h gin.HandlerFunc) []gin.HandlerFunc {
	if limiter == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{middleware.RateLimit(limiter), h}
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		c.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowMethods) > 0 {
		c.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		c.AllowHeaders = cfg.CORSAllowHeaders
	}
	return c
}
