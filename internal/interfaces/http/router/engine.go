package router

import (
	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/billpay/backend/internal/infrastructure/logger"
	"github.com/billpay/backend/internal/interfaces/http/handler"
	"github.com/billpay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// EngineOptions holds everything the HTTP engine is assembled from
type EngineOptions struct {
	Logger  *zap.Logger
	HTTP    config.HTTPConfig
	Swagger bool

	// ServiceName enables otelgin tracing when set
	ServiceName string
	// Tokens enables bearer authentication on the API when set
	Tokens middleware.TokenValidator
	// RateLimiter is applied to every request when set
	RateLimiter *middleware.RateLimiter
	// Metrics and Gatherer enable request metrics and the /metrics endpoint
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer

	Payables PayablesHandlers
	System   *handler.SystemHandler
	Outbox   *handler.OutboxHandler
}

// NewEngine builds the gin engine with the middleware chain in order:
// recovery, request id, request logging, CORS, tracing, metrics, body limit
// and rate limiting. Authentication and tenant resolution apply to /api only.
func NewEngine(opts EngineOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(corsConfig(opts.HTTP)))
	if opts.ServiceName != "" {
		engine.Use(middleware.Tracing(opts.ServiceName))
	}
	if opts.Metrics != nil {
		engine.Use(opts.Metrics.Middleware())
	}
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	if opts.RateLimiter != nil {
		engine.Use(middleware.RateLimit(opts.RateLimiter))
	}

	if opts.System != nil {
		engine.GET("/health", opts.System.Health)
		engine.NoRoute(opts.System.NotFound)
	}
	if opts.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(middleware.MetricsHandler(opts.Gatherer)))
	}
	if opts.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var auth []gin.HandlerFunc
	if opts.Tokens != nil {
		auth = append(auth, middleware.JWTAuth(opts.Tokens))
	}
	api := newGroup("/api/v1", auth...)
	api.children = append(api.children, payablesRoutes(opts.Payables))
	if opts.System != nil {
		api.children = append(api.children, systemRoutes(opts.System, opts.Outbox))
	}
	api.mount(engine)

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
