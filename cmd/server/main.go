package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/application/validation"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/auth"
	"github.com/billpay/backend/internal/infrastructure/cache"
	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/billpay/backend/internal/infrastructure/event"
	"github.com/billpay/backend/internal/infrastructure/logger"
	"github.com/billpay/backend/internal/infrastructure/persistence"
	"github.com/billpay/backend/internal/infrastructure/scheduler"
	"github.com/billpay/backend/internal/infrastructure/storage"
	"github.com/billpay/backend/internal/infrastructure/telemetry"
	"github.com/billpay/backend/internal/interfaces/http/handler"
	"github.com/billpay/backend/internal/interfaces/http/middleware"
	"github.com/billpay/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "github.com/billpay/backend/docs"
)

//	@title			BillPay Payables API
//	@version		1.0
//	@description	Multi-tenant bill payment scheduling: payees, bills, payments and receipts.

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@securityDefinitions.apikey	TenantHeader
//	@in							header
//	@name						X-Tenant-ID

const version = "1.0.0"

// stopper is a background component stopped during shutdown
type stopper struct {
	name string
	stop func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billpay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	baseLog, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	log := otelProviders.Logger
	defer func() { _ = log.Sync() }()

	log.Info("Starting BillPay backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// stoppers run in reverse order of registration
	var stoppers []stopper
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		var errs error
		for i := len(stoppers) - 1; i >= 0; i-- {
			if err := stoppers[i].stop(shutdownCtx); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", stoppers[i].name, err))
			}
		}
		if errs != nil {
			log.Error("Errors during shutdown", zap.Errors("errors", multierr.Errors(errs)))
		}
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			baseLog.Warn("Telemetry flush failed", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, otelProviders, log)
	if err != nil {
		return fmt.Errorf("initialize profiler: %w", err)
	}
	stoppers = append(stoppers, stopper{"profiler", func(context.Context) error { return profiler.Stop() }})

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithGormLogger(gormLog), persistence.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	stoppers = append(stoppers, stopper{"database", func(context.Context) error { return db.Close() }})
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentDB(db.DB, cfg.Telemetry.SlowQueryThreshold, log); err != nil {
			return fmt.Errorf("instrument database: %w", err)
		}
	}
	log.Info("Database connected")

	// Redis carries notifications and idempotency keys when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, notifications fall back to the log", zap.Error(err))
			redisClient = nil
		} else {
			stoppers = append(stoppers, stopper{"redis", func(context.Context) error { return redisClient.Close() }})
		}
	}

	// Events: outbox written in the unit of work, delivered to the in-process bus
	serializer := event.NewPayablesSerializer()
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	uow := persistence.NewUnitOfWorkFactory(db.DB, event.NewOutboxPublisher(serializer))
	bus := event.NewInMemoryEventBus(log)

	notifyHandler := newNotificationHandler(cfg, redisClient, log)
	bus.Subscribe(notifyHandler)

	payablesMetrics, err := telemetry.NewPayablesMetrics(otelProviders.Meter("billpay/payables"))
	if err != nil {
		return fmt.Errorf("register payables metrics: %w", err)
	}
	bus.Subscribe(payablesMetrics)

	if cfg.Event.ProcessorEnabled {
		outboxCfg := event.DefaultOutboxProcessorConfig()
		outboxCfg.BatchSize = cfg.Event.BatchSize
		outboxCfg.PollInterval = cfg.Event.PollInterval
		outboxCfg.Retry.MaxAttempts = cfg.Event.MaxAttempts
		outboxCfg.Retention = cfg.Event.Retention
		outboxCfg.ClaimTimeout = cfg.Event.ClaimTimeout
		processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, outboxCfg, log)
		if err := processor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
		stoppers = append(stoppers, stopper{"outbox processor", processor.Stop})
	}

	// Application services
	v := validation.New()
	paymentService := payablesapp.NewPaymentService(uow, v, nil, log)
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			return fmt.Errorf("initialize receipt storage: %w", err)
		}
		if cfg.Storage.CreateBucket {
			if err := s3.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("prepare receipt bucket: %w", err)
			}
		}
		paymentService = payablesapp.NewPaymentService(uow, v, s3, log)
		if cfg.Storage.PresignExpiration > 0 {
			paymentService.SetReceiptConfig(payablesapp.ReceiptConfig{
				UploadURLExpiry:   cfg.Storage.PresignExpiration,
				DownloadURLExpiry: cfg.Storage.PresignExpiration,
			})
		}
	}

	overdueService := payablesapp.NewOverdueService(uow, persistence.NewOverdueTenantFinder(db.DB), log)
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewOverdueScheduler(cfg.Scheduler, overdueService, log)
		if err != nil {
			return fmt.Errorf("create overdue scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start overdue scheduler: %w", err)
		}
		stoppers = append(stoppers, stopper{"overdue scheduler", sched.Stop})
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		db.PoolCollector(cfg.Database.DBName),
	)
	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	opts := router.EngineOptions{
		Logger:   log,
		HTTP:     cfg.HTTP,
		Swagger:  cfg.Swagger.Enabled,
		Metrics:  httpMetrics,
		Gatherer: registry,
		Payables: router.PayablesHandlers{
			Payees:   handler.NewPayeeHandler(payablesapp.NewPayeeService(uow, v)),
			Bills:    handler.NewBillHandler(payablesapp.NewBillService(uow, v)),
			Payments: handler.NewPaymentHandler(paymentService),
		},
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.Pinger{
			"database": handler.PingFunc(db.Ping),
		}),
		Outbox: handler.NewOutboxHandler(outboxRepo, statsOf(notifyHandler)),
	}
	if otelProviders.TracingEnabled() {
		opts.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.JWT.Enabled {
		opts.Tokens = auth.NewJWTService(cfg.JWT)
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		stoppers = append(stoppers, stopper{"rate limiter", func(context.Context) error { limiter.Stop(); return nil }})
		opts.RateLimiter = limiter
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        router.NewEngine(opts),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

// newNotificationHandler wraps the notifier in an idempotent handler so
// redelivered outbox entries notify once
func newNotificationHandler(cfg *config.Config, client *redis.Client, log *zap.Logger) *event.IdempotentHandler {
	var notifier event.Notifier = event.NewLogNotifier(log)
	var store shared.IdempotencyStore
	if client != nil {
		notifier = event.NewRedisNotifier(client, cfg.Redis.EventChannel)
		store = cache.NewIdempotencyStore(client, cfg.Redis.IdempotencyPrefix)
	} else {
		log.Info("Idempotency keys kept in memory")
		store = cache.NewIdempotencyStore(nil, "")
	}

	idem := shared.DefaultIdempotencyConfig()
	if cfg.Redis.IdempotencyTTL > 0 {
		idem.TTL = cfg.Redis.IdempotencyTTL
	}
	return event.NewIdempotentHandler(event.NewNotificationHandler(notifier, log), store, idem, log)
}

func statsOf(h *event.IdempotentHandler) handler.DeliveryStats {
	if h == nil {
		return nil
	}
	return h
}
