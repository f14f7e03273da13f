package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is an open PostgreSQL pool
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

type openOptions struct {
	gormLogger gormlogger.Interface
	log        *zap.Logger
	dialector  gorm.Dialector
}

// OpenOption customizes Open
type OpenOption func(*openOptions)

// WithGormLogger routes GORM's SQL logging to l. The default is silent.
func WithGormLogger(l gormlogger.Interface) OpenOption {
	return func(o *openOptions) { o.gormLogger = l }
}

// WithLogger sets the logger used while waiting for the database
func WithLogger(l *zap.Logger) OpenOption {
	return func(o *openOptions) { o.log = l }
}

// withDialector replaces the postgres dialector, for tests
func withDialector(d gorm.Dialector) OpenOption {
	return func(o *openOptions) { o.dialector = d }
}

// Open connects to PostgreSQL and sizes the pool from cfg. The first ping
// is retried with exponential backoff for up to cfg.ConnectTimeout.
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...OpenOption) (*Database, error) {
	o := openOptions{
		gormLogger: gormlogger.Default.LogMode(gormlogger.Silent),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialector == nil {
		o.dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(o.dialector, &gorm.Config{
		Logger:                 o.gormLogger,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true, // waitReady pings with retry
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &Database{DB: db, sql: pool}
	if err := d.waitReady(ctx, cfg.ConnectTimeout, o.log); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) waitReady(ctx context.Context, timeout time.Duration, log *zap.Logger) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, d.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Database not ready",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.sql.Close()
}

// PoolCollector exports connection pool statistics as go_sql_* metrics
// labelled with db_name
func (d *Database) PoolCollector(name string) prometheus.Collector {
	return collectors.NewDBStatsCollector(d.sql, name)
}
