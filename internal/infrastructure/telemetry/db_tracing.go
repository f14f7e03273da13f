package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// InstrumentDB registers otelgorm and a callback that tags slow or failed
// statements on the active span. Slow statements are also logged.
func InstrumentDB(db *gorm.DB, slowThreshold time.Duration, logger *zap.Logger) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName("postgres"),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	cb := &slowQueryCallback{threshold: slowThreshold, logger: logger}
	cbs := db.Callback()
	for _, reg := range []struct {
		name string
		err  error
	}{
		{"create", cbs.Create().Before("gorm:create").Register("billpay:start_create", cb.before)},
		{"query", cbs.Query().Before("gorm:query").Register("billpay:start_query", cb.before)},
		{"update", cbs.Update().Before("gorm:update").Register("billpay:start_update", cb.before)},
		{"delete", cbs.Delete().Before("gorm:delete").Register("billpay:start_delete", cb.before)},
		{"raw", cbs.Raw().Before("gorm:raw").Register("billpay:start_raw", cb.before)},
		{"create", cbs.Create().After("gorm:create").Register("billpay:slow_create", cb.after)},
		{"query", cbs.Query().After("gorm:query").Register("billpay:slow_query", cb.after)},
		{"update", cbs.Update().After("gorm:update").Register("billpay:slow_update", cb.after)},
		{"delete", cbs.Delete().After("gorm:delete").Register("billpay:slow_delete", cb.after)},
		{"raw", cbs.Raw().After("gorm:raw").Register("billpay:slow_raw", cb.after)},
	} {
		if reg.err != nil {
			return reg.err
		}
	}

	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", slowThreshold))
	return nil
}

type slowQueryCallback struct {
	threshold time.Duration
	logger    *zap.Logger
}

func (c *slowQueryCallback) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (c *slowQueryCallback) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) && span.IsRecording() {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || c.threshold <= 0 {
		return
	}
	elapsed := time.Since(start)
	if elapsed < c.threshold {
		return
	}
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
	c.logger.Warn("slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("duration", elapsed),
		zap.Int64("rows_affected", db.Statement.RowsAffected),
	)
}
