package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans; development only
	SlowQueryThresh time.Duration // queries slower than this are flagged on their span and logged
	DBName          string
}

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin plus callbacks that flag slow
// queries. It is a no-op when tracing is disabled.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "zone_reporting"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { afterQuery(tx, cfg.SlowQueryThresh, logger) }

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("zone_timing:before_create", before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("zone_timing:before_query", before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("zone_timing:before_update", before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("zone_timing:before_delete", before); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("zone_timing:before_row", before); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("zone_timing:before_raw", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("zone_timing:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("zone_timing:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("zone_timing:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("zone_timing:after_delete", after); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("zone_timing:after_row", after); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("zone_timing:after_raw", after); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func afterQuery(tx *gorm.DB, threshold time.Duration, logger *zap.Logger) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	span := trace.SpanFromContext(ctx)

	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			RecordError(span, tx.Error)
		}
	}
	if elapsed <= threshold {
		return
	}
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
	}
	logger.Warn("Slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", threshold),
		zap.String("trace_id", TraceID(ctx)))
}
