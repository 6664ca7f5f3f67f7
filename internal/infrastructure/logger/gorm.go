package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold marks statements worth a warning
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes gorm's statement log through zap. Statements carry the
// request logger from ctx so SQL lines share the request id.
type GormLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a gorm logger; a zero slowThreshold uses the default
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}
	return &GormLogger{base: base.Named("gorm"), level: level, slowThreshold: slowThreshold}
}

// GormLevel maps the configured application level to gorm's coarser scale.
// Only debug logging prints every statement.
func GormLevel(level string) gormlogger.LogLevel {
	switch ParseLevel(level) {
	case zap.DebugLevel:
		return gormlogger.Info
	case zap.InfoLevel, zap.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.from(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.from(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.from(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement. Record-not-found is never an error here;
// repositories translate it into domain errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	log := l.from(ctx)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		log.Error("query failed", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("slow query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		log.Debug("query", fields...)
	}
}

func (l *GormLogger) from(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.base
	}
	if rid := RequestID(ctx); rid != "" {
		return l.base.With(zap.String("request_id", rid))
	}
	return l.base
}
