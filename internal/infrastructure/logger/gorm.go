package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the GormConfig.SlowThreshold used when none is set
const DefaultSlowQuery = 200 * time.Millisecond

// GormConfig controls what the GORM adapter logs
type GormConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks statements slower than this as Warn; negative disables it
	SlowThreshold time.Duration
	// LogNotFound reports gorm.ErrRecordNotFound as an error. Lookups miss
	// routinely during sync so it is off by default.
	LogNotFound bool
}

// GormLogger writes GORM statements to zap, tagged with the request, tenant
// and store carried by the statement's context.
type GormLogger struct {
	log *zap.Logger
	cfg GormConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

func NewGormLogger(log *zap.Logger, cfg GormConfig) *GormLogger {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = DefaultSlowQuery
	}
	return &GormLogger{log: log.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cfg := l.cfg
	cfg.Level = level
	return &GormLogger{log: l.log, cfg: cfg}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, data []any) {
	if l.cfg.Level < level {
		return
	}
	text := fmt.Sprintf(msg, data...)
	fields := scopeFields(ctx)
	switch level {
	case gormlogger.Error:
		l.log.Error(text, fields...)
	case gormlogger.Warn:
		l.log.Warn(text, fields...)
	default:
		l.log.Info(text, fields...)
	}
}

// Trace logs failed statements at Error, slow ones at Warn and, with the
// Info level, everything else at Debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && (l.cfg.LogNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold

	var emit func(string, ...zap.Field)
	msg := "SQL Query"
	switch {
	case failed && l.cfg.Level >= gormlogger.Error:
		emit, msg = l.log.Error, "SQL Error"
	case err == nil && slow && l.cfg.Level >= gormlogger.Warn:
		emit, msg = l.log.Warn, "Slow SQL"
	case err == nil && l.cfg.Level >= gormlogger.Info:
		emit = l.log.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := append(scopeFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	}
	emit(msg, fields...)
}

func scopeFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	for _, key := range []contextKey{requestIDKey, tenantIDKey, storeIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	return fields
}

// GormLevel maps the service log level to GORM's: debug and info log every
// statement, error logs failures only, anything else logs slow statements.
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
