package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig enables shipping zap entries to the collector as OTLP logs.
type LogsConfig struct {
	Collector
	Enabled bool
}

// LoggerProvider batches log records to the collector.
type LoggerProvider struct {
	sdk    *sdklog.LoggerProvider
	logger *zap.Logger
}

func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP log exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	lp.sdk = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.sdk)
	logger.Info("Log export enabled", zap.String("collector_endpoint", cfg.Endpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool { return lp.sdk != nil }

func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	if lp.sdk == nil {
		return nil
	}
	return lp.sdk.ForceFlush(ctx)
}

// Shutdown drains the batch processor. Log it through the base logger only,
// the bridge is going away.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := lp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown logger provider: %w", err)
	}
	return nil
}

// NewZapOTELCore forwards entries at or above level to lp. It is a no-op
// core when lp is nil or disabled.
func NewZapOTELCore(serviceName string, lp *LoggerProvider, level zapcore.Level) zapcore.Core {
	if lp == nil || !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(serviceName, otelzap.WithLoggerProvider(lp.sdk))
	// otelzap's core accepts every level
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		lp.logger.Warn("Log export level not applied", zap.Stringer("level", level), zap.Error(err))
		return core
	}
	return filtered
}

// BridgeLogger returns base with otelCore teed in.
func BridgeLogger(base *zap.Logger, otelCore zapcore.Core) *zap.Logger {
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	}))
}
