// Package telemetry wires OpenTelemetry tracing and Prometheus metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds tracing configuration
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Environment       string
	Insecure          bool
}

// TracerProvider wraps the OpenTelemetry TracerProvider with lifecycle management
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	config   Config
}

// NewTracerProvider creates a provider exporting over OTLP gRPC and installs it
// globally. When tracing is disabled it returns a provider that only hands out
// the global no-op tracer.
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op tracer provider")
		return tp, nil
	}

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg)),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	)
	install(tp.provider)

	logger.Info("OpenTelemetry TracerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName))
	return tp, nil
}

func newResource(cfg Config) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	return resource.NewSchemaless(attrs...)
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func install(provider trace.TracerProvider) {
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Shutdown flushes pending spans and stops the exporter
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tp.provider.Shutdown(shutdownCtx); err != nil {
		tp.logger.Error("Error shutting down tracer provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	tp.logger.Info("OpenTelemetry TracerProvider shutdown complete")
	return nil
}

// Tracer returns a named tracer
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

// IsEnabled reports whether spans are exported
func (tp *TracerProvider) IsEnabled() bool {
	return tp.provider != nil
}
