package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

const (
	exportTimeout = 10 * time.Second
	flushInterval = 5 * time.Second
)

// TracerProvider is the process-wide span pipeline.
type TracerProvider struct {
	sdk    *sdktrace.TracerProvider
	logger *zap.Logger
}

// NewTracerProvider exports spans to cfg.OTLPEndpoint over OTLP/HTTP in batches
// and installs the provider and the W3C propagators as otel globals.
func NewTracerProvider(ctx context.Context, cfg config.TelemetrySettings, log *zap.Logger) (*TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint),
		otlptracehttp.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	return newTracerProvider(ctx, cfg, log, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(flushInterval)))
}

func newTracerProvider(ctx context.Context, cfg config.TelemetrySettings, log *zap.Logger, pipeline ...sdktrace.TracerProviderOption) (*TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))
	sdk := sdktrace.NewTracerProvider(append(pipeline, sdktrace.WithResource(res), sdktrace.WithSampler(sampler))...)

	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(Propagators())

	log.Info("tracing enabled",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.Float64("sampling_rate", cfg.SamplingRate),
	)
	return &TracerProvider{sdk: sdk, logger: log}, nil
}

// Propagators returns the trace-context and baggage propagators installed by NewTracerProvider.
func Propagators() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// Provider exposes the provider for instrumentation that takes one explicitly.
func (tp *TracerProvider) Provider() trace.TracerProvider {
	return tp.sdk
}

// Shutdown flushes buffered spans, giving up after the export timeout.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	if err := tp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	tp.logger.Info("tracing stopped")
	return nil
}
