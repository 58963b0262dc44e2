package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_total", Help: "test"}, []string{"label"})
}

func TestRegister_ReusesExistingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := Register(reg, newCounter())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	first.WithLabelValues("a").Inc()

	second, err := Register(reg, newCounter())
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	second.WithLabelValues("a").Inc()

	if got := testutil.ToFloat64(first.WithLabelValues("a")); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRegister_NilRegistry(t *testing.T) {
	c := newCounter()
	got, err := Register[*prometheus.CounterVec](nil, c)
	if err != nil || got != c {
		t.Fatalf("expected collector passthrough, got %v %v", got, err)
	}
}

func TestNewRegistry_GathersRuntimeMetrics(t *testing.T) {
	families, err := NewRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected runtime metric families")
	}
}

func TestTracerProvider_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := newTracerProvider(context.Background(), config.TelemetrySettings{ServiceName: "commerce-api", SamplingRate: 1}, zap.NewNop(), sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("newTracerProvider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	span.End()

	if spans := recorder.Ended(); len(spans) != 1 || spans[0].Name() != "unit" {
		t.Fatalf("expected one recorded span, got %d", len(spans))
	}
}
