package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMetricsTrackAndObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewRequestMetrics(RequestMetricsOptions{Registerer: registry, Subsystem: "jobs"}, []string{"kind", "result"}, []string{"kind"})
	if err != nil {
		t.Fatalf("new request metrics: %v", err)
	}

	done := m.Track("sync")
	if got := testutil.ToFloat64(m.InFlight.WithLabelValues("sync")); got != 1 {
		t.Fatalf("expected 1 in flight, got %f", got)
	}
	done()
	m.Observe(prometheus.Labels{"kind": "sync", "result": "ok"}, time.Now().Add(-time.Second))

	if got := testutil.ToFloat64(m.InFlight.WithLabelValues("sync")); got != 0 {
		t.Fatalf("expected 0 in flight, got %f", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("sync", "ok")); got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
	if n, err := testutil.GatherAndCount(registry, "commerce_jobs_requests_total", "commerce_jobs_request_duration_seconds"); err != nil || n != 2 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}
