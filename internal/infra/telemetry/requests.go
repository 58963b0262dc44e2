package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetricsOptions names and buckets the request collectors of one transport.
type RequestMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// RequestMetrics counts, times and tracks in-flight requests of one transport.
type RequestMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
}

// NewRequestMetrics registers requests_total, request_duration_seconds and
// in_flight_requests. labels partition the counter and the histogram; gaugeLabels
// partition the gauge and must be a subset of labels. Namespace defaults to
// "commerce"; a nil Registerer leaves the collectors unregistered.
func NewRequestMetrics(opts RequestMetricsOptions, labels, gaugeLabels []string) (*RequestMetrics, error) {
	if opts.Namespace == "" {
		opts.Namespace = "commerce"
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = prometheus.DefBuckets
	}

	requests, err := Register(opts.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "requests_total",
		Help:      fmt.Sprintf("Total number of %s requests.", opts.Subsystem),
	}, labels))
	if err != nil {
		return nil, fmt.Errorf("%s requests collector: %w", opts.Subsystem, err)
	}

	duration, err := Register(opts.Registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "request_duration_seconds",
		Help:      fmt.Sprintf("Latency of %s requests in seconds.", opts.Subsystem),
		Buckets:   opts.Buckets,
	}, labels))
	if err != nil {
		return nil, fmt.Errorf("%s duration collector: %w", opts.Subsystem, err)
	}

	inFlight, err := Register(opts.Registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "in_flight_requests",
		Help:      fmt.Sprintf("Current number of in-flight %s requests.", opts.Subsystem),
	}, gaugeLabels))
	if err != nil {
		return nil, fmt.Errorf("%s inflight collector: %w", opts.Subsystem, err)
	}

	return &RequestMetrics{Requests: requests, Duration: duration, InFlight: inFlight}, nil
}

// Track marks one request in flight and returns the function that ends it.
func (m *RequestMetrics) Track(gaugeValues ...string) func() {
	g := m.InFlight.WithLabelValues(gaugeValues...)
	g.Inc()
	return g.Dec
}

// Observe records a finished request that started at start.
func (m *RequestMetrics) Observe(labels prometheus.Labels, start time.Time) {
	m.Requests.With(labels).Inc()
	m.Duration.With(labels).Observe(time.Since(start).Seconds())
}
