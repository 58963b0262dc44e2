package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/telemetry"
)

const unmatchedRoute = "unmatched"

// HTTPMetricsOptions configures the HTTP metrics middleware.
type HTTPMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// HTTPMetrics records requests by method, route template and status.
type HTTPMetrics struct {
	*telemetry.RequestMetrics
}

// NewHTTPMetrics registers the HTTP collectors with opts.Registerer.
func NewHTTPMetrics(opts HTTPMetricsOptions) (*HTTPMetrics, error) {
	if opts.Subsystem == "" {
		opts.Subsystem = "http"
	}
	m, err := telemetry.NewRequestMetrics(telemetry.RequestMetricsOptions{
		Registerer: opts.Registerer,
		Namespace:  opts.Namespace,
		Subsystem:  opts.Subsystem,
		Buckets:    opts.Buckets,
	}, []string{"method", "route", "status"}, []string{"method"})
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{RequestMetrics: m}, nil
}

// Handler returns a Gin middleware that records the HTTP metrics. Requests
// that match no route share one label so unknown paths cannot grow cardinality.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		done := m.Track(c.Request.Method)
		defer done()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.Observe(prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}, start)
	}
}
