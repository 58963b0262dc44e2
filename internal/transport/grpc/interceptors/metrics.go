package interceptors

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/telemetry"
)

// GRPCMetricsOptions controls construction of gRPC metrics collectors.
type GRPCMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// GRPCMetrics records unary calls by service, method and status code.
type GRPCMetrics struct {
	*telemetry.RequestMetrics
}

// NewGRPCMetrics registers the gRPC collectors with opts.Registerer.
func NewGRPCMetrics(opts GRPCMetricsOptions) (*GRPCMetrics, error) {
	if opts.Subsystem == "" {
		opts.Subsystem = "grpc"
	}
	m, err := telemetry.NewRequestMetrics(telemetry.RequestMetricsOptions{
		Registerer: opts.Registerer,
		Namespace:  opts.Namespace,
		Subsystem:  opts.Subsystem,
		Buckets:    opts.Buckets,
	}, []string{"service", "method", "code"}, []string{"service"})
	if err != nil {
		return nil, err
	}
	return &GRPCMetrics{RequestMetrics: m}, nil
}

// UnaryServerInterceptor returns a gRPC unary interceptor that records metrics.
// A nil receiver yields a pass-through interceptor.
func (m *GRPCMetrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	if m == nil {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := splitFullMethod(info.FullMethod)
		start := time.Now()
		done := m.Track(service)
		defer done()

		resp, err := handler(ctx, req)

		m.Observe(prometheus.Labels{
			"service": service,
			"method":  method,
			"code":    status.Code(err).String(),
		}, start)
		return resp, err
	}
}

// splitFullMethod splits "/package.Service/Method", substituting "unknown" for missing parts.
func splitFullMethod(full string) (string, string) {
	if full == "" {
		return "unknown", "unknown"
	}
	service, method, found := strings.Cut(strings.TrimPrefix(full, "/"), "/")
	if !found || strings.Contains(method, "/") {
		return strings.TrimPrefix(full, "/"), "unknown"
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}
