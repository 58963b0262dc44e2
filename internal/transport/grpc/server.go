package transportgrpc

import (
	"context"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/grpc/interceptors"
)

const defaultProbeTimeout = 2 * time.Second

// Check probes one dependency. A nil error means the dependency is usable.
type Check func(ctx context.Context) error

// ServerDependencies encapsulates what the gRPC server layer needs.
type ServerDependencies struct {
	Logger         *zap.Logger
	Metrics        *grpcinterceptors.GRPCMetrics
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	Checks         map[string]Check
	ProbeTimeout   time.Duration
}

// Server serves the standard health and reflection services.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	checks  map[string]Check
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	serving bool
}

// NewServer builds the gRPC server with logging, metrics and tracing installed.
func NewServer(deps ServerDependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := deps.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcinterceptors.UnaryLogging(logger),
			deps.Metrics.UnaryServerInterceptor(),
		),
	}
	if deps.TracerProvider != nil {
		opts = append(opts, grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{
			TracerProvider: deps.TracerProvider,
			Propagators:    deps.Propagators,
		}))
	}

	server := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	// grpcurl and similar tools discover services through reflection.
	reflection.Register(server)

	return &Server{
		grpc:    server,
		health:  hs,
		checks:  deps.Checks,
		timeout: timeout,
		logger:  logger,
		serving: true,
	}
}

// GRPC exposes the underlying server for additional service registration.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// RefreshHealth runs every check and publishes the aggregate serving status.
// It reports whether all checks passed.
func (s *Server) RefreshHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	failed := map[string]string{}
	for name, check := range s.checks {
		g.Go(func() error {
			if err := check(gctx); err != nil {
				mu.Lock()
				failed[name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	ok := len(failed) == 0
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	changed := s.serving != ok
	s.serving = ok
	s.mu.Unlock()

	s.health.SetServingStatus("", status)
	if changed {
		if ok {
			s.logger.Info("gRPC health restored")
		} else {
			s.logger.Warn("gRPC health degraded", zap.Any("failed_checks", failed))
		}
	}
	return ok
}

// Serve accepts connections on lis and probes dependencies every interval until ctx ends.
func (s *Server) Serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	s.RefreshHealth(ctx)

	if interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.RefreshHealth(ctx)
				}
			}
		}()
	}

	return s.grpc.Serve(lis)
}

// Shutdown marks the server as not serving and drains in-flight calls. It
// forces the stop when ctx ends first.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
