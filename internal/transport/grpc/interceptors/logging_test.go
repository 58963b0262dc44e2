package interceptors

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryLoggingRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := UnaryLogging(zap.New(core))

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err := interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})

	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if logs.FilterMessage("gRPC handler panicked").Len() != 1 {
		t.Fatalf("expected panic log entry")
	}
	if logs.FilterMessage("gRPC call failed").Len() != 1 {
		t.Fatalf("expected failure log entry")
	}
}

func TestUnaryLoggingLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := UnaryLogging(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	if _, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})

	if logs.FilterLevelExact(zapcore.DebugLevel).Len() != 1 {
		t.Fatalf("expected one debug entry")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatalf("expected one warn entry")
	}
}
