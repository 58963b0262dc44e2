package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLogging logs every unary call and converts handler panics into codes.Internal.
func UnaryLogging(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				log.Error("gRPC handler panicked", zap.String("method", info.FullMethod), zap.Any("panic", r))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("latency", time.Since(start)),
			}
			switch code {
			case codes.OK, codes.NotFound, codes.Canceled:
				log.Debug("gRPC call completed", fields...)
			case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
				log.Error("gRPC call failed", append(fields, zap.Error(err))...)
			default:
				log.Warn("gRPC call rejected", append(fields, zap.Error(err))...)
			}
		}()

		return handler(ctx, req)
	}
}
