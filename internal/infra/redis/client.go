package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

const (
	defaultPoolSize = 10
	dialTimeout     = 5 * time.Second
	ioTimeout       = 3 * time.Second
)

// Options maps settings onto go-redis options.
func Options(cfg config.RedisSettings) *redis.Options {
	pool := cfg.PoolSize
	if pool <= 0 {
		pool = defaultPoolSize
	}
	opts := &redis.Options{
		Addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        pool,
		MinIdleConns:    max(pool/5, 1),
		MaxRetries:      3,
		DialTimeout:     dialTimeout,
		ReadTimeout:     ioTimeout,
		WriteTimeout:    ioTimeout,
		PoolTimeout:     ioTimeout + time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}
	return opts
}

// Dial opens the client shared by the permission cache, the counters and the
// rate limiter. The client is closed again when the first PING fails.
func Dial(ctx context.Context, cfg config.RedisSettings, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))
	if err := Probe(client)(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info("redis connected",
		zap.String("addr", client.Options().Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", client.Options().PoolSize),
		zap.Bool("tls", cfg.TLSEnabled),
	)
	return client, nil
}

// Probe returns a readiness check that pings client within the dial timeout.
func Probe(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}
}
