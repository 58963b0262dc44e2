package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// CounterSequence allocates sequence values with INCR, one key per name.
type CounterSequence struct {
	client    *redis.Client
	keyPrefix string
}

// NewCounterSequence builds a Redis-backed sequence.
func NewCounterSequence(client *redis.Client, keyPrefix string) *CounterSequence {
	return &CounterSequence{client: client, keyPrefix: keyPrefix}
}

// Next atomically increments the named counter.
func (s *CounterSequence) Next(ctx context.Context, name string) (int64, error) {
	value, err := s.client.Incr(ctx, s.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return value, nil
}

// Seed raises the named counter to at least floor, for stores that already hold documents.
func (s *CounterSequence) Seed(ctx context.Context, name string, floor int64) error {
	current, err := s.client.Get(ctx, s.key(name)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis get: %w", err)
	}
	if current >= floor {
		return nil
	}
	if err := s.client.Set(ctx, s.key(name), floor, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *CounterSequence) key(name string) string {
	if s.keyPrefix == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", s.keyPrefix, name)
}

var _ port.Sequence = (*CounterSequence)(nil)
