package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// PermissionCache keeps each user's resolved permission set as a JSON string with a TTL.
type PermissionCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewPermissionCache builds a cache storing keys under keyPrefix.
func NewPermissionCache(client *redis.Client, keyPrefix string) *PermissionCache {
	return &PermissionCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached permissions of userID and whether they were present.
func (c *PermissionCache) Get(ctx context.Context, userID string) ([]domain.Permission, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var perms []domain.Permission
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false, fmt.Errorf("decode cached permissions: %w", err)
	}
	return perms, true, nil
}

// Set stores permissions for userID for ttl.
func (c *PermissionCache) Set(ctx context.Context, userID string, permissions []domain.Permission, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	raw, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached sets of userIDs. With no ids it drops every entry under the prefix.
func (c *PermissionCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) > 0 {
		keys := make([]string, 0, len(userIDs))
		for _, id := range userIDs {
			keys = append(keys, c.key(id))
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	}

	iter := c.client.Scan(ctx, 0, c.key("*"), 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (c *PermissionCache) key(userID string) string {
	if c.keyPrefix == "" {
		return userID
	}
	return fmt.Sprintf("%s:%s", c.keyPrefix, userID)
}

var _ port.PermissionCache = (*PermissionCache)(nil)
