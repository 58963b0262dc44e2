package port

import (
	"context"
	"time"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// PermissionCache stores resolved permission sets per user.
// Get returns ok=false on a miss.
type PermissionCache interface {
	Get(ctx context.Context, userID string) ([]domain.Permission, bool, error)
	Set(ctx context.Context, userID string, permissions []domain.Permission, ttl time.Duration) error
	Invalidate(ctx context.Context, userIDs ...string) error
}
