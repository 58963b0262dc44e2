package port

import (
	"context"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
	PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error
	PublishRoleUpdated(ctx context.Context, event domain.RoleUpdatedEvent) error
}
