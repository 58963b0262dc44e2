package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(ctx context.Context, eventType, entityID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	fields = append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("entity_id", entityID),
		zap.Time("timestamp", at.UTC()),
	}, fields...)
	logger.Enrich(ctx, p.logger).Info("stub event published", fields...)
}

func (p *StubPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(ctx, EventUserRegistered, event.UserID, event.RegisteredAt,
		zap.String("cust_id", event.CustID),
		zap.String("email", logger.MaskEmail(event.Email)),
	)
	return nil
}

func (p *StubPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	p.logEvent(ctx, EventOrderPlaced, event.OrderID, event.PlacedAt,
		zap.String("ord_id", event.OrdID),
		zap.String("user_id", event.UserID),
		zap.Int64("total", event.Total),
		zap.String("currency", event.Currency),
	)
	return nil
}

func (p *StubPublisher) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	p.logEvent(ctx, StatusChangedEventType(event.Entity), event.EntityID, event.ChangedAt,
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("actor", event.Actor),
	)
	return nil
}

func (p *StubPublisher) PublishRoleUpdated(ctx context.Context, event domain.RoleUpdatedEvent) error {
	p.logEvent(ctx, EventRoleUpdated, event.RoleID, event.UpdatedAt,
		zap.String("name", event.Name),
		zap.Int("permissions", len(event.Permissions)),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
