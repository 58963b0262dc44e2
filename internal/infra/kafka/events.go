package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, before the topic prefix is applied.
const (
	EventUserRegistered = "user.registered"
	EventOrderPlaced    = "order.placed"
	EventRoleUpdated    = "role.updated"
)

// StatusChangedEventType returns the event type for status changes of entity.
func StatusChangedEventType(entity domain.Resource) string {
	return string(entity) + ".status.changed"
}

// EventPublisher implements port.EventPublisher using Kafka.
// Messages are keyed by the entity id so that events of one entity stay ordered.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	EntityID  string            `json:"entity_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		EntityID:  key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes commerce.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		CustID       string    `json:"cust_id"`
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		CustID:       event.CustID,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishOrderPlaced publishes commerce.order.placed events.
func (p *EventPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	payload := struct {
		OrderID   string    `json:"order_id"`
		OrdID     string    `json:"ord_id"`
		UserID    string    `json:"user_id"`
		PaymentID string    `json:"payment_id"`
		Total     int64     `json:"total"`
		Currency  string    `json:"currency"`
		PlacedAt  time.Time `json:"placed_at"`
	}{
		OrderID:   event.OrderID,
		OrdID:     event.OrdID,
		UserID:    event.UserID,
		PaymentID: event.PaymentID,
		Total:     event.Total,
		Currency:  event.Currency,
		PlacedAt:  event.PlacedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventOrderPlaced, event.OrderID, event.PlacedAt, payload)
}

// PublishStatusChanged publishes commerce.<entity>.status.changed events.
func (p *EventPublisher) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	payload := struct {
		EntityID  string    `json:"entity_id"`
		From      string    `json:"from"`
		To        string    `json:"to"`
		Reason    string    `json:"reason,omitempty"`
		Actor     string    `json:"actor,omitempty"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		EntityID:  event.EntityID,
		From:      string(event.From),
		To:        string(event.To),
		Reason:    event.Reason,
		Actor:     event.Actor,
		ChangedAt: event.ChangedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, StatusChangedEventType(event.Entity), event.EntityID, event.ChangedAt, payload)
}

// PublishRoleUpdated publishes commerce.role.updated events.
func (p *EventPublisher) PublishRoleUpdated(ctx context.Context, event domain.RoleUpdatedEvent) error {
	perms := make([]string, 0, len(event.Permissions))
	for _, perm := range event.Permissions {
		perms = append(perms, string(perm))
	}

	payload := struct {
		RoleID      string    `json:"role_id"`
		Name        string    `json:"name"`
		Permissions []string  `json:"permissions"`
		UpdatedBy   string    `json:"updated_by,omitempty"`
		UpdatedAt   time.Time `json:"updated_at"`
	}{
		RoleID:      event.RoleID,
		Name:        event.Name,
		Permissions: perms,
		UpdatedBy:   event.UpdatedBy,
		UpdatedAt:   event.UpdatedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventRoleUpdated, event.RoleID, event.UpdatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
