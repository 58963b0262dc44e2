package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer(buffer int) *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, buffer),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}
func (f *fakeAsyncProducer) Close() error { return nil }
func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }
func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }
func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }
func (f *fakeAsyncProducer) IsTransactional() bool { return false }
func (f *fakeAsyncProducer) BeginTxn() error { return nil }
func (f *fakeAsyncProducer) CommitTxn() error { return nil }
func (f *fakeAsyncProducer) AbortTxn() error { return nil }
func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return 0 }
func (f *fakeAsyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}
func (f *fakeAsyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func newTestPublisher(t *testing.T, buffer int) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	fake := newFakeAsyncProducer(buffer)
	producer := newProducer(fake, config.KafkaSettings{TopicPrefix: "commerce"}, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{Name: "commerce-api", Env: "test"}, zaptest.NewLogger(t))
	return publisher, fake
}

type envelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   map[string]any    `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
}

func receive(t *testing.T, fake *fakeAsyncProducer) (*sarama.ProducerMessage, envelope) {
	t.Helper()
	select {
	case msg := <-fake.input:
		raw, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil, envelope{}
}

func messageKey(t *testing.T, msg *sarama.ProducerMessage) string {
	t.Helper()
	if msg.Key == nil {
		return ""
	}
	raw, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("Key.Encode returned error: %v", err)
	}
	return string(raw)
}

func TestPublishOrderPlaced(t *testing.T) {
	publisher, fake := newTestPublisher(t, 1)

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := publisher.PublishOrderPlaced(context.Background(), domain.OrderPlacedEvent{
		EventID:   "event-1",
		OrderID:   "order-1",
		OrdID:     "ORD-0000007",
		UserID:    "user-1",
		PaymentID: "payment-1",
		Total:     2500,
		Currency:  "USD",
		PlacedAt:  placedAt,
	})
	if err != nil {
		t.Fatalf("PublishOrderPlaced returned error: %v", err)
	}

	msg, env := receive(t, fake)
	if msg.Topic != "commerce.order.placed" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if key := messageKey(t, msg); key != "order-1" {
		t.Fatalf("unexpected key: %q", key)
	}
	if env.EventID != "event-1" || env.EventType != EventOrderPlaced || env.Version != schemaVersion {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !env.Timestamp.Equal(placedAt) {
		t.Fatalf("unexpected timestamp: %s", env.Timestamp)
	}
	if env.Payload["ord_id"] != "ORD-0000007" || env.Payload["total"] != float64(2500) {
		t.Fatalf("unexpected payload: %v", env.Payload)
	}
	if env.Metadata["service"] != "commerce-api" || env.Metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", env.Metadata)
	}
}

func TestPublishStatusChanged_TopicPerEntity(t *testing.T) {
	publisher, fake := newTestPublisher(t, 2)

	for _, entity := range []domain.Resource{domain.ResourcePayment, domain.ResourceShipping} {
		err := publisher.PublishStatusChanged(context.Background(), domain.StatusChangedEvent{
			Entity:   entity,
			EntityID: "id-1",
			From:     domain.StatusPending,
			To:       domain.StatusCompleted,
		})
		if err != nil {
			t.Fatalf("PublishStatusChanged returned error: %v", err)
		}
	}

	first, env := receive(t, fake)
	if first.Topic != "commerce.payment.status.changed" {
		t.Fatalf("unexpected topic: %s", first.Topic)
	}
	if env.EventID == "" {
		t.Fatal("expected generated event id")
	}
	if env.Payload["from"] != "PENDING" || env.Payload["to"] != "COMPLETED" {
		t.Fatalf("unexpected payload: %v", env.Payload)
	}

	second, _ := receive(t, fake)
	if second.Topic != "commerce.shipping.status.changed" {
		t.Fatalf("unexpected topic: %s", second.Topic)
	}
}

func TestPublishUserRegisteredAndRoleUpdated(t *testing.T) {
	publisher, fake := newTestPublisher(t, 2)
	ctx := context.Background()

	if err := publisher.PublishUserRegistered(ctx, domain.UserRegisteredEvent{UserID: "user-1", CustID: "CUST-0000001", Email: "jane@example.com"}); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}
	if err := publisher.PublishRoleUpdated(ctx, domain.RoleUpdatedEvent{RoleID: "role-1", Name: "support", Permissions: []domain.Permission{"order:view"}}); err != nil {
		t.Fatalf("PublishRoleUpdated returned error: %v", err)
	}

	msg, env := receive(t, fake)
	if msg.Topic != "commerce.user.registered" || env.Payload["cust_id"] != "CUST-0000001" {
		t.Fatalf("unexpected registration message %s %v", msg.Topic, env.Payload)
	}
	msg, env = receive(t, fake)
	if msg.Topic != "commerce.role.updated" || env.EntityID != "role-1" {
		t.Fatalf("unexpected role message %s %+v", msg.Topic, env)
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	publisher, _ := newTestPublisher(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishRoleUpdated(ctx, domain.RoleUpdatedEvent{RoleID: "role-1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProducer_TopicName(t *testing.T) {
	p := &Producer{cfg: config.KafkaSettings{TopicPrefix: "commerce"}}
	if got := p.TopicName("order.placed"); got != "commerce.order.placed" {
		t.Fatalf("unexpected topic %s", got)
	}
	if got := p.TopicName("commerce.order.placed"); got != "commerce.order.placed" {
		t.Fatalf("prefix applied twice: %s", got)
	}
	if got := (&Producer{}).TopicName("order.placed"); got != "order.placed" {
		t.Fatalf("unexpected topic without prefix %s", got)
	}
}

func TestProducer_ForwardsDeliveryErrors(t *testing.T) {
	fake := newFakeAsyncProducer(1)
	producer := newProducer(fake, config.KafkaSettings{}, zaptest.NewLogger(t))
	defer producer.Close()

	boom := errors.New("broker down")
	fake.errors <- &sarama.ProducerError{Msg: &sarama.ProducerMessage{Topic: "commerce.order.placed"}, Err: boom}

	select {
	case err := <-producer.Errors():
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded error")
	}
}

func TestStubPublisher_LogsMaskedEmail(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := NewStubPublisher(zap.New(core))

	if err := stub.PublishUserRegistered(context.Background(), domain.UserRegisteredEvent{UserID: "user-1", Email: "jane.doe@example.com"}); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	entries := logs.FilterMessage("stub event published").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != EventUserRegistered || fields["email"] != "jan***@example.com" {
		t.Fatalf("unexpected fields %v", fields)
	}
}
