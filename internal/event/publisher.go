// Package event publishes domain events to Kafka. Publishing is best effort:
// a broker outage is logged and the triggering operation proceeds.
package event

import (
	"context"
	"log/slog"

	"github.com/donMuregi/tepstore/pkg/kafka"
	"github.com/donMuregi/tepstore/pkg/logger"
)

// Topics for the store's domain events.
const (
	TopicCarts        = "tepstore.carts"
	TopicOrders       = "tepstore.orders"
	TopicApplications = "tepstore.applications"
)

// Publisher emits domain events for downstream consumers.
type Publisher interface {
	CartUpdated(ctx context.Context, cartID string)
	OrderCreated(ctx context.Context, orderID string, total int64)
	ApplicationStatusChanged(ctx context.Context, kind, recordID, from, to string)
}

// KafkaPublisher implements Publisher over the shared Kafka producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaPublisher creates a Kafka-backed event publisher.
func NewKafkaPublisher(producer *kafka.Producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   logger.With(slog.String("component", "event")),
	}
}

// CartUpdated signals that a cart's contents changed.
func (p *KafkaPublisher) CartUpdated(ctx context.Context, cartID string) {
	p.publish(ctx, TopicCarts, "cart.updated", cartID, "cart", nil)
}

// OrderCreated signals a completed cart→order conversion.
func (p *KafkaPublisher) OrderCreated(ctx context.Context, orderID string, total int64) {
	p.publish(ctx, TopicOrders, "order.created", orderID, "order", map[string]any{
		"total": total,
	})
}

// ApplicationStatusChanged signals a workflow transition on a financing
// application or enterprise order.
func (p *KafkaPublisher) ApplicationStatusChanged(ctx context.Context, kind, recordID, from, to string) {
	p.publish(ctx, TopicApplications, "application.status_changed", recordID, kind, map[string]any{
		"from": from,
		"to":   to,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data map[string]any) {
	event, err := kafka.NewEvent(eventType, aggregateID, aggregateType, "tepstore", data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.producer.Publish(ctx, topic, event); err != nil {
		p.logger.WarnContext(ctx, "event publish failed",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// NopPublisher discards all events. Used in tests.
type NopPublisher struct{}

func (NopPublisher) CartUpdated(context.Context, string)                            {}
func (NopPublisher) OrderCreated(context.Context, string, int64)                    {}
func (NopPublisher) ApplicationStatusChanged(context.Context, string, string, string, string) {}
