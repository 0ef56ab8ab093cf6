// Package notify is the fire-and-forget notification sink. Deliveries ride
// the notifications Kafka topic; publish failures are logged and swallowed so
// a notification can never fail the operation that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/donMuregi/tepstore/pkg/kafka"
)

const topic = "tepstore.notifications"

// Notifier delivers a human-readable message to a recipient, best effort.
type Notifier interface {
	Notify(ctx context.Context, recipient, template string, data map[string]any)
}

// KafkaNotifier publishes notification requests for the delivery worker.
type KafkaNotifier struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(producer *kafka.Producer, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		logger:   logger.With(slog.String("component", "notify")),
	}
}

type payload struct {
	Recipient string         `json:"recipient"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notify publishes the notification request. Errors are logged, never returned.
func (n *KafkaNotifier) Notify(ctx context.Context, recipient, template string, data map[string]any) {
	event, err := kafka.NewEvent("notification.requested", recipient, "notification", "tepstore", payload{
		Recipient: recipient,
		Template:  template,
		Data:      data,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to build notification event",
			slog.String("template", template),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := n.producer.Publish(ctx, topic, event); err != nil {
		n.logger.WarnContext(ctx, "notification publish failed",
			slog.String("template", template),
			slog.String("recipient", recipient),
			slog.String("error", err.Error()),
		)
	}
}

// NopNotifier discards all notifications. Used in tests and when Kafka is
// disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, map[string]any) {}
