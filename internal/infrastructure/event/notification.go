package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notification is the message sent to external subscribers for one domain event
type Notification struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewNotification builds the message for ev
func NewNotification(ev shared.DomainEvent) (Notification, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Notification{}, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return Notification{
		EventID:       ev.EventID(),
		EventType:     ev.EventType(),
		TenantID:      ev.TenantID(),
		AggregateType: ev.AggregateType(),
		AggregateID:   ev.AggregateID(),
		OccurredAt:    ev.OccurredAt(),
		Payload:       payload,
	}, nil
}

// Notifier delivers notifications to the outside world
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationHandler forwards every event to a Notifier. Failures are
// logged and returned, so the outbox entry is retried with backoff.
type NotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates a handler that notifies through notifier
func NewNotificationHandler(notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger.Named("notification")}
}

// EventTypes subscribes to all events
func (h *NotificationHandler) EventTypes() []string { return nil }

// Handle implements shared.EventHandler
func (h *NotificationHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	n, err := NewNotification(ev)
	if err == nil {
		err = h.notifier.Notify(ctx, n)
	}
	if err != nil {
		h.logger.Warn("notification failed",
			zap.String("event_id", ev.EventID().String()),
			zap.String("event_type", ev.EventType()),
			zap.String("tenant_id", ev.TenantID().String()),
			zap.Error(err),
		)
	}
	return err
}

var _ shared.EventHandler = (*NotificationHandler)(nil)

// RedisNotifier publishes notifications as JSON on a Redis Pub/Sub channel
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Notify implements Notifier
func (n *RedisNotifier) Notify(ctx context.Context, msg Notification) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

// LogNotifier writes notifications to the log; used when Redis is disabled
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("event notification",
		zap.String("event_type", msg.EventType),
		zap.String("event_id", msg.EventID.String()),
		zap.String("tenant_id", msg.TenantID.String()),
		zap.String("aggregate_id", msg.AggregateID.String()),
	)
	return nil
}
