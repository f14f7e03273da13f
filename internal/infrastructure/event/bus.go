package event

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/billpay/backend/internal/domain/shared"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// anyEvent keys the handlers that receive every event type
const anyEvent = "*"

// InMemoryEventBus calls subscribed handlers synchronously on Publish. It is
// the delivery target of the outbox processor.
type InMemoryEventBus struct {
	mu     sync.RWMutex
	subs   map[string][]shared.EventHandler
	logger *zap.Logger
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		subs:   make(map[string][]shared.EventHandler),
		logger: logger.Named("event_bus"),
	}
}

// Subscribe registers handler for eventTypes. Without explicit types the
// handler's own EventTypes are used, and an empty list means every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	if len(eventTypes) == 0 {
		eventTypes = []string{anyEvent}
	}

	b.mu.Lock()
	for _, t := range eventTypes {
		b.subs[t] = append(b.subs[t], handler)
	}
	b.mu.Unlock()
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, hs := range b.subs {
		hs = slices.DeleteFunc(slices.Clone(hs), func(h shared.EventHandler) bool { return h == handler })
		if len(hs) == 0 {
			delete(b.subs, t)
			continue
		}
		b.subs[t] = hs
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Concat(b.subs[eventType], b.subs[anyEvent])
}

// Publish runs every matching handler for each event. One handler failing
// or panicking does not skip the rest; all failures come back combined so
// the outbox retries the entry.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs error
	for _, ev := range events {
		for _, h := range b.handlersFor(ev.EventType()) {
			if err := safeHandle(ctx, h, ev); err != nil {
				b.logger.Error("event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.String("tenant_id", ev.TenantID().String()),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

func (b *InMemoryEventBus) Start(context.Context) error { return nil }

func (b *InMemoryEventBus) Stop(context.Context) error { return nil }

func safeHandle(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", ev.EventType(), r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
