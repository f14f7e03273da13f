package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from their JSON outbox payload
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates a serializer with no registered types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// NewPayablesSerializer creates a serializer that knows every payables event
func NewPayablesSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(payables.EventTypePayeeCreated, &payables.PayeeCreatedEvent{})
	s.Register(payables.EventTypePayeeDeleted, &payables.PayeeDeletedEvent{})
	s.Register(payables.EventTypeBillCreated, &payables.BillCreatedEvent{})
	s.Register(payables.EventTypeBillUpdated, &payables.BillUpdatedEvent{})
	s.Register(payables.EventTypeBillPaid, &payables.BillPaidEvent{})
	s.Register(payables.EventTypeBillOverdue, &payables.BillOverdueEvent{})
	s.Register(payables.EventTypeBillDeleted, &payables.BillDeletedEvent{})
	s.Register(payables.EventTypePaymentRecorded, &payables.PaymentRecordedEvent{})
	s.Register(payables.EventTypePaymentDeleted, &payables.PaymentDeletedEvent{})
	return s
}

// Register maps eventType to the concrete type of instance
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

// Serialize encodes ev as JSON
func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	if !s.IsRegistered(ev.EventType()) {
		return nil, fmt.Errorf("unknown event type: %s", ev.EventType())
	}
	return json.Marshal(ev)
}

// Deserialize decodes data into a new instance of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	ev, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return ev, nil
}

// IsRegistered reports whether eventType can be deserialized
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in lexical order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
