package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and which aggregate
// it must belong to.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed every check and is ready to send.
// Payload holds a pointer to the typed event.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return "non-retryable: " + e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// EventRegistry routes outbox rows to topics.
type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	r := &EventRegistry{routes: make(map[enums.OutboxEventType]EventDescriptor, 3)}
	route[payloads.OrderPlacedEvent](r, enums.EventOrderPlaced, enums.AggregateOrder, cfg.OrdersTopic)
	route[payloads.OrderStatusChangedEvent](r, enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic)
	route[payloads.PaymentRecordedEvent](r, enums.EventPaymentRecorded, enums.AggregatePayment, cfg.OrdersTopic)
	return r, nil
}

func route[T any](r *EventRegistry, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) {
	r.routes[eventType] = EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("no route for event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s aggregates, row has %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s row has no aggregate_id", event.EventType)
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, nonRetryable("decode %s data: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

func nonRetryable(format string, args ...any) NonRetryableError {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
