package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePayment}

func (a OutboxAggregateType) IsValid() bool { return known(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type", false)
}

// OutboxEventType is the event_type column of outbox_events. Values are
// part of the wire contract with consumers and never change once shipped.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventPaymentRecorded    OutboxEventType = "payment_recorded"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventPaymentRecorded,
}

func (e OutboxEventType) IsValid() bool { return known(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(outboxEventTypes, value, "event type", false)
}
