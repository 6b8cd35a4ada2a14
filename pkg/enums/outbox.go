package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCart        OutboxAggregateType = "cart"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateReservation OutboxAggregateType = "reservation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCart,
	AggregateOrder,
	AggregateReservation,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventCartAttached        OutboxEventType = "cart_attached"
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderCanceled       OutboxEventType = "order_canceled"
	EventOrderCompleted      OutboxEventType = "order_completed"
	EventReservationBooked   OutboxEventType = "reservation_booked"
	EventReservationCanceled OutboxEventType = "reservation_canceled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCartAttached,
	EventOrderPlaced,
	EventOrderCanceled,
	EventOrderCompleted,
	EventReservationBooked,
	EventReservationCanceled,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
