package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants.
const (
	TransactionRecordedType = "TransactionRecorded"
)

// Event is the interface that all domain events implement.
type Event interface {
	// EventID returns the unique identifier for this event instance.
	EventID() uuid.UUID

	// EventType returns the type name of the event.
	EventType() string

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() uuid.UUID
}

// BaseEvent provides a base implementation of the Event interface.
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
}

// EventID returns the unique identifier for this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type name of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event.
func (e BaseEvent) AggregateID() uuid.UUID {
	return e.AggregateUUID
}

// NewBaseEvent creates a new BaseEvent with the given parameters.
func NewBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
	}
}

// TransactionRecordedEvent is emitted after a gateway operation is recorded,
// whether approved or declined.
type TransactionRecordedEvent struct {
	BaseEvent

	Gateway   string `json:"gateway"`
	Operation string `json:"operation"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	OrderID   string `json:"order_id"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewTransactionRecordedEvent creates a TransactionRecordedEvent.
func NewTransactionRecordedEvent(transactionID uuid.UUID, gateway, operation string, amount int64, currency, orderID string, success bool, errorCode string) *TransactionRecordedEvent {
	return &TransactionRecordedEvent{
		BaseEvent: NewBaseEvent(TransactionRecordedType, transactionID),
		Gateway:   gateway,
		Operation: operation,
		Amount:    amount,
		Currency:  currency,
		OrderID:   orderID,
		Success:   success,
		ErrorCode: errorCode,
	}
}
