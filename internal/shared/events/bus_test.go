package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToRegisteredHandlers(t *testing.T) {
	bus := NewBus(nil)

	var seen []Event
	bus.Register(NewHandlerFunc([]string{TransactionRecordedType}, func(e Event) error {
		seen = append(seen, e)
		return nil
	}))

	event := NewTransactionRecordedEvent(uuid.New(), "bogus", "purchase", 1000, "USD", "order-1", true, "")
	bus.Publish(event)

	assert.Len(t, seen, 1)
	assert.Equal(t, TransactionRecordedType, seen[0].EventType())
	assert.Equal(t, event.EventID(), seen[0].EventID())
}

func TestBusIgnoresUnregisteredTypes(t *testing.T) {
	bus := NewBus(nil)

	called := false
	bus.Register(NewHandlerFunc([]string{"SomethingElse"}, func(Event) error {
		called = true
		return nil
	}))

	bus.Publish(NewTransactionRecordedEvent(uuid.New(), "bogus", "purchase", 1000, "USD", "", true, ""))
	assert.False(t, called)
}

func TestBusContinuesAfterHandlerError(t *testing.T) {
	bus := NewBus(nil)

	bus.Register(NewHandlerFunc([]string{TransactionRecordedType}, func(Event) error {
		return errors.New("boom")
	}))
	called := false
	bus.Register(NewHandlerFunc([]string{TransactionRecordedType}, func(Event) error {
		called = true
		return nil
	}))

	bus.Publish(NewTransactionRecordedEvent(uuid.New(), "bogus", "refund", 500, "USD", "", false, "card_declined"))
	assert.True(t, called)
}
