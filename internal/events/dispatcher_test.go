package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversByType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var created, assigned int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		assigned++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "tkt-1"}))
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, assigned)
}

func TestDispatcherFailingHandlerDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var order []string
	d.Subscribe(EventTicketEscalated, func(context.Context, Event) error {
		order = append(order, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketEscalated, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketEscalated}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherNoSubscribersIsANoop(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCommented}))
}
