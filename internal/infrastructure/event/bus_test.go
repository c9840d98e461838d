package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newTestHandler("ShipmentCreated")
	arrived := newTestHandler("ShipmentArrived")
	all := newTestHandler()

	bus.Subscribe(created)
	bus.Subscribe(arrived)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(), newTestEvent("ShipmentCreated"), newTestEvent("ShipmentArrived"))
	require.NoError(t, err)

	assert.Equal(t, 1, created.count())
	assert.Equal(t, 1, arrived.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_PublishJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	failing := newTestHandler("ShipmentArrived")
	failing.setError(errors.New("downstream unavailable"))
	healthy := newTestHandler("ShipmentArrived")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("ShipmentArrived"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "downstream unavailable")
	assert.Equal(t, 1, healthy.count(), "other handlers still run")
}

func TestInMemoryEventBus_PanicBecomesError(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	bus.Subscribe(panicHandler{})

	err := bus.Publish(context.Background(), newTestEvent("ShipmentArrived"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler("ShipmentCreated")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("ShipmentCreated")))
	assert.Equal(t, 0, h.count())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newTestHandler()
	wildcard := newTestHandler()

	r.Register(typed, "A", "B")
	r.Register(wildcard)

	assert.Len(t, r.GetHandlers("A"), 2)
	assert.Len(t, r.GetHandlers("C"), 1)
	assert.Equal(t, 2, r.Count())

	r.Unregister(typed)
	assert.Len(t, r.GetHandlers("A"), 1)
	assert.Equal(t, 1, r.Count())
}
