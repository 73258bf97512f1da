package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribePublish(t *testing.T) {
	bus := NewInMemoryBus(10)

	var got []*Event
	bus.Subscribe(EventClientBound, func(event *Event) {
		got = append(got, event)
	})

	bus.Publish(NewEvent(EventClientBound, "binder", "a"))
	bus.Publish(NewEvent(EventClientDeactivated, "binder", "a"))

	assert.Len(t, got, 1)
	assert.Equal(t, EventClientBound, got[0].Type)
	assert.Equal(t, "a", got[0].Data)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewInMemoryBus(10)

	count := 0
	bus.SubscribeAll(func(event *Event) { count++ })

	bus.Publish(NewEvent(EventChannelConnected, "gateway", nil))
	bus.Publish(NewEvent(EventChannelTeardown, "gateway", nil))

	assert.Equal(t, 2, count)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus(10)

	count := 0
	id := bus.Subscribe(EventRoutingError, func(event *Event) { count++ })

	bus.Publish(NewEvent(EventRoutingError, "gateway", nil))
	bus.Unsubscribe(id)
	bus.Publish(NewEvent(EventRoutingError, "gateway", nil))

	assert.Equal(t, 1, count)
}

func TestEvent_Metadata(t *testing.T) {
	event := NewEvent(EventUpstreamDisconnect, "gateway", nil).
		WithMetadata("frame_type", "disconnect")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "disconnect", event.Metadata["frame_type"])
	assert.False(t, event.Timestamp.IsZero())
}
