package upstream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(logging.New(logging.Config{Level: "error", Format: "text"}))
}

func controlFrame(t *testing.T, messageType domain.MessageType, payload any) []byte {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	frame, err := json.Marshal(domain.Message{
		ID:        "test",
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
	})
	require.NoError(t, err)

	return frame
}

func TestHub_TracksRegistrations(t *testing.T) {
	h := newTestHub()

	h.HandleFrame(controlFrame(t, domain.MessageTypeRegistration, domain.RegistrationPayload{
		ID:         "a",
		Active:     true,
		Parameters: map[string]any{"listenValue": "x"},
	}))
	h.HandleFrame(controlFrame(t, domain.MessageTypeRegistration, domain.RegistrationPayload{
		ID: "b",
	}))

	assert.Len(t, h.Registrations(), 2)

	h.HandleFrame(controlFrame(t, domain.MessageTypeDeregistration, domain.DeregistrationPayload{ID: "a"}))

	registrations := h.Registrations()
	require.Len(t, registrations, 1)
	assert.Equal(t, domain.ClientID("b"), registrations[0].ID)
}

func TestHub_ReregistrationRefreshesParameters(t *testing.T) {
	h := newTestHub()

	h.HandleFrame(controlFrame(t, domain.MessageTypeRegistration, domain.RegistrationPayload{
		ID:         "a",
		Parameters: map[string]any{"listenValue": "old"},
	}))
	h.HandleFrame(controlFrame(t, domain.MessageTypeRegistration, domain.RegistrationPayload{
		ID:         "a",
		Parameters: map[string]any{"listenValue": "new"},
	}))

	registrations := h.Registrations()
	require.Len(t, registrations, 1)
	assert.Equal(t, "new", registrations[0].Parameters["listenValue"])
}

func TestHub_IgnoresMalformedFrames(t *testing.T) {
	h := newTestHub()

	h.HandleFrame([]byte("not json"))
	h.HandleFrame(controlFrame(t, domain.MessageType("unknown"), map[string]any{}))

	assert.Empty(t, h.Registrations())
}
