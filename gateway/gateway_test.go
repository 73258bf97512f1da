package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUpstream is a minimal websocket endpoint recording inbound frames
// and pushing injected frames back down the channel.
type testUpstream struct {
	server   *httptest.Server
	received chan []byte
	send     chan []byte
	upgrades int32
}

func newTestUpstream(t *testing.T) *testUpstream {
	t.Helper()

	u := &testUpstream{
		received: make(chan []byte, 16),
		send:     make(chan []byte, 16),
	}

	upgrader := ws.Upgrader{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&u.upgrades, 1)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				messageType, frame, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if messageType != ws.TextMessage && messageType != ws.BinaryMessage {
					continue
				}
				u.received <- frame
			}
		}()

		for {
			select {
			case frame := <-u.send:
				if err := conn.WriteMessage(ws.TextMessage, frame); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}))
	t.Cleanup(u.server.Close)

	return u
}

func (u *testUpstream) url() string {
	return "ws" + strings.TrimPrefix(u.server.URL, "http")
}

func (u *testUpstream) inject(t *testing.T, messageType domain.MessageType, payload any) {
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

	u.send <- frame
}

func newTestGateway(url string) *Gateway {
	options := DefaultOptions(url)
	options.DialTimeout = 2 * time.Second
	options.MaxDialRetries = 1
	options.PingInterval = time.Second

	return New(options, logging.New(logging.Config{Level: "error", Format: "text"}), nil)
}

func TestGateway_EmitBeforeConnect(t *testing.T) {
	g := newTestGateway("ws://localhost:0/ws")

	err := g.Emit(context.Background(), domain.MessageTypeRegistration, nil)
	assert.Error(t, err)
	assert.False(t, g.Connected())
}

func TestGateway_EnsureConnectedIsIdempotent(t *testing.T) {
	upstream := newTestUpstream(t)
	g := newTestGateway(upstream.url())
	defer g.Teardown()

	require.NoError(t, g.EnsureConnected(context.Background()))
	require.NoError(t, g.EnsureConnected(context.Background()))
	require.NoError(t, g.EnsureConnected(context.Background()))

	assert.True(t, g.Connected())
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.upgrades))
}

func TestGateway_DialFailurePropagates(t *testing.T) {
	g := newTestGateway("ws://127.0.0.1:1/ws")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := g.EnsureConnected(ctx)
	assert.Error(t, err)
	assert.False(t, g.Connected())
}

func TestGateway_EmitWrapsPayloadInEnvelope(t *testing.T) {
	upstream := newTestUpstream(t)
	g := newTestGateway(upstream.url())
	defer g.Teardown()

	require.NoError(t, g.EnsureConnected(context.Background()))

	payload := domain.RegistrationPayload{
		Parameters: map[string]any{"listenValue": "x"},
		Active:     true,
		Token:      "tok",
		ID:         "a",
	}
	require.NoError(t, g.Emit(context.Background(), domain.MessageTypeRegistration, payload))

	select {
	case frame := <-upstream.received:
		var msg domain.Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, domain.MessageTypeRegistration, msg.Type)
		assert.False(t, msg.Timestamp.IsZero())

		var decoded domain.RegistrationPayload
		require.NoError(t, json.Unmarshal(msg.Data, &decoded))
		assert.Equal(t, payload.ID, decoded.ID)
		assert.Equal(t, payload.Token, decoded.Token)
	case <-time.After(5 * time.Second):
		t.Fatal("frame never reached upstream")
	}
}

func TestGateway_DispatchesInboundFrames(t *testing.T) {
	upstream := newTestUpstream(t)
	g := newTestGateway(upstream.url())
	defer g.Teardown()

	require.NoError(t, g.EnsureConnected(context.Background()))

	delivered := make(chan *domain.Message, 1)
	g.Subscribe(domain.EventMessageCreate, func(_ context.Context, msg *domain.Message) error {
		delivered <- msg
		return nil
	})

	upstream.inject(t, domain.EventMessageCreate, domain.MessageCreatePayload{
		TargetID: "a",
		Message:  map[string]any{"id": "m1"},
	})

	select {
	case msg := <-delivered:
		assert.Equal(t, domain.EventMessageCreate, msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("inbound frame never dispatched")
	}
}

func TestGateway_HandlerFailuresAreIsolated(t *testing.T) {
	upstream := newTestUpstream(t)
	g := newTestGateway(upstream.url())
	defer g.Teardown()

	require.NoError(t, g.EnsureConnected(context.Background()))

	delivered := make(chan struct{}, 2)
	g.Subscribe(domain.EventRoleCreate, func(_ context.Context, _ *domain.Message) error {
		panic("bad handler")
	})
	g.Subscribe(domain.EventRoleCreate, func(_ context.Context, _ *domain.Message) error {
		delivered <- struct{}{}
		return nil
	})

	upstream.inject(t, domain.EventRoleCreate, domain.RolePayload{
		TargetID: "a",
		Role:     map[string]any{"id": "r1"},
	})

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("panicking handler blocked the others")
	}
}

func TestGateway_TeardownDropsConnectionAndHandlers(t *testing.T) {
	upstream := newTestUpstream(t)
	g := newTestGateway(upstream.url())

	require.NoError(t, g.EnsureConnected(context.Background()))
	g.Subscribe(domain.EventRoleCreate, func(_ context.Context, _ *domain.Message) error {
		t.Error("handler survived teardown")
		return nil
	})

	require.NoError(t, g.Teardown())
	assert.False(t, g.Connected())

	err := g.Emit(context.Background(), domain.MessageTypeDeregistration, domain.DeregistrationPayload{ID: "a"})
	assert.Error(t, err)

	// Teardown twice is a no-op.
	assert.NoError(t, g.Teardown())

	// A new channel lifetime starts with an empty handler table.
	require.NoError(t, g.EnsureConnected(context.Background()))
	defer g.Teardown()

	upstream.inject(t, domain.EventRoleCreate, domain.RolePayload{TargetID: "a"})
	time.Sleep(200 * time.Millisecond)
}
