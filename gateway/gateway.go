package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/internal/eventbus"
	"github.com/botmux/botmux/logging"
	"github.com/botmux/botmux/pkg/errors"
	"github.com/cenkalti/backoff/v4"
	ws "github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/xid"
)

// Options represents channel gateway options
type Options struct {
	URL            string
	DialTimeout    time.Duration
	MaxDialRetries uint64
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultOptions returns default gateway options
func DefaultOptions(url string) Options {
	return Options{
		URL:            url,
		DialTimeout:    10 * time.Second,
		MaxDialRetries: 4,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 512 * 1024, // 512KB
		SendBuffer:     256,
	}
}

// Gateway owns the single shared channel to the upstream bot process and
// implements domain.Channel. Handlers accumulate in the subscription table
// for the life of the channel; Teardown is the only way to drop them.
type Gateway struct {
	options Options
	logger  *logging.Logger
	bus     eventbus.Bus

	mu   sync.Mutex
	conn *conn

	subs cmap.ConcurrentMap[string, []domain.EventHandler]
}

// New creates a gateway. The event bus is optional.
func New(options Options, logger *logging.Logger, bus eventbus.Bus) *Gateway {
	return &Gateway{
		options: options,
		logger:  logger,
		subs:    cmap.New[[]domain.EventHandler](),
		bus:     bus,
	}
}

// EnsureConnected establishes the channel if it is not already live.
// Establishing twice is a no-op. The dial is retried with exponential
// backoff up to MaxDialRetries before the error propagates to the caller.
func (g *Gateway) EnsureConnected(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn != nil && !g.conn.isClosed() {
		return nil
	}

	g.logger.Info("connecting to upstream", "url", g.options.URL)

	var socket *ws.Conn
	dial := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, g.options.DialTimeout)
		defer cancel()

		s, _, err := ws.DefaultDialer.DialContext(dialCtx, g.options.URL, nil)
		if err != nil {
			g.logger.Warn("upstream dial failed", "url", g.options.URL, "error", err)
			return err
		}
		socket = s
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.options.MaxDialRetries),
		ctx,
	)
	if err := backoff.Retry(dial, policy); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTransport, "DIAL_ERROR", "failed to connect to upstream")
	}

	g.conn = newConn(socket, g.logger, g.options, g.dispatch, g.remoteClosed)
	g.conn.start()

	// The informational disconnect frame is logged, never acted on here.
	// The handler lives for the channel lifetime like any other.
	g.Subscribe(domain.MessageTypeDisconnect, g.handleDisconnect)

	g.logger.Info("channel connected", "url", g.options.URL)

	if g.bus != nil {
		g.bus.Publish(eventbus.NewEvent(eventbus.EventChannelConnected, "gateway", g.options.URL))
	}

	return nil
}

// Emit sends one frame upstream.
func (g *Gateway) Emit(ctx context.Context, messageType domain.MessageType, payload any) error {
	g.mu.Lock()
	c := g.conn
	g.mu.Unlock()

	if c == nil || c.isClosed() {
		return errors.New(errors.ErrorTypeTransport, "NOT_CONNECTED", "channel is not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "MARSHAL_ERROR", "failed to marshal frame payload")
	}

	msg := domain.Message{
		ID:        xid.New().String(),
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "MARSHAL_ERROR", "failed to marshal frame")
	}

	return c.send(ctx, frame)
}

// Subscribe attaches a handler for inbound frames of the given type. There
// is deliberately no unsubscribe.
func (g *Gateway) Subscribe(messageType domain.MessageType, handler domain.EventHandler) {
	g.subs.Upsert(string(messageType), nil,
		func(exist bool, current []domain.EventHandler, _ []domain.EventHandler) []domain.EventHandler {
			return append(current, handler)
		})
}

// Teardown closes the channel and drops every attached handler. The session
// registry invokes it once the activation count reaches zero.
func (g *Gateway) Teardown() error {
	g.mu.Lock()
	c := g.conn
	g.conn = nil
	g.mu.Unlock()

	g.subs.Clear()

	if c == nil {
		return nil
	}

	g.logger.Info("tearing down channel")

	err := c.close()

	if g.bus != nil {
		g.bus.Publish(eventbus.NewEvent(eventbus.EventChannelTeardown, "gateway", nil))
	}

	return err
}

// Connected reports whether the channel is currently live.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil && !g.conn.isClosed()
}

// dispatch decodes one inbound frame and invokes every handler attached
// for its type. Handler failures are isolated per invocation so a bad
// payload or a panicking handler cannot break delivery for other
// identities.
func (g *Gateway) dispatch(ctx context.Context, data []byte) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		g.logger.Error("failed to unmarshal inbound frame", "error", err)
		return
	}

	handlers, ok := g.subs.Get(string(msg.Type))
	if !ok || len(handlers) == 0 {
		g.logger.Debug("no handler for frame type", "type", msg.Type)
		return
	}

	for _, handler := range handlers {
		g.invoke(ctx, handler, &msg)
	}
}

func (g *Gateway) invoke(ctx context.Context, handler domain.EventHandler, msg *domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("event handler panic", "type", msg.Type, "panic", r)
		}
	}()

	if err := handler(ctx, msg); err != nil {
		g.logger.Error("event handler error", "type", msg.Type, "error", err)
		if g.bus != nil {
			g.bus.PublishAsync(eventbus.NewEvent(eventbus.EventRoutingError, "gateway", err).
				WithMetadata("frame_type", string(msg.Type)))
		}
	}
}

// handleDisconnect logs the upstream disconnect notice. Reconnection is
// external policy, never attempted here.
func (g *Gateway) handleDisconnect(_ context.Context, msg *domain.Message) error {
	var payload domain.DisconnectPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return errors.Wrap(err, errors.ErrorTypeProtocol, "INVALID_EVENT", "failed to unmarshal disconnect notice")
	}

	g.logger.Warn("upstream requested disconnect", "reason", payload.Reason)

	if g.bus != nil {
		g.bus.Publish(eventbus.NewEvent(eventbus.EventUpstreamDisconnect, "gateway", payload))
	}

	return nil
}

// remoteClosed runs when the websocket drops without a local Teardown.
func (g *Gateway) remoteClosed() {
	g.logger.Warn("upstream closed the channel unexpectedly")

	if g.bus != nil {
		g.bus.PublishAsync(eventbus.NewEvent(eventbus.EventUpstreamDisconnect, "gateway", nil))
	}
}
