package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/botmux/botmux/logging"
	"github.com/botmux/botmux/pkg/errors"
	ws "github.com/gorilla/websocket"
)

// conn wraps one live websocket connection with read/write pumps. The
// gateway owns at most one conn at a time.
type conn struct {
	ws       *ws.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *logging.Logger
	options  Options
	sendChan chan []byte
	receive  func(ctx context.Context, data []byte)
	onClose  func()
	mu       sync.RWMutex
	closed   bool
	dead     bool
	wg       sync.WaitGroup
}

func newConn(socket *ws.Conn, logger *logging.Logger, options Options, receive func(ctx context.Context, data []byte), onClose func()) *conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &conn{
		ws:       socket,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		options:  options,
		sendChan: make(chan []byte, options.SendBuffer),
		receive:  receive,
		onClose:  onClose,
	}
}

func (c *conn) start() {
	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
}

func (c *conn) send(ctx context.Context, message []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return errors.New(errors.ErrorTypeTransport, "CHANNEL_CLOSED", "channel is closed")
	}
	c.mu.RUnlock()

	select {
	case c.sendChan <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return errors.New(errors.ErrorTypeTransport, "CHANNEL_CLOSED", "channel is closed")
	default:
		return errors.New(errors.ErrorTypeTransport, "SEND_BUFFER_FULL", "send buffer is full")
	}
}

func (c *conn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.logger.Info("closing channel connection")

	c.cancel()

	if err := c.ws.Close(); err != nil {
		c.logger.Error("error closing websocket connection", "error", err)
	}

	c.wg.Wait()

	return nil
}

func (c *conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed || c.dead
}

// readPump pumps inbound frames into the gateway dispatcher.
func (c *conn) readPump() {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		closed := c.closed
		c.dead = true
		c.mu.Unlock()

		c.cancel()

		if !closed && c.onClose != nil {
			c.onClose()
		}
	}()

	c.ws.SetReadLimit(c.options.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			messageType, message, err := c.ws.ReadMessage()
			if err != nil {
				if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
					c.logger.Error("websocket read error", "error", err)
				}
				return
			}

			if messageType != ws.TextMessage && messageType != ws.BinaryMessage {
				continue
			}

			c.receive(c.ctx, message)
		}
	}
}

// writePump pumps queued frames out to the websocket connection.
func (c *conn) writePump() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message := <-c.sendChan:
			c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.ws.WriteMessage(ws.TextMessage, message); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.ws.WriteMessage(ws.PingMessage, nil); err != nil {
				c.logger.Error("websocket ping error", "error", err)
				return
			}
		}
	}
}
