package upstream

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// Peer is one connected channel from a trigger process.
type Peer struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewPeer(id string, conn *websocket.Conn) *Peer {
	return &Peer{
		id:   id,
		conn: conn,
	}
}

func (p *Peer) ID() string {
	return p.id
}

func (p *Peer) Send(ctx context.Context, frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return errors.New("connection is closed")
	}

	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetWriteDeadline(deadline)
	}

	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return errors.New("connection is closed")
	}

	err := p.conn.Close()
	p.conn = nil
	return err
}
