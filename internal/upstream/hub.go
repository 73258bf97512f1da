package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
)

// Hub is the development stand-in for the bot process: it accepts channel
// peers, tracks which node identities registered over each channel, and
// fans injected events out to every connected peer. Real event filtering
// happens on the trigger side; the hub broadcasts indiscriminately just
// like the bot process does.
type Hub struct {
	peers      sync.Map // map[string]*Peer
	register   chan *Peer
	unregister chan string
	broadcast  chan []byte
	logger     *logging.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu            sync.Mutex
	registrations map[domain.ClientID]domain.RegistrationPayload

	framesSent     int64
	framesReceived int64
	startTime      time.Time
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		register:      make(chan *Peer, 100),
		unregister:    make(chan string, 100),
		broadcast:     make(chan []byte, 1000),
		registrations: make(map[domain.ClientID]domain.RegistrationPayload),
		logger:        logger,
		startTime:     time.Now(),
	}
}

func (h *Hub) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.run()
	h.logger.Info("upstream hub started")
	return nil
}

func (h *Hub) Stop() error {
	h.logger.Info("stopping upstream hub")
	h.cancel()
	h.wg.Wait()

	h.peers.Range(func(key, value any) bool {
		if peer, ok := value.(*Peer); ok {
			peer.Close()
		}
		return true
	})

	h.logger.Info("upstream hub stopped")
	return nil
}

func (h *Hub) Register(peer *Peer) error {
	select {
	case h.register <- peer:
		return nil
	case <-h.ctx.Done():
		return errors.New("hub context cancelled during registration")
	default:
		return errors.New("registration channel is full")
	}
}

func (h *Hub) Unregister(peerID string) error {
	select {
	case h.unregister <- peerID:
		return nil
	case <-h.ctx.Done():
		return errors.New("hub context cancelled during unregistration")
	default:
		return errors.New("unregistration channel is full")
	}
}

// Broadcast fans one frame out to every connected peer.
func (h *Hub) Broadcast(frame []byte) error {
	select {
	case h.broadcast <- frame:
		return nil
	case <-h.ctx.Done():
		return errors.New("hub context cancelled during broadcast")
	default:
		return errors.New("broadcast channel is full")
	}
}

// HandleFrame processes one control frame received from a peer.
func (h *Hub) HandleFrame(frame []byte) {
	atomic.AddInt64(&h.framesReceived, 1)

	var msg domain.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		h.logger.Error("failed to unmarshal frame", "error", err)
		return
	}

	switch msg.Type {
	case domain.MessageTypeRegistration:
		var payload domain.RegistrationPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.logger.Error("invalid registration frame", "error", err)
			return
		}
		h.mu.Lock()
		h.registrations[payload.ID] = payload
		h.mu.Unlock()
		h.logger.Info("node registered", "node_id", payload.ID, "active", payload.Active)

	case domain.MessageTypeDeregistration:
		var payload domain.DeregistrationPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.logger.Error("invalid deregistration frame", "error", err)
			return
		}
		h.mu.Lock()
		delete(h.registrations, payload.ID)
		h.mu.Unlock()
		h.logger.Info("node deregistered", "node_id", payload.ID)

	default:
		h.logger.Warn("unexpected frame from peer", "type", msg.Type)
	}
}

// Registrations returns a snapshot of the currently registered nodes.
func (h *Hub) Registrations() []domain.RegistrationPayload {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.RegistrationPayload, 0, len(h.registrations))
	for _, payload := range h.registrations {
		out = append(out, payload)
	}
	return out
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case peer := <-h.register:
			h.handleRegister(peer)

		case peerID := <-h.unregister:
			h.handleUnregister(peerID)

		case frame := <-h.broadcast:
			h.handleBroadcast(frame)
		}
	}
}

func (h *Hub) handleRegister(peer *Peer) {
	if _, exists := h.peers.Load(peer.ID()); exists {
		h.logger.Warn("peer already registered", "peer_id", peer.ID())
		return
	}

	h.peers.Store(peer.ID(), peer)

	h.logger.Info("peer connected",
		"peer_id", peer.ID(),
		"total_peers", h.peerCount(),
	)
}

func (h *Hub) handleUnregister(peerID string) {
	if peer, ok := h.peers.LoadAndDelete(peerID); ok {
		if p, ok := peer.(*Peer); ok {
			p.Close()
		}

		h.logger.Info("peer disconnected",
			"peer_id", peerID,
			"total_peers", h.peerCount(),
		)
	}
}

func (h *Hub) handleBroadcast(frame []byte) {
	var successCount, errorCount int

	h.peers.Range(func(key, value any) bool {
		if peer, ok := value.(*Peer); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := peer.Send(ctx, frame)
			cancel()

			if err != nil {
				errorCount++
				h.logger.Error("failed to send to peer",
					"peer_id", peer.ID(),
					"error", err,
				)
			} else {
				successCount++
				atomic.AddInt64(&h.framesSent, 1)
			}
		}
		return true
	})

	h.logger.Debug("broadcast complete",
		"success_count", successCount,
		"error_count", errorCount,
	)
}

func (h *Hub) peerCount() int {
	count := 0
	h.peers.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// Stats reports hub counters for diagnostics.
type Stats struct {
	ConnectedPeers  int     `json:"connected_peers"`
	RegisteredNodes int     `json:"registered_nodes"`
	FramesSent      int64   `json:"frames_sent"`
	FramesReceived  int64   `json:"frames_received"`
	Uptime          float64 `json:"uptime_seconds"`
}

func (h *Hub) GetStats() Stats {
	h.mu.Lock()
	registered := len(h.registrations)
	h.mu.Unlock()

	return Stats{
		ConnectedPeers:  h.peerCount(),
		RegisteredNodes: registered,
		FramesSent:      atomic.LoadInt64(&h.framesSent),
		FramesReceived:  atomic.LoadInt64(&h.framesReceived),
		Uptime:          time.Since(h.startTime).Seconds(),
	}
}
