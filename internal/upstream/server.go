package upstream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/logging"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

// Server exposes the dev upstream over HTTP: the channel endpoint plus an
// event-injection endpoint for exercising trigger clients locally.
type Server struct {
	hub      *Hub
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, logger *logging.Logger) *Server {
	return &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the chi router for the upstream endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", s.serveChannel)
	r.Post("/events", s.injectEvent)
	r.Get("/registrations", s.listRegistrations)
	r.Get("/stats", s.stats)
	return r
}

func (s *Server) serveChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	peer := NewPeer(xid.New().String(), conn)
	if err := s.hub.Register(peer); err != nil {
		s.logger.Error("failed to register peer", "error", err)
		conn.Close()
		return
	}

	go s.readLoop(peer, conn)
}

func (s *Server) readLoop(peer *Peer, conn *websocket.Conn) {
	defer s.hub.Unregister(peer.ID())

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("peer read error", "peer_id", peer.ID(), "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		s.hub.HandleFrame(frame)
	}
}

// injectEvent wraps the posted payload in an event envelope and fans it
// out to every connected channel.
func (s *Server) injectEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type domain.MessageType `json:"type"`
		Data json.RawMessage    `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if body.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	msg := domain.Message{
		ID:        xid.New().String(),
		Type:      body.Type,
		Timestamp: time.Now(),
		Data:      body.Data,
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.hub.Broadcast(frame); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": msg.ID})
}

func (s *Server) listRegistrations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.hub.Registrations())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.hub.GetStats())
}
