package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Message defines the generic structure for WS communication. Channel
// names the per-user stream ("alerts/new", "alerts/update",
// "alerts/statistics", "device/status").
type Message struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Hub tracks connected clients keyed by the identity the connection gate
// bound at handshake time, so pushes can target a single user.
type Hub struct {
	clients map[*Client]bool
	byUser  map[string]map[*Client]bool
	log     *zap.Logger
	mu      sync.RWMutex
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		byUser:  make(map[string]map[*Client]bool),
		log:     log,
	}
}

// Run blocks until ctx is cancelled, then closes every client session.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("websocket hub started")
	<-ctx.Done()

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.byUser = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	h.log.Info("websocket hub stopped")
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	sessions := h.byUser[client.userID]
	if sessions == nil {
		sessions = make(map[*Client]bool)
		h.byUser[client.userID] = sessions
	}
	sessions[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		if sessions := h.byUser[client.userID]; sessions != nil {
			delete(sessions, client)
			if len(sessions) == 0 {
				delete(h.byUser, client.userID)
			}
		}
		close(client.send)
	}
	h.mu.Unlock()
}

// SendToUser pushes a payload to every live session of one user. It is
// best-effort: a session with a full send buffer is skipped. The return
// value reports whether at least one session accepted the message.
func (h *Hub) SendToUser(userID, channel string, payload interface{}) bool {
	msg := Message{Channel: channel, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for client := range h.byUser[userID] {
		select {
		case client.send <- msg:
			delivered = true
		default:
			h.log.Warn("ws send buffer full, dropping message",
				zap.String("user_id", userID),
				zap.String("channel", channel),
				zap.String("session_id", client.sessionID))
		}
	}
	return delivered
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserConnected reports whether a user has at least one live session.
func (h *Hub) UserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}
