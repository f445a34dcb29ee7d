package websocket

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"NetSentryAPI/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one authenticated realtime session. The identity resolved at
// handshake time stays bound for the session's entire lifetime.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan Message
	userID    string
	sessionID string
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs gates and upgrades a realtime connection attempt. A missing or
// invalid credential refuses the connection outright: no upgrade happens
// and no error payload is written.
func ServeWs(hub *Hub, gate *auth.Gate, w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	identity, err := gate.Authenticate(r)
	if err != nil {
		log.Warn("ws handshake refused", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("ws upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, 256),
		userID:    identity.UserID,
		sessionID: uuid.NewString(),
	}
	client.hub.register(client)
	go client.writePump()
	go func() {
		defer func() {
			client.hub.unregister(client)
			client.conn.Close()
		}()
		client.conn.SetReadLimit(maxMessageSize)
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		client.conn.SetPongHandler(func(string) error { client.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
		for {
			_, _, err := client.conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}
