package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound buffer per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is handled by the reverse proxy in front of us.
		return true
	},
}

// Client represents one WebSocket connection. A client is anonymous
// until it authenticates, after which it carries the player identity
// and is bound to that player in the hub.
type Client struct {
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	player  engine.Player
}

func (c *Client) authenticated() bool {
	return c.player.ID != ""
}

// Hub tracks which connections belong to which player so that
// per-player views can be delivered individually. A player may hold
// several connections (e.g. two tabs); all of them receive updates.
type Hub struct {
	mu      sync.RWMutex
	players map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		players: make(map[string]map[*Client]bool),
	}
}

// bind registers a client under its player id after authentication.
func (h *Hub) bind(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := client.player.ID
	if h.players[id] == nil {
		h.players[id] = make(map[*Client]bool)
	}
	h.players[id][client] = true

	log.Debug().
		Str("player_id", id).
		Int("connections", len(h.players[id])).
		Msg("client bound")
}

// unbind removes a client from the registry. Safe to call repeatedly
// and for never-authenticated clients. The send channel is never
// closed: concurrent senders hold references to the client, and a send
// on a closed channel would panic. Teardown happens through the socket
// instead; once it closes, both pumps exit.
func (h *Hub) unbind(client *Client) {
	if !client.authenticated() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := client.player.ID
	clients, ok := h.players[id]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.players, id)
	}

	log.Debug().
		Str("player_id", id).
		Int("remaining", len(clients)).
		Msg("client unbound")
}

// SendToPlayer delivers a payload to every connection of one player.
func (h *Hub) SendToPlayer(playerID string, data []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, 2)
	for client := range h.players[playerID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// Send buffer full, drop the connection. Closing the socket
			// lets the pumps tear down in their own goroutines.
			h.unbind(client)
			if client.conn != nil {
				client.conn.Close()
			}
		}
	}
}

// Connected reports whether the player has at least one live connection.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.players[playerID]) > 0
}

// readPump pumps messages from the WebSocket connection to the gateway.
func (c *Client) readPump() {
	defer func() {
		c.gateway.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
		c.gateway.dispatch(c, data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
