package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/game/engine"
	"github.com/lorenzboss/m321-memory/game/service"
)

// IdentityVerifier resolves an auth token into a stable player
// identity. The gateway never authenticates itself; it only trusts what
// the verifier hands back.
type IdentityVerifier interface {
	Verify(token string) (engine.Player, error)
}

// ClientMessage is the inbound wire format.
type ClientMessage struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	GameID   string `json:"gameId,omitempty"`
	CardID   string `json:"cardId,omitempty"`
}

// ServerMessage is the outbound wire format. Fields are populated per
// message type.
type ServerMessage struct {
	Type     string         `json:"type"`
	Success  bool           `json:"success,omitempty"`
	GameID   string         `json:"gameId,omitempty"`
	State    *engine.View   `json:"state,omitempty"`
	Player   *engine.Player `json:"player,omitempty"`
	PlayerID string         `json:"playerId,omitempty"`
	Winner   *engine.Player `json:"winner,omitempty"`
	Scores   map[string]int `json:"scores,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Gateway binds live connections to player identities and translates
// between the client protocol and the game service.
type Gateway struct {
	hub      *Hub
	svc      service.GameService
	verifier IdentityVerifier
}

// NewGateway creates the gateway and its hub. Wire it back into the
// service with service.SetNotifier so deferred resolutions reach the
// clients.
func NewGateway(svc service.GameService, verifier IdentityVerifier) *Gateway {
	return &Gateway{
		hub:      NewHub(),
		svc:      svc,
		verifier: verifier,
	}
}

// Hub exposes the connection registry.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// ServeWS upgrades an HTTP request to a WebSocket connection.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     g.hub,
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}

	go client.writePump()
	go client.readPump()
}

// GameStateChanged implements service.Notifier: a deferred resolution
// fired, push fresh views to everyone in the game.
func (g *Gateway) GameStateChanged(gameID string) {
	g.broadcastGame(context.Background(), gameID)
}

// dispatch routes one inbound message.
func (g *Gateway) dispatch(c *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(c, "Invalid message")
		return
	}

	if msg.Type == "authenticate" {
		g.handleAuthenticate(c, msg)
		return
	}
	if !c.authenticated() {
		g.sendError(c, "Not authenticated")
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case "create-game":
		g.handleCreate(ctx, c)
	case "join-game":
		g.handleJoin(ctx, c, msg.GameID)
	case "flip-card":
		g.handleFlip(ctx, c, msg.CardID)
	case "leave-game":
		g.handleLeave(ctx, c)
	default:
		g.sendError(c, "Unknown message type")
	}
}

func (g *Gateway) handleAuthenticate(c *Client, msg ClientMessage) {
	var player engine.Player

	switch {
	case msg.Token != "" && g.verifier != nil:
		p, err := g.verifier.Verify(msg.Token)
		if err != nil {
			log.Warn().Err(err).Msg("socket authentication failed")
			g.send(c, ServerMessage{Type: "authenticated", Error: "Authentication failed"})
			c.conn.Close()
			return
		}
		player = p
	case g.verifier == nil && msg.PlayerID != "" && msg.Name != "":
		// No verifier configured (dev mode): trust the supplied identity.
		player = engine.Player{ID: msg.PlayerID, Name: msg.Name}
	default:
		g.send(c, ServerMessage{Type: "authenticated", Error: "Invalid credentials"})
		c.conn.Close()
		return
	}

	c.player = player
	g.hub.bind(c)
	g.send(c, ServerMessage{Type: "authenticated", Success: true, Player: &player})
	log.Info().Str("player_id", player.ID).Str("name", player.Name).Msg("player authenticated")
}

func (g *Gateway) handleCreate(ctx context.Context, c *Client) {
	gameID, view := g.svc.CreateGame(ctx, c.player)
	g.send(c, ServerMessage{Type: "game-created", GameID: gameID})
	if view != nil {
		g.send(c, ServerMessage{Type: "game-state-updated", GameID: gameID, State: view})
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, gameID string) {
	res := g.svc.JoinGame(ctx, gameID, c.player)
	if !res.Success {
		switch res.Reason {
		case service.JoinNotFound:
			g.sendError(c, "Game not found - please check the game PIN")
		case service.JoinFull:
			g.sendError(c, "Game is full - maximum 2 players allowed")
		case service.JoinAlreadyStarted:
			g.sendError(c, "Game has already started or finished")
		default:
			g.sendError(c, "Cannot join game")
		}
		return
	}

	g.send(c, ServerMessage{Type: "game-joined", GameID: gameID})

	// Tell the other member someone arrived, then push fresh views.
	joined := c.player
	for _, pv := range g.svc.GameViews(ctx, gameID) {
		if pv.Player.ID != c.player.ID {
			g.sendTo(pv.Player.ID, ServerMessage{Type: "player-joined", Player: &joined})
		}
	}
	g.broadcastGame(ctx, gameID)
}

func (g *Gateway) handleFlip(ctx context.Context, c *Client, cardID string) {
	view := g.svc.FlipCard(ctx, c.player.ID, cardID)
	if view == nil {
		g.sendError(c, "Invalid move")
		return
	}
	g.broadcastGame(ctx, view.SessionID)
}

func (g *Gateway) handleLeave(ctx context.Context, c *Client) {
	gameID, ok := g.svc.LeaveGame(ctx, c.player.ID)
	if !ok {
		return
	}

	left := c.player.ID
	for _, pv := range g.svc.GameViews(ctx, gameID) {
		g.sendTo(pv.Player.ID, ServerMessage{Type: "player-left", PlayerID: left})
	}
	g.broadcastGame(ctx, gameID)
}

// handleDisconnect treats a dropped connection like an explicit leave,
// but only once the player's last connection is gone.
func (g *Gateway) handleDisconnect(c *Client) {
	if !c.authenticated() {
		return
	}
	g.hub.unbind(c)
	if g.hub.Connected(c.player.ID) {
		return
	}
	g.handleLeave(context.Background(), c)
}

// broadcastGame sends every member their personal snapshot, plus the
// final result when the game has finished.
func (g *Gateway) broadcastGame(ctx context.Context, gameID string) {
	views := g.svc.GameViews(ctx, gameID)
	for _, pv := range views {
		g.sendTo(pv.Player.ID, ServerMessage{
			Type:   "game-state-updated",
			GameID: gameID,
			State:  pv.View,
		})
	}

	for _, pv := range views {
		if pv.View.Status != engine.StatusFinished || pv.View.Winner == "" {
			continue
		}
		var winner *engine.Player
		for i := range pv.View.Players {
			if pv.View.Players[i].ID == pv.View.Winner {
				winner = &pv.View.Players[i]
			}
		}
		g.sendTo(pv.Player.ID, ServerMessage{
			Type:   "game-finished",
			GameID: gameID,
			Winner: winner,
			Scores: pv.View.Scores,
		})
	}
}

func (g *Gateway) send(c *Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal server message")
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (g *Gateway) sendTo(playerID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal server message")
		return
	}
	g.hub.SendToPlayer(playerID, data)
}

func (g *Gateway) sendError(c *Client, message string) {
	g.send(c, ServerMessage{Type: "game-error", Error: message})
}
