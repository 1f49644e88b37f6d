package service

import (
	"context"

	"github.com/lorenzboss/m321-memory/game/engine"
)

// GameService defines all game operations invoked by the connection
// gateway. Expected rejections (not your turn, game full, unknown code)
// come back as nil views or typed results, never as errors.
type GameService interface {
	// CreateGame starts a new waiting session owned by the player and
	// returns its shareable code plus the creator's initial view.
	CreateGame(ctx context.Context, player engine.Player) (string, *engine.View)

	// JoinGame adds the player to an existing session. The result
	// carries a typed reason on failure so the gateway can tell the
	// user whether the code was wrong, the game full, or under way.
	JoinGame(ctx context.Context, gameID string, player engine.Player) JoinResult

	// FlipCard attempts a flip in the player's current game. Returns
	// nil on any rejected move.
	FlipCard(ctx context.Context, playerID, cardID string) *engine.View

	// LeaveGame removes the player from their game. Returns the game id
	// the player left, or false if they were not in one.
	LeaveGame(ctx context.Context, playerID string) (string, bool)

	// GetView returns the player-relative snapshot, or nil if the game
	// or player is unknown.
	GetView(ctx context.Context, gameID, playerID string) *engine.View

	// GameViews returns one snapshot per session member, for fan-out.
	GameViews(ctx context.Context, gameID string) []PlayerView

	// CleanupIdleSessions evicts sessions idle beyond the configured
	// threshold and returns how many were removed.
	CleanupIdleSessions(ctx context.Context) int
}

// Notifier is implemented by the gateway. The service calls it when
// game state changes outside a direct client call, i.e. after a
// deferred match resolution fires.
type Notifier interface {
	GameStateChanged(gameID string)
}
