// Package websocket is the connection gateway between browser clients
// and the game service.
//
// Each connection starts anonymous and must authenticate before any
// game action is accepted. After authentication the connection is bound
// to a player id in the hub, and every state change in that player's
// game is pushed to all of their connections.
//
// Protocol:
//
// Messages are JSON objects with a "type" field. Inbound types are
// authenticate, create-game, join-game, flip-card, and leave-game; a
// dropped connection counts as leave-game once the player's last
// connection is gone. Outbound types are authenticated, game-created,
// game-joined, player-joined, player-left, game-state-updated,
// game-finished, and game-error.
//
// Views are per-player: the same broadcast delivers different payloads
// to the two session members (isYourTurn, message), and hidden cards
// never carry symbol information.
package websocket
