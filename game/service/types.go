package service

import "github.com/lorenzboss/m321-memory/game/engine"

// JoinReason classifies why a join attempt was rejected. The 4-digit
// code is user-entered, so the gateway surfaces the specific reason.
type JoinReason string

const (
	JoinOK             JoinReason = "ok"
	JoinNotFound       JoinReason = "not_found"
	JoinFull           JoinReason = "full"
	JoinAlreadyStarted JoinReason = "already_started"
)

// JoinResult is the outcome of a join attempt.
type JoinResult struct {
	Success bool
	Reason  JoinReason
	View    *engine.View
}

// PlayerView pairs a session member with their personal snapshot, used
// when broadcasting one update to everyone in a game.
type PlayerView struct {
	Player engine.Player
	View   *engine.View
}
