package events

import (
	"context"
	"time"
)

// GameStarted is published when a session transitions to playing.
type GameStarted struct {
	MatchID   string    `json:"matchId"`
	Players   []string  `json:"players"`
	Timestamp time.Time `json:"timestamp"`
}

// GameMove is published after every match resolution, hit or miss.
// Card fields are board positions, not card ids.
type GameMove struct {
	MatchID        string    `json:"matchId"`
	Player         string    `json:"player"`
	FlippedCard1   int       `json:"flippedCard1"`
	FlippedCard2   int       `json:"flippedCard2"`
	Match          bool      `json:"match"`
	RemainingPairs int       `json:"remainingPairs"`
	Timestamp      time.Time `json:"timestamp"`
}

// PlayerStat is one player's final line in a GameEnded event. Time is
// deliberation time in whole seconds, normalized to the range
// [1, duration-1].
type PlayerStat struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Time     int    `json:"time"`
}

// GameEnded is published when a session finishes. Duration is the full
// match length in seconds.
type GameEnded struct {
	MatchID     string       `json:"matchId"`
	Winner      string       `json:"winner"`
	PlayerStats []PlayerStat `json:"playerStats"`
	Duration    int          `json:"duration"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Publisher is the outbound capability the game service uses to notify
// downstream consumers (stats aggregation, log archival). Publishing is
// best-effort: the caller logs failures and moves on, game state is
// never affected.
type Publisher interface {
	PublishStart(ctx context.Context, event GameStarted) error
	PublishMove(ctx context.Context, event GameMove) error
	PublishEnd(ctx context.Context, event GameEnded) error
}

// NopPublisher discards all events. Used in tests and when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishStart(context.Context, GameStarted) error { return nil }
func (NopPublisher) PublishMove(context.Context, GameMove) error     { return nil }
func (NopPublisher) PublishEnd(context.Context, GameEnded) error     { return nil }
