package engine

import (
	"time"

	"github.com/lorenzboss/m321-memory/game/deck"
)

// Status represents the lifecycle state of a session. Transitions only
// ever move forward: waiting -> playing -> finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"

	// MaxPlayers is the fixed session capacity.
	MaxPlayers = 2
)

// Player is the identity handed in by the gateway at join time. The
// engine never mutates it, it only keys game state off the ID.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the authoritative state of one two-player match. All
// mutation goes through the methods in this package; callers are
// responsible for serializing access (see game/service).
type Session struct {
	ID                 string
	Players            []Player
	Cards              []*deck.Card
	CurrentPlayerIndex int
	Status             Status

	// FlippedCards holds the ids of the currently face-up, unmatched
	// cards. Length is always 0, 1, or 2.
	FlippedCards []string

	Scores map[string]int

	// ProcessingMatch is true exactly while two cards are face-up
	// awaiting the deferred resolution. Flips are rejected while set.
	ProcessingMatch bool

	// PlayerTotalTime accumulates deliberation time per player. It only
	// accrues for the player holding the turn.
	PlayerTotalTime      map[string]time.Duration
	CurrentTurnStartTime time.Time

	CreatedAt    time.Time
	LastActivity time.Time
	StartTime    time.Time
	FinishTime   time.Time

	// Winner is the player id, set when Status becomes finished.
	Winner string
}

// NewSession creates a waiting session owned by the creating player.
func NewSession(id string, creator Player, cards []*deck.Card, now time.Time) *Session {
	return &Session{
		ID:              id,
		Players:         []Player{creator},
		Cards:           cards,
		Status:          StatusWaiting,
		FlippedCards:    []string{},
		Scores:          map[string]int{creator.ID: 0},
		PlayerTotalTime: make(map[string]time.Duration),
		CreatedAt:       now,
		LastActivity:    now,
	}
}

// HasPlayer reports whether the given player id is part of the session.
func (s *Session) HasPlayer(playerID string) bool {
	for _, p := range s.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// PlayerByID returns the player with the given id, if present.
func (s *Session) PlayerByID(playerID string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

// CurrentPlayer returns the player whose turn it is.
func (s *Session) CurrentPlayer() (Player, bool) {
	if len(s.Players) == 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// CardByID returns the card with the given id, if present.
func (s *Session) CardByID(cardID string) (*deck.Card, bool) {
	for _, c := range s.Cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return nil, false
}

// CardPosition returns the stable board position of a card, or -1.
func (s *Session) CardPosition(cardID string) int {
	for i, c := range s.Cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// RemainingPairs counts the pairs not yet matched.
func (s *Session) RemainingPairs() int {
	unmatched := 0
	for _, c := range s.Cards {
		if !c.Matched {
			unmatched++
		}
	}
	return unmatched / 2
}

// Idle reports whether the session has seen no activity within maxAge.
func (s *Session) Idle(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastActivity) > maxAge
}
