package engine

import "time"

// Resolution describes the outcome of evaluating a completed pair of
// flips. It carries everything downstream consumers (broadcasts,
// lifecycle events) need without reaching back into the session.
type Resolution struct {
	Player         Player
	CardPositions  [2]int
	Match          bool
	RemainingPairs int
	Finished       bool
}

// AddPlayer adds a second player to a waiting session. Re-joining with
// an id that is already present is idempotent and reports success.
// Returns false when the session is full or no longer waiting.
func (s *Session) AddPlayer(p Player, now time.Time) bool {
	if s.Status != StatusWaiting {
		return false
	}
	if s.HasPlayer(p.ID) {
		s.LastActivity = now
		return true
	}
	if len(s.Players) >= MaxPlayers {
		return false
	}

	s.Players = append(s.Players, p)
	s.Scores[p.ID] = 0
	s.LastActivity = now
	return true
}

// Full reports whether the session has reached player capacity.
func (s *Session) Full() bool {
	return len(s.Players) >= MaxPlayers
}

// Start transitions the session to playing. firstPlayer selects whose
// turn it is initially; the caller picks it at random.
func (s *Session) Start(firstPlayer int, now time.Time) {
	s.Status = StatusPlaying
	s.StartTime = now
	for _, p := range s.Players {
		s.PlayerTotalTime[p.ID] = 0
	}
	s.CurrentPlayerIndex = firstPlayer % len(s.Players)
	s.CurrentTurnStartTime = now
	s.LastActivity = now
}

// Flip reveals a face-down card for the acting player. It returns false
// without mutating anything when the move is illegal: wrong status, a
// resolution is pending, it is not the player's turn, the card is
// unknown, already flipped, or already matched.
func (s *Session) Flip(playerID, cardID string, now time.Time) bool {
	if s.Status != StatusPlaying || s.ProcessingMatch {
		return false
	}

	current, ok := s.CurrentPlayer()
	if !ok || current.ID != playerID {
		return false
	}

	card, ok := s.CardByID(cardID)
	if !ok || card.Flipped || card.Matched {
		return false
	}

	card.Flipped = true
	s.FlippedCards = append(s.FlippedCards, cardID)
	if len(s.FlippedCards) == 2 {
		s.ProcessingMatch = true
	}

	s.LastActivity = now
	return true
}

// Resolve evaluates the two currently flipped cards. It is invoked by
// the resolution scheduler after the flip delay. It is a no-op unless
// the session is still playing with exactly two cards flipped: the
// timer may fire after the acting player forfeited and the session
// already finished, and a stray timer must not corrupt state.
//
// On a match both cards stay up, the acting player scores and keeps the
// turn. On a miss both cards go back down and the turn passes. Either
// way the flip buffer and the processing lock are cleared, and if every
// card is now matched the session finishes with a winner.
func (s *Session) Resolve(now time.Time) *Resolution {
	if s.Status != StatusPlaying || len(s.FlippedCards) != 2 {
		return nil
	}

	s.accrueTurnTime(now)

	card1, ok1 := s.CardByID(s.FlippedCards[0])
	card2, ok2 := s.CardByID(s.FlippedCards[1])
	if !ok1 || !ok2 {
		return nil
	}

	current, _ := s.CurrentPlayer()
	res := &Resolution{
		Player: current,
		CardPositions: [2]int{
			s.CardPosition(card1.ID),
			s.CardPosition(card2.ID),
		},
		Match: card1.Symbol == card2.Symbol,
	}

	if res.Match {
		card1.Matched = true
		card2.Matched = true
		card1.MatchedBy = current.ID
		card2.MatchedBy = current.ID
		s.Scores[current.ID]++
		// Match grants another turn; only the clock restarts.
		s.CurrentTurnStartTime = now
	} else {
		card1.Flipped = false
		card2.Flipped = false
		s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
		s.CurrentTurnStartTime = now
	}

	s.FlippedCards = s.FlippedCards[:0]
	s.ProcessingMatch = false
	res.RemainingPairs = s.RemainingPairs()

	if res.RemainingPairs == 0 {
		s.Status = StatusFinished
		s.FinishTime = now
		s.Winner = s.determineWinner()
		res.Finished = true
	}

	s.LastActivity = now
	return res
}

// accrueTurnTime charges the elapsed turn time to the active player.
func (s *Session) accrueTurnTime(now time.Time) {
	current, ok := s.CurrentPlayer()
	if !ok || s.CurrentTurnStartTime.IsZero() {
		return
	}
	s.PlayerTotalTime[current.ID] += now.Sub(s.CurrentTurnStartTime)
}

// determineWinner picks the winner of a completed game: higher score
// first, then lower total deliberation time, then join order.
func (s *Session) determineWinner() string {
	if len(s.Players) == 0 {
		return ""
	}
	if len(s.Players) == 1 {
		return s.Players[0].ID
	}

	a, b := s.Players[0], s.Players[1]
	scoreA, scoreB := s.Scores[a.ID], s.Scores[b.ID]
	if scoreA != scoreB {
		if scoreB > scoreA {
			return b.ID
		}
		return a.ID
	}

	if s.PlayerTotalTime[b.ID] < s.PlayerTotalTime[a.ID] {
		return b.ID
	}
	return a.ID
}

// ScoreTie reports whether the game ended with equal scores, meaning
// the winner was decided on deliberation time.
func (s *Session) ScoreTie() bool {
	if len(s.Players) < 2 {
		return false
	}
	return s.Scores[s.Players[0].ID] == s.Scores[s.Players[1].ID]
}

// RemovePlayer takes a player out of the session and returns how many
// remain. A departure mid-game forfeits the match: the session finishes
// immediately and the remaining player is declared winner.
func (s *Session) RemovePlayer(playerID string, now time.Time) int {
	kept := s.Players[:0]
	for _, p := range s.Players {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	s.Players = kept
	delete(s.Scores, playerID)
	s.LastActivity = now

	if len(s.Players) == 0 {
		return 0
	}

	s.CurrentPlayerIndex = 0
	if s.Status != StatusFinished {
		s.Status = StatusFinished
		s.FinishTime = now
		s.Winner = s.Players[0].ID
	}
	// Abandon any pending resolution; the scheduled timer finds a
	// finished session and backs off.
	s.FlippedCards = s.FlippedCards[:0]
	s.ProcessingMatch = false
	return len(s.Players)
}
