package engine

import "fmt"

// message derives the human-readable status line for one viewer. The
// finished wording distinguishes outright results from time tie-breaks.
func (s *Session) message(viewerID string, isYourTurn bool) string {
	switch s.Status {
	case StatusWaiting:
		return "Waiting for another player to join..."

	case StatusPlaying:
		if isYourTurn {
			return "Your turn!"
		}
		if current, ok := s.CurrentPlayer(); ok {
			return fmt.Sprintf("Waiting for %s...", current.Name)
		}
		return "Waiting for opponent..."

	case StatusFinished:
		return s.finishedMessage(viewerID)
	}
	return ""
}

func (s *Session) finishedMessage(viewerID string) string {
	if s.Winner == "" {
		return "Game finished!"
	}

	viewerScore := s.Scores[viewerID]
	won := s.Winner == viewerID

	if len(s.Players) < 2 {
		if won {
			return "You won! Your opponent left the game."
		}
		return "Game finished!"
	}

	var opponent Player
	for _, p := range s.Players {
		if p.ID != viewerID {
			opponent = p
		}
	}

	if s.ScoreTie() {
		viewerTime := wholeSeconds(s.PlayerTotalTime[viewerID])
		opponentTime := wholeSeconds(s.PlayerTotalTime[opponent.ID])
		if won {
			return fmt.Sprintf("You won! Both found %d matches, but you were faster (%ds vs %ds)!",
				viewerScore, viewerTime, opponentTime)
		}
		return fmt.Sprintf("You lost! Both found %d matches, but your opponent was faster (%ds vs %ds)!",
			viewerScore, opponentTime, viewerTime)
	}

	if won {
		return fmt.Sprintf("You won! You found %d matches!", viewerScore)
	}
	return fmt.Sprintf("You lost! You found %d matches, your opponent found %d!",
		viewerScore, s.Scores[opponent.ID])
}
