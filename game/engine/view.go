package engine

import "time"

// CardView is the client-facing shape of a card. Symbol and Image are
// only populated once the card is face-up or matched, so a client can
// never learn hidden pairings from a state snapshot.
type CardView struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol,omitempty"`
	Image     string `json:"image,omitempty"`
	Flipped   bool   `json:"isFlipped"`
	Matched   bool   `json:"isMatched"`
	MatchedBy string `json:"matchedBy,omitempty"`
}

// View is the per-player snapshot broadcast to clients. Two players in
// the same session receive different views: IsYourTurn and Message are
// relative to the viewer.
type View struct {
	SessionID       string         `json:"gameId"`
	Status          Status         `json:"status"`
	Players         []Player       `json:"players"`
	Cards           []CardView     `json:"cards"`
	Scores          map[string]int `json:"scores"`
	CurrentPlayer   *Player        `json:"currentPlayer,omitempty"`
	IsYourTurn      bool           `json:"isYourTurn"`
	ProcessingMatch bool           `json:"isProcessingMatch"`
	Winner          string         `json:"winner,omitempty"`
	Message         string         `json:"message"`
}

// ViewFor builds the snapshot for one viewing player. Returns nil when
// the viewer is not part of the session.
func (s *Session) ViewFor(viewerID string) *View {
	if !s.HasPlayer(viewerID) {
		return nil
	}

	cards := make([]CardView, len(s.Cards))
	for i, c := range s.Cards {
		cv := CardView{
			ID:        c.ID,
			Flipped:   c.Flipped,
			Matched:   c.Matched,
			MatchedBy: c.MatchedBy,
		}
		if c.Flipped || c.Matched {
			cv.Symbol = c.Symbol
			cv.Image = c.Image
		}
		cards[i] = cv
	}

	scores := make(map[string]int, len(s.Scores))
	for id, score := range s.Scores {
		scores[id] = score
	}

	view := &View{
		SessionID:       s.ID,
		Status:          s.Status,
		Players:         append([]Player(nil), s.Players...),
		Cards:           cards,
		Scores:          scores,
		ProcessingMatch: s.ProcessingMatch,
		Winner:          s.Winner,
	}

	if current, ok := s.CurrentPlayer(); ok {
		view.CurrentPlayer = &current
		view.IsYourTurn = s.Status == StatusPlaying && current.ID == viewerID
	}
	view.Message = s.message(viewerID, view.IsYourTurn)

	return view
}

// wholeSeconds rounds a deliberation time to whole seconds for display.
func wholeSeconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
