package deck

import (
	"math/rand"

	"github.com/google/uuid"
)

const (
	// PairCount is the number of distinct symbols per deck.
	PairCount = 8

	// Size is the total number of cards in a generated deck.
	Size = PairCount * 2
)

// Card is a single memory card. Symbol and Image identify the pair; the
// ID is an opaque handle so clients cannot infer pairings from it.
type Card struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Image     string `json:"image"`
	Flipped   bool   `json:"isFlipped"`
	Matched   bool   `json:"isMatched"`
	MatchedBy string `json:"matchedBy,omitempty"`
}

// Generate builds a fresh deck: PairCount distinct symbols drawn without
// replacement from the catalog, two cards each, in random order. Card
// positions are stable for the lifetime of a session; only Flipped,
// Matched, and MatchedBy mutate afterwards.
func Generate() []*Card {
	picks := rand.Perm(len(catalog))[:PairCount]

	cards := make([]*Card, 0, Size)
	for _, idx := range picks {
		sym := catalog[idx]
		for i := 0; i < 2; i++ {
			cards = append(cards, &Card{
				ID:     uuid.NewString(),
				Symbol: sym.Name,
				Image:  sym.Image,
			})
		}
	}

	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return cards
}
