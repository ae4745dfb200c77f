package game

import (
	"math/rand"

	"github.com/jason-s-yu/liarspoker/internal/models"
)

// Deck is an ordered pile of cards drawn from the front.
type Deck struct {
	cards []models.Card
}

// NewDeck returns the 52 unique cards, suit by suit, in rank order.
func NewDeck() *Deck {
	cards := make([]models.Card, 0, len(models.Suits)*len(models.Ranks))
	for _, s := range models.Suits {
		for _, r := range models.Ranks {
			cards = append(cards, models.NewCard(r, s))
		}
	}
	return &Deck{cards: cards}
}

// Shuffle permutes the remaining cards in place (Fisher-Yates).
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes up to n cards from the front. Fewer are returned when the deck runs short.
func (d *Deck) Draw(n int) []models.Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	drawn := make([]models.Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn
}

// Remaining is the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
