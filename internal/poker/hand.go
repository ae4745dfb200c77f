// Package poker holds the declaration ranking table and the rules for
// whether one declared hand may follow another. It never classifies real
// hands; declared cards are only claims.
package poker

// HandType names a declarable poker hand.
type HandType string

const (
	HighCard      HandType = "HIGH_CARD"
	OnePair       HandType = "ONE_PAIR"
	TwoPair       HandType = "TWO_PAIR"
	ThreeOfAKind  HandType = "THREE_OF_A_KIND"
	Straight      HandType = "STRAIGHT"
	Flush         HandType = "FLUSH"
	FullHouse     HandType = "FULL_HOUSE"
	FourOfAKind   HandType = "FOUR_OF_A_KIND"
	StraightFlush HandType = "STRAIGHT_FLUSH"
	RoyalFlush    HandType = "ROYAL_FLUSH"
)

type handInfo struct {
	rank  int
	cards int
	name  string
}

var hands = map[HandType]handInfo{
	HighCard:      {1, 1, "High Card"},
	OnePair:       {2, 2, "One Pair"},
	TwoPair:       {3, 4, "Two Pair"},
	ThreeOfAKind:  {4, 3, "Three of a Kind"},
	Straight:      {5, 5, "Straight"},
	Flush:         {6, 5, "Flush"},
	FullHouse:     {7, 5, "Full House"},
	FourOfAKind:   {8, 4, "Four of a Kind"},
	StraightFlush: {9, 5, "Straight Flush"},
	RoyalFlush:    {10, 5, "Royal Flush"},
}

// HandTypes lists all hand types from weakest to strongest.
var HandTypes = []HandType{
	HighCard, OnePair, TwoPair, ThreeOfAKind, Straight,
	Flush, FullHouse, FourOfAKind, StraightFlush, RoyalFlush,
}

// Valid reports whether h is one of the ten known hand types.
func (h HandType) Valid() bool {
	_, ok := hands[h]
	return ok
}

// Rank is the position of h in the ranking table (1 = HIGH_CARD .. 10 = ROYAL_FLUSH), 0 if unknown.
func (h HandType) Rank() int {
	return hands[h].rank
}

// RequiredCards is how many cards a declaration of h must assert.
func (h HandType) RequiredCards() int {
	return hands[h].cards
}

// Name is the display name, e.g. "Full House".
func (h HandType) Name() string {
	if info, ok := hands[h]; ok {
		return info.name
	}
	return string(h)
}
