package poker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jason-s-yu/liarspoker/internal/models"
)

var (
	ErrInvalidHandType = errors.New("invalid hand type")
	ErrWrongCardCount  = errors.New("wrong number of cards for hand type")
	ErrInvalidCard     = errors.New("each card must have a valid rank and suit")
	ErrMustNotDecrease = errors.New("new declaration must be a higher hand type or same type with higher value")
	ErrMustExceedValue = errors.New("for same hand type, new declaration must have higher value")
)

// Declaration is a public claim of a hand type plus the cards asserted to exist
// somewhere across all hands. The asserted cards need not be anyone's.
type Declaration struct {
	Type  HandType      `json:"type"`
	Cards []models.Card `json:"cards"`
}

// Validate checks candidate's shape and, when previous is non-nil, that it
// outranks previous. It has no side effects.
func Validate(candidate Declaration, previous *Declaration) error {
	if !candidate.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidHandType, candidate.Type)
	}
	if want := candidate.Type.RequiredCards(); len(candidate.Cards) != want {
		return fmt.Errorf("%w: %s requires exactly %d cards, got %d", ErrWrongCardCount, candidate.Type, want, len(candidate.Cards))
	}
	for _, c := range candidate.Cards {
		if !c.Valid() {
			return fmt.Errorf("%w: %q of %q", ErrInvalidCard, c.Rank, c.Suit)
		}
	}
	if previous == nil {
		return nil
	}

	prevRank, newRank := previous.Type.Rank(), candidate.Type.Rank()
	switch {
	case newRank > prevRank:
		return nil
	case newRank < prevRank:
		return ErrMustNotDecrease
	}
	if TieBreakValue(candidate) <= TieBreakValue(*previous) {
		return ErrMustExceedValue
	}
	return nil
}

// TieBreakValue is the number compared between two declarations of the same type.
//
// Straights, flushes and high card use the highest asserted card. Pairs, trips and
// quads use the rank that repeats the required number of times; a full house uses
// its triplet and two pair its higher pair. A declaration missing the expected
// group scores 0.
func TieBreakValue(d Declaration) int {
	switch d.Type {
	case OnePair:
		return groupValue(d.Cards, 2)
	case TwoPair:
		if pairs := groupValues(d.Cards, 2); len(pairs) > 0 {
			return pairs[0]
		}
		return 0
	case ThreeOfAKind, FullHouse:
		return groupValue(d.Cards, 3)
	case FourOfAKind:
		return groupValue(d.Cards, 4)
	default:
		return maxValue(d.Cards)
	}
}

func maxValue(cards []models.Card) int {
	best := 0
	for _, c := range cards {
		if v := c.Value(); v > best {
			best = v
		}
	}
	return best
}

func countValues(cards []models.Card) map[int]int {
	counts := make(map[int]int, len(cards))
	for _, c := range cards {
		counts[c.Value()]++
	}
	return counts
}

// groupValues returns, highest first, every value that appears exactly n times.
func groupValues(cards []models.Card, n int) []int {
	var out []int
	for v, cnt := range countValues(cards) {
		if cnt == n {
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func groupValue(cards []models.Card, n int) int {
	if vs := groupValues(cards, n); len(vs) > 0 {
		return vs[0]
	}
	return 0
}
