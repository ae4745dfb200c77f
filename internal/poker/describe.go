package poker

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/liarspoker/internal/models"
)

// Describe renders d for the session log, e.g. "One Pair of 5s" or
// "Full House (Ks over 3s)".
func Describe(d *Declaration) string {
	if d == nil {
		return "nothing"
	}
	name := d.Type.Name()
	if len(d.Cards) == 0 {
		return name
	}
	switch d.Type {
	case HighCard:
		return fmt.Sprintf("%s (%s high)", name, d.Cards[0].Rank)
	case OnePair:
		return fmt.Sprintf("%s of %ss", name, rankName(groupValue(d.Cards, 2)))
	case TwoPair:
		if pairs := groupValues(d.Cards, 2); len(pairs) >= 2 {
			return fmt.Sprintf("%s of %ss and %ss", name, rankName(pairs[0]), rankName(pairs[1]))
		}
	case ThreeOfAKind:
		return fmt.Sprintf("%s of %ss", name, rankName(groupValue(d.Cards, 3)))
	case Straight:
		return fmt.Sprintf("%s to %s", name, highest(d.Cards).Rank)
	case Flush:
		return fmt.Sprintf("%s (%s)", name, d.Cards[0].Suit)
	case FullHouse:
		return fmt.Sprintf("%s (%ss over %ss)", name, rankName(groupValue(d.Cards, 3)), rankName(groupValue(d.Cards, 2)))
	case FourOfAKind:
		return fmt.Sprintf("%s of %ss", name, rankName(groupValue(d.Cards, 4)))
	}
	return name
}

func rankName(v int) string {
	if r, ok := models.RankForValue(v); ok {
		return string(r)
	}
	return "Unknown"
}

func highest(cards []models.Card) models.Card {
	sorted := append([]models.Card(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value() > sorted[j].Value() })
	return sorted[0]
}
