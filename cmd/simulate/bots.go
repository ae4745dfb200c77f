package main

import (
	"math/rand"

	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
)

// claims lists every declaration a bot might make, grouped by hand type and
// in ascending order within each type.
func claims() []poker.Declaration {
	var out []poker.Declaration
	suit := func(i int) models.Suit { return models.Suits[i%len(models.Suits)] }
	card := func(r models.Rank, i int) models.Card { return models.NewCard(r, suit(i)) }
	same := func(r models.Rank, n int) []models.Card {
		cs := make([]models.Card, n)
		for i := range cs {
			cs[i] = card(r, i)
		}
		return cs
	}
	run := func(from int, flush bool) []models.Card {
		cs := make([]models.Card, 5)
		for i := range cs {
			s := i
			if flush {
				s = 0
			}
			cs[i] = card(models.Ranks[from+i], s)
		}
		return cs
	}

	for _, r := range models.Ranks {
		out = append(out, poker.Declaration{Type: poker.HighCard, Cards: same(r, 1)})
	}
	for _, r := range models.Ranks {
		out = append(out, poker.Declaration{Type: poker.OnePair, Cards: same(r, 2)})
	}
	for hi := 1; hi < len(models.Ranks); hi++ {
		for lo := 0; lo < hi; lo++ {
			cs := append(same(models.Ranks[hi], 2), same(models.Ranks[lo], 2)...)
			out = append(out, poker.Declaration{Type: poker.TwoPair, Cards: cs})
		}
	}
	for _, r := range models.Ranks {
		out = append(out, poker.Declaration{Type: poker.ThreeOfAKind, Cards: same(r, 3)})
	}
	for from := 0; from+5 <= len(models.Ranks); from++ {
		out = append(out, poker.Declaration{Type: poker.Straight, Cards: run(from, false)})
	}
	for from := 0; from+5 <= len(models.Ranks); from++ {
		out = append(out, poker.Declaration{Type: poker.Flush, Cards: run(from, true)})
	}
	for i, r := range models.Ranks {
		pair := models.Ranks[(i+1)%len(models.Ranks)]
		out = append(out, poker.Declaration{Type: poker.FullHouse, Cards: append(same(r, 3), same(pair, 2)...)})
	}
	for _, r := range models.Ranks {
		out = append(out, poker.Declaration{Type: poker.FourOfAKind, Cards: same(r, 4)})
	}
	for from := 0; from+5 < len(models.Ranks); from++ {
		out = append(out, poker.Declaration{Type: poker.StraightFlush, Cards: run(from, true)})
	}
	out = append(out, poker.Declaration{Type: poker.RoyalFlush, Cards: run(len(models.Ranks)-5, true)})
	return out
}

// bot plays greedily: it bids just above the table and calls bluffs at a
// fixed rate.
type bot struct {
	rng        *rand.Rand
	challenge  float64
	candidates []poker.Declaration
}

func newBot(rng *rand.Rand, challenge float64) *bot {
	return &bot{rng: rng, challenge: challenge, candidates: claims()}
}

// next picks a declaration that beats current, or false if none can.
func (b *bot) next(current *poker.Declaration) (poker.Declaration, bool) {
	var valid []poker.Declaration
	for _, c := range b.candidates {
		if poker.Validate(c, current) == nil {
			valid = append(valid, c)
			if len(valid) == 3 {
				break
			}
		}
	}
	if len(valid) == 0 {
		return poker.Declaration{}, false
	}
	return valid[b.rng.Intn(len(valid))], true
}

// calls reports whether the bot challenges current.
func (b *bot) calls(current *poker.Declaration) bool {
	if _, ok := b.next(current); !ok {
		return true
	}
	return b.rng.Float64() < b.challenge
}
