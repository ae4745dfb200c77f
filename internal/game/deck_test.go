package game

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHasEveryCardOnce(t *testing.T) {
	d := NewDeck()
	require.Equal(t, 52, d.Remaining())

	seen := make(map[string]bool)
	for _, c := range d.cards {
		assert.True(t, c.Valid())
		key := c.String()
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
}

func TestShuffleIsAPermutation(t *testing.T) {
	d := NewDeck()
	before := make(map[models.Card]bool)
	for _, c := range d.cards {
		before[c] = true
	}

	d.Shuffle(rand.New(rand.NewSource(7)))
	require.Equal(t, 52, d.Remaining())
	for _, c := range d.cards {
		assert.True(t, before[c])
	}

	same := NewDeck()
	same.Shuffle(rand.New(rand.NewSource(7)))
	for i := range same.cards {
		assert.True(t, same.cards[i].Same(d.cards[i]), "same seed must give the same order")
	}
}

func TestDrawStopsAtEmpty(t *testing.T) {
	d := NewDeck()
	hand := d.Draw(5)
	assert.Len(t, hand, 5)
	assert.Equal(t, 47, d.Remaining())

	rest := d.Draw(100)
	assert.Len(t, rest, 47)
	assert.Equal(t, 0, d.Remaining())
	assert.Empty(t, d.Draw(1))
}
