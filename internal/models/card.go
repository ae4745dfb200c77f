package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Rank is the face of a card as clients send it: "2".."10", "J", "Q", "K", "A".
type Rank string

// Suit is one of the four French suits, spelled out in lower case.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Ranks lists every rank in ascending order of value.
var Ranks = []Rank{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// Suits lists every suit in deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var rankValues = map[Rank]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 11, "Q": 12, "K": 13, "A": 14,
}

var suitSymbols = map[Suit]string{
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
	Spades:   "♠",
}

// Value returns the numeric value of the rank (2-10 literal, J=11 .. A=14), or 0 if unknown.
func (r Rank) Value() int {
	return rankValues[r]
}

// RankForValue maps a numeric value back to its rank. ok is false outside 2..14.
func RankForValue(v int) (Rank, bool) {
	if v < 2 || v > 14 {
		return "", false
	}
	return Ranks[v-2], true
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	_, ok := suitSymbols[s]
	return ok
}

// Card is a playing card. Two cards are the same card when rank and suit match;
// ID only exists so clients can key lists and never takes part in comparisons.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Rank Rank      `json:"rank"`
	Suit Suit      `json:"suit"`
}

// NewCard builds a card with a fresh ID.
func NewCard(rank Rank, suit Suit) Card {
	return Card{ID: uuid.New(), Rank: rank, Suit: suit}
}

// Value is shorthand for c.Rank.Value().
func (c Card) Value() int {
	return c.Rank.Value()
}

// Same reports whether c and o are the same physical card (rank and suit).
func (c Card) Same(o Card) bool {
	return c.Rank == o.Rank && c.Suit == o.Suit
}

// Valid reports whether both rank and suit are known.
func (c Card) Valid() bool {
	return c.Rank.Value() != 0 && c.Suit.Valid()
}

func (c Card) String() string {
	return string(c.Rank) + suitSymbols[c.Suit]
}

// ParseCard reads a card in "<rank>-<suit>" or "<rank><suit initial>" form,
// e.g. "10-hearts", "Qs", "ah". Used by the simulator and tests.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	var rank, suit string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		rank, suit = s[:i], strings.ToLower(s[i+1:])
	} else if len(s) >= 2 {
		rank, suit = s[:len(s)-1], strings.ToLower(s[len(s)-1:])
	}
	rank = strings.ToUpper(rank)
	switch suit {
	case "h":
		suit = string(Hearts)
	case "d":
		suit = string(Diamonds)
	case "c":
		suit = string(Clubs)
	case "s":
		suit = string(Spades)
	}
	c := Card{Rank: Rank(rank), Suit: Suit(suit)}
	if !c.Valid() {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	return c, nil
}
