// internal/models/house_rules.go
package models

import (
	"errors"
	"fmt"
)

// Game modes a room can be created with.
const (
	ModeStandard   = "standard"
	ModeQuick      = "quick"
	ModeTournament = "tournament"
)

// HouseRules captures the per-mode numbers a session plays by.
type HouseRules struct {
	// InitialCards is how many cards every player is dealt at the start.
	InitialCards int `json:"initialCards"`

	// EliminationThreshold is the hand size at which a player is knocked out.
	EliminationThreshold int `json:"eliminationThreshold"`

	Description string `json:"description"`
}

var gameModes = map[string]HouseRules{
	ModeStandard: {
		InitialCards:         2,
		EliminationThreshold: 6,
		Description:          "Standard game with 2 initial cards. Eliminated at 6+ cards.",
	},
	ModeQuick: {
		InitialCards:         3,
		EliminationThreshold: 5,
		Description:          "Quick game with 3 initial cards. Eliminated at 5+ cards.",
	},
	ModeTournament: {
		InitialCards:         2,
		EliminationThreshold: 7,
		Description:          "Tournament mode with 2 initial cards. Eliminated at 7+ cards.",
	},
}

// ErrInvalidGameMode is returned for a mode name that is not configured.
var ErrInvalidGameMode = errors.New("invalid game mode")

// RulesForMode returns the house rules for mode. An empty mode means standard.
func RulesForMode(mode string) (HouseRules, error) {
	if mode == "" {
		mode = ModeStandard
	}
	r, ok := gameModes[mode]
	if !ok {
		return HouseRules{}, fmt.Errorf("%w: %q", ErrInvalidGameMode, mode)
	}
	return r, nil
}
