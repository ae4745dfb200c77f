// internal/models/lobby.go
package models

import (
	"errors"
	"regexp"
	"strings"
)

const (
	MinPlayers        = 2
	MaxPlayers        = 8
	DefaultMaxPlayers = 4

	UsernameMinLength = 2
	UsernameMaxLength = 20

	RoomCodeLength = 6
)

var (
	ErrInvalidMaxPlayers = errors.New("max players must be between 2 and 8")
	ErrInvalidUsername   = errors.New("username must be between 2 and 20 characters")
	ErrInvalidRoomCode   = errors.New("room code must be exactly 6 letters or numbers")
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// RoomSettings are the options a host picks when opening a room.
type RoomSettings struct {
	MaxPlayers int    `json:"maxPlayers"`
	GameMode   string `json:"gameMode"`
	IsPrivate  bool   `json:"isPrivate"`
}

// Normalize fills defaults and validates the settings in place.
func (s *RoomSettings) Normalize() error {
	if s.MaxPlayers == 0 {
		s.MaxPlayers = DefaultMaxPlayers
	}
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayers {
		return ErrInvalidMaxPlayers
	}
	if s.GameMode == "" {
		s.GameMode = ModeStandard
	}
	if _, err := RulesForMode(s.GameMode); err != nil {
		return err
	}
	return nil
}

// NormalizeUsername trims the name and checks its length.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < UsernameMinLength || n > UsernameMaxLength {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// NormalizeRoomCode upper-cases a user-typed room code and validates its shape.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !roomCodePattern.MatchString(code) {
		return "", ErrInvalidRoomCode
	}
	return code, nil
}
