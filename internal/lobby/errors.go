// internal/lobby/errors.go
package lobby

import "errors"

var (
	ErrRoomNotFound     = errors.New("Room not found")
	ErrRoomExists       = errors.New("Room code already in use")
	ErrGameInProgress   = errors.New("Game already in progress")
	ErrRoomFull         = errors.New("Room is full")
	ErrNotHost          = errors.New("Only the host can start the game")
	ErrNotEnoughPlayers = errors.New("Need at least 2 players")
	ErrGameNotStarted   = errors.New("Game has not started")
	ErrNotInRoom        = errors.New("Player is not in a room")
)
