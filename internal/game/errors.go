package game

import "errors"

var (
	ErrNotYourTurn                   = errors.New("not your turn")
	ErrWrongPhase                    = errors.New("action not allowed in the current phase")
	ErrCannotChallengeOwnDeclaration = errors.New("you cannot challenge your own declaration")
	ErrCannotPassOwnDeclaration      = errors.New("you cannot pass on your own declaration")
	ErrPlayerNotFound                = errors.New("player not found in this game")
	ErrPlayerEliminated              = errors.New("player has been eliminated")
	ErrNotEnoughPlayers              = errors.New("need at least 2 players")
	ErrDuplicatePlayer               = errors.New("player is already seated")
	ErrInvalidRequest                = errors.New("invalid request")
)
