package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a seat-level identity shared by rooms, sessions and the matchmaking
// queue. Hands and elimination state live in the game session that owns them.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}
