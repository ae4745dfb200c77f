// internal/lobby/lobby.go
package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/models"
)

// Status is where a room is in its lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Room is a group of players waiting for, playing, or done with a game.
// All fields are guarded by the owning Registry's lock.
type Room struct {
	Code      string
	HostID    uuid.UUID
	Settings  models.RoomSettings
	Players   []models.Player
	Status    Status
	CreatedAt time.Time

	session *game.Session
}

// RoomInfo is a point-in-time copy of a room, safe to hand to callers.
type RoomInfo struct {
	Code        string              `json:"code"`
	HostID      uuid.UUID           `json:"hostId"`
	Settings    models.RoomSettings `json:"settings"`
	Players     []models.Player     `json:"players"`
	PlayerCount int                 `json:"playerCount"`
	Status      Status              `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	SessionID   *uuid.UUID          `json:"sessionId,omitempty"`
}

func (r *Room) info() RoomInfo {
	players := make([]models.Player, len(r.Players))
	copy(players, r.Players)
	info := RoomInfo{
		Code:        r.Code,
		HostID:      r.HostID,
		Settings:    r.Settings,
		Players:     players,
		PlayerCount: len(players),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
	if r.session != nil {
		id := r.session.ID
		info.SessionID = &id
	}
	return info
}

func (r *Room) memberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) indexOf(playerID uuid.UUID) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) full() bool {
	return len(r.Players) >= r.Settings.MaxPlayers
}
