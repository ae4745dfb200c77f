package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
)

// GameEventType names a notification a session emits after a committed transition.
type GameEventType string

const (
	EventGameStarted  GameEventType = "game_started"
	EventGameUpdate   GameEventType = "game_update"
	EventGameRoundEnd GameEventType = "game_round_end"
	EventGameOver     GameEventType = "game_over"

	// EventPrivateHand carries one player's own cards and is only ever sent to that player.
	EventPrivateHand GameEventType = "private_hand"
)

// GameEvent is the envelope handed to BroadcastFn and BroadcastToPlayerFn.
type GameEvent struct {
	Type     GameEventType `json:"type"`
	RoomCode string        `json:"roomCode,omitempty"`
	State    *PublicState  `json:"state,omitempty"`
	Hand     []models.Card `json:"hand,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RoundResult describes how a challenge was settled. It is the payload of
// game_round_end, with every hand revealed as it stood before the penalty.
type RoundResult struct {
	Round             int                         `json:"round"`
	Declaration       *poker.Declaration          `json:"declaration"`
	DeclarerID        uuid.UUID                   `json:"declarerId"`
	ChallengerID      uuid.UUID                   `json:"challengerId"`
	DeclarationExists bool                        `json:"declarationExists"`
	LoserID           uuid.UUID                   `json:"loserId"`
	PenaltyCard       bool                        `json:"penaltyCard"`
	Eliminated        bool                        `json:"eliminated"`
	Revealed          map[uuid.UUID][]models.Card `json:"revealed"`
}

// OnGameEndFunc is invoked once, after the session reaches game over. winner is
// uuid.Nil when nobody is left.
type OnGameEndFunc func(roomCode string, winner uuid.UUID)

// fireEvent queues a public event for dispatch once the current action commits.
// Assumes the lock is held.
func (s *Session) fireEvent(ev GameEvent) {
	ev.RoomCode = s.RoomCode
	s.pending = append(s.pending, pendingEvent{ev: ev})
}

// fireEventToPlayer queues a private event. Assumes the lock is held.
func (s *Session) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	ev.RoomCode = s.RoomCode
	s.pending = append(s.pending, pendingEvent{to: playerID, ev: ev})
}

type pendingEvent struct {
	to uuid.UUID
	ev GameEvent
}

// dispatch delivers events drained from a committed action. It must be called
// without the lock; delivery never affects session state.
func (s *Session) dispatch(events []pendingEvent, ended bool, winner uuid.UUID) {
	for _, p := range events {
		if p.to == uuid.Nil {
			if s.BroadcastFn != nil {
				s.BroadcastFn(p.ev)
			}
			continue
		}
		if s.BroadcastToPlayerFn != nil {
			s.BroadcastToPlayerFn(p.to, p.ev)
		}
	}
	if ended && s.OnGameEnd != nil {
		s.OnGameEnd(s.RoomCode, winner)
	}
}
