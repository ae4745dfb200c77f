// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
)

// PlayerState is what everyone may know about a seated player.
type PlayerState struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	HandSize   int         `json:"handSize"`
	InGame     bool        `json:"inGame"`
	Left       bool        `json:"left,omitempty"`
	LastAction *LastAction `json:"lastAction"`
}

// PublicState is the session as any observer may see it. No hand contents.
type PublicState struct {
	SessionID          uuid.UUID          `json:"sessionId"`
	RoomCode           string             `json:"roomCode,omitempty"`
	Rules              models.HouseRules  `json:"rules"`
	Phase              Phase              `json:"phase"`
	CurrentPlayerID    uuid.UUID          `json:"currentPlayerId"`
	DealerPlayerID     uuid.UUID          `json:"dealerPlayerId"`
	Players            []PlayerState      `json:"players"`
	CurrentDeclaration *poker.Declaration `json:"currentDeclaration"`
	LastChallenger     *uuid.UUID         `json:"lastChallenger"`
	RoundNumber        int                `json:"roundNumber"`
	RemainingPlayers   int                `json:"remainingPlayers"`
	DeckRemaining      int                `json:"deckRemaining"`
	WinnerID           *uuid.UUID         `json:"winnerId,omitempty"`
	Log                []LogEntry         `json:"log"`
}

// PlayerView is the public state plus the requesting player's own hand.
type PlayerView struct {
	PublicState
	Hand []models.Card `json:"hand"`
}

// State returns a snapshot of the public state.
func (s *Session) State() PublicState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.stateUnsafe()
}

// ViewFor returns the public state together with playerID's hand.
func (s *Session) ViewFor(playerID uuid.UUID) (PlayerView, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	idx := s.seatIndex(playerID)
	if idx < 0 {
		return PlayerView{}, ErrPlayerNotFound
	}
	return PlayerView{
		PublicState: s.stateUnsafe(),
		Hand:        copyCards(s.players[idx].Hand),
	}, nil
}

// stateUnsafe builds the public projection. Assumes the lock is held.
func (s *Session) stateUnsafe() PublicState {
	st := PublicState{
		SessionID:        s.ID,
		RoomCode:         s.RoomCode,
		Rules:            s.Rules,
		Phase:            s.phase,
		CurrentPlayerID:  s.players[s.currentIdx].ID,
		DealerPlayerID:   s.players[s.dealerIdx].ID,
		Players:          make([]PlayerState, 0, len(s.players)),
		RoundNumber:      s.round,
		RemainingPlayers: s.remaining,
		DeckRemaining:    s.deck.Remaining(),
		Log:              s.log.snapshot(),
	}
	if s.declaration != nil {
		d := poker.Declaration{Type: s.declaration.Type, Cards: copyCards(s.declaration.Cards)}
		st.CurrentDeclaration = &d
	}
	if s.lastChallenger != uuid.Nil {
		id := s.lastChallenger
		st.LastChallenger = &id
	}
	if s.phase == PhaseGameOver && s.winner != uuid.Nil {
		id := s.winner
		st.WinnerID = &id
	}
	for _, p := range s.players {
		st.Players = append(st.Players, PlayerState{
			ID:         p.ID,
			Name:       p.Name,
			HandSize:   len(p.Hand),
			InGame:     p.InGame,
			Left:       p.Left,
			LastAction: p.LastAction,
		})
	}
	return st
}
