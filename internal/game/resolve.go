package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
	"github.com/sirupsen/logrus"
)

// DeclarationExists reports whether every asserted card can be matched by rank
// and suit against a distinct card in pool. pool is not modified.
func DeclarationExists(pool []models.Card, asserted []models.Card) bool {
	remaining := copyCards(pool)
	for _, want := range asserted {
		found := -1
		for i, c := range remaining {
			if c.Same(want) {
				found = i
				break
			}
		}
		if found < 0 {
			return false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return true
}

// poolUnsafe flattens every seated hand.
func (s *Session) poolUnsafe() []models.Card {
	var pool []models.Card
	for _, p := range s.players {
		pool = append(pool, p.Hand...)
	}
	return pool
}

// resolveChallengeUnsafe settles the open challenge, penalises the loser and
// either opens the next round or ends the game.
func (s *Session) resolveChallengeUnsafe() {
	declarer := s.players[s.currentIdx]
	challengerIdx := s.seatIndex(s.lastChallenger)
	desc := poker.Describe(s.declaration)

	revealed := make(map[uuid.UUID][]models.Card, len(s.players))
	for _, p := range s.players {
		if !p.Left {
			revealed[p.ID] = copyCards(p.Hand)
		}
	}

	exists := DeclarationExists(s.poolUnsafe(), s.declaration.Cards)
	loserIdx := s.currentIdx
	if exists {
		loserIdx = challengerIdx
		s.addLog(uuid.Nil, "challenge_failed", nil, "Challenge failed! The declared %s exists", desc)
	} else {
		s.addLog(uuid.Nil, "challenge_succeeded", nil, "Challenge succeeded! The declared %s does not exist", desc)
	}
	loser := s.players[loserIdx]
	s.addLog(loser.ID, "challenge_lost", nil, "%s loses the challenge", loser.Name)

	s.phase = PhaseResult
	gotCard, eliminated := s.punishLoserUnsafe(loser)

	s.fireEvent(GameEvent{
		Type: EventGameRoundEnd,
		Payload: map[string]interface{}{
			"result": RoundResult{
				Round:             s.round,
				Declaration:       s.declaration,
				DeclarerID:        declarer.ID,
				ChallengerID:      s.lastChallenger,
				DeclarationExists: exists,
				LoserID:           loser.ID,
				PenaltyCard:       gotCard,
				Eliminated:        eliminated,
				Revealed:          revealed,
			},
		},
	})
	if gotCard {
		s.fireEventToPlayer(loser.ID, GameEvent{Type: EventPrivateHand, Hand: copyCards(loser.Hand)})
	}

	s.logger.WithFields(logrus.Fields{
		"round":      s.round,
		"loser":      loser.ID,
		"exists":     exists,
		"eliminated": eliminated,
	}).Debug("challenge resolved")

	s.prepareNextRoundUnsafe(loserIdx)
}

// punishLoserUnsafe draws one card for the loser if the deck has any, and
// knocks them out once their hand reaches the elimination threshold.
func (s *Session) punishLoserUnsafe(loser *Seat) (gotCard, eliminated bool) {
	if s.deck.Remaining() == 0 {
		s.addLog(uuid.Nil, "penalty_skipped", nil, "Deck is empty, no additional card given")
		return false, false
	}
	loser.Hand = append(loser.Hand, s.deck.Draw(1)...)
	s.addLog(loser.ID, "penalty_card", map[string]interface{}{"handSize": len(loser.Hand)}, "%s receives an additional card", loser.Name)

	if len(loser.Hand) >= s.Rules.EliminationThreshold {
		loser.InGame = false
		s.remaining--
		s.addLog(loser.ID, "player_eliminated", map[string]interface{}{"handSize": len(loser.Hand)},
			"%s has %d cards and is eliminated!", loser.Name, len(loser.Hand))
		return true, true
	}
	return true, false
}

// prepareNextRoundUnsafe hands the deal to the loser (or the next player in the
// game if the loser is out) and opens the next round.
func (s *Session) prepareNextRoundUnsafe(loserIdx int) {
	if s.remaining <= 1 {
		s.endGameUnsafe()
		return
	}
	s.declaration = nil

	if s.players[loserIdx].InGame {
		s.dealerIdx = loserIdx
	} else {
		s.dealerIdx, _ = s.nextInGameIndex(loserIdx)
	}
	next, ok := s.nextInGameIndex(s.dealerIdx)
	if !ok {
		s.endGameUnsafe()
		return
	}
	s.currentIdx = next
	s.phase = PhaseDeclaration
	s.round++
	s.addLog(uuid.Nil, "round_start", map[string]interface{}{"round": s.round}, "Round %d begins", s.round)
	s.announceTurn()
	s.fireUpdate()
}

// endGameUnsafe moves to game over and names the last player standing, if any.
func (s *Session) endGameUnsafe() {
	s.phase = PhaseGameOver
	s.winner = uuid.Nil
	for _, p := range s.players {
		if p.InGame {
			s.winner = p.ID
			s.addLog(p.ID, "game_end", map[string]interface{}{"winner": p.ID}, "Game over! %s wins the game!", p.Name)
			break
		}
	}
	if s.winner == uuid.Nil {
		s.addLog(uuid.Nil, "game_end", nil, "Game over! No players remaining.")
	}
	s.logger.WithField("winner", s.winner).Info("game over")

	state := s.stateUnsafe()
	s.fireEvent(GameEvent{Type: EventGameOver, State: &state, Payload: map[string]interface{}{"winnerId": s.winner}})
}

// nextInGameIndex searches circularly after from for a player still in the game.
// ok is false when nobody is.
func (s *Session) nextInGameIndex(from int) (int, bool) {
	n := len(s.players)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if s.players[idx].InGame {
			return idx, true
		}
	}
	return from, false
}

// moveToNextPlayer advances the turn, ending the game if nobody is left to play.
// Returns false when the game ended.
func (s *Session) moveToNextPlayer() bool {
	next, ok := s.nextInGameIndex(s.currentIdx)
	if !ok {
		s.endGameUnsafe()
		return false
	}
	s.currentIdx = next
	return true
}
