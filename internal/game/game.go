// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
	"github.com/sirupsen/logrus"
)

// Phase is the stage a session is in.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseDealing     Phase = "dealing"
	PhaseDeclaration Phase = "declaration"
	PhaseChallenge   Phase = "challenge"
	PhaseReveal      Phase = "reveal"
	PhaseResult      Phase = "result"
	PhaseGameOver    Phase = "gameOver"
)

// LastAction is the most recent thing a seated player did.
type LastAction struct {
	Type        string             `json:"type"`
	Declaration *poker.Declaration `json:"declaration,omitempty"`
}

// Seat is a player inside a session. The hand is owned by the session and never
// handed out without copying.
type Seat struct {
	models.Player
	Hand       []models.Card
	InGame     bool
	Left       bool
	LastAction *LastAction
}

// Options configures a new session. Zero values fall back to standard rules,
// a time-seeded RNG, the default log limit and the standard logger.
type Options struct {
	RoomCode  string
	Rules     models.HouseRules
	Rand      *rand.Rand
	LogLimit  int
	Logger    logrus.FieldLogger
	Publisher ActionPublisher
	Now       func() time.Time
}

// Session holds the entire state for a single game in memory. Every exported
// method is one atomic transition under Mu; notifications go out after Mu is
// released.
type Session struct {
	ID       uuid.UUID
	RoomCode string
	Rules    models.HouseRules

	Mu sync.Mutex

	players        []*Seat
	deck           *Deck
	phase          Phase
	currentIdx     int
	dealerIdx      int
	declaration    *poker.Declaration
	lastChallenger uuid.UUID
	round          int
	remaining      int
	winner         uuid.UUID

	log         *logRing
	logSeq      int
	actionIndex int
	pending     []pendingEvent
	ended       bool

	rng       *rand.Rand
	now       func() time.Time
	logger    logrus.FieldLogger
	publisher ActionPublisher

	// BroadcastFn is used to send events to every seated player. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)

	// OnGameEnd is invoked once the game is over.
	OnGameEnd OnGameEndFunc
}

// NewSession seats players in the given order. The session stays in the
// waiting phase until Start.
func NewSession(players []models.Player, opts Options) (*Session, error) {
	if len(players) < models.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	seen := make(map[uuid.UUID]bool, len(players))
	seats := make([]*Seat, 0, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
		seats = append(seats, &Seat{Player: p, InGame: true})
	}

	rules := opts.Rules
	if rules.InitialCards == 0 {
		rules, _ = models.RulesForMode(models.ModeStandard)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	s := &Session{
		ID:        uuid.New(),
		RoomCode:  opts.RoomCode,
		Rules:     rules,
		players:   seats,
		deck:      NewDeck(),
		phase:     PhaseWaiting,
		round:     1,
		remaining: len(seats),
		log:       newLogRing(opts.LogLimit),
		rng:       opts.Rand,
		now:       opts.Now,
		publisher: opts.Publisher,
	}
	s.logger = opts.Logger.WithFields(logrus.Fields{"session": s.ID, "room": s.RoomCode})
	return s, nil
}

// commit runs fn under the lock, then dispatches whatever it queued.
func (s *Session) commit(fn func() error) error {
	s.Mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	endedNow := s.phase == PhaseGameOver && !s.ended
	if endedNow {
		s.ended = true
	}
	winner := s.winner
	s.Mu.Unlock()

	s.dispatch(events, endedNow, winner)
	return err
}

// Start shuffles, deals the opening hands and opens round 1.
func (s *Session) Start() error {
	return s.commit(s.startUnsafe)
}

func (s *Session) startUnsafe() error {
	if s.phase != PhaseWaiting {
		return ErrWrongPhase
	}
	s.addLog(uuid.Nil, "game_start", nil, "Game started")
	if s.remaining <= 1 {
		// Everyone else walked out before the deal.
		s.endGameUnsafe()
		return nil
	}
	s.deck.Shuffle(s.rng)

	s.phase = PhaseDealing
	s.addLog(uuid.Nil, "game_deal", map[string]interface{}{"initialCards": s.Rules.InitialCards}, "Dealing initial cards")
	for _, p := range s.players {
		if p.InGame {
			p.Hand = s.deck.Draw(s.Rules.InitialCards)
		}
	}

	s.dealerIdx = 0
	s.currentIdx, _ = s.nextInGameIndex(s.dealerIdx)
	s.phase = PhaseDeclaration
	s.addLog(uuid.Nil, "round_start", map[string]interface{}{"round": s.round}, "Round %d begins", s.round)
	s.announceTurn()

	s.logger.WithField("players", len(s.players)).Info("game started")
	state := s.stateUnsafe()
	s.fireEvent(GameEvent{Type: EventGameStarted, State: &state})
	s.sendHandsUnsafe()
	return nil
}

// Declare records a new declaration for the current player and opens the
// challenge window.
func (s *Session) Declare(playerID uuid.UUID, d poker.Declaration) error {
	return s.commit(func() error { return s.declareUnsafe(playerID, d) })
}

func (s *Session) declareUnsafe(playerID uuid.UUID, d poker.Declaration) error {
	seat, err := s.activeSeat(playerID)
	if err != nil {
		return err
	}
	if s.players[s.currentIdx] != seat {
		return ErrNotYourTurn
	}
	if s.phase != PhaseDeclaration {
		return ErrWrongPhase
	}
	if err := poker.Validate(d, s.declaration); err != nil {
		return err
	}

	decl := poker.Declaration{Type: d.Type, Cards: append([]models.Card(nil), d.Cards...)}
	s.declaration = &decl
	seat.LastAction = &LastAction{Type: models.ActionDeclaration, Declaration: &decl}
	s.phase = PhaseChallenge
	s.addLog(playerID, models.ActionDeclaration, map[string]interface{}{"declaration": decl},
		"%s declares: %s", seat.Name, poker.Describe(&decl))
	s.fireUpdate()
	return nil
}

// Challenge calls the current declaration a bluff and settles it immediately.
func (s *Session) Challenge(challengerID uuid.UUID) error {
	return s.commit(func() error { return s.challengeUnsafe(challengerID) })
}

func (s *Session) challengeUnsafe(challengerID uuid.UUID) error {
	seat, err := s.activeSeat(challengerID)
	if err != nil {
		return err
	}
	if s.phase != PhaseChallenge {
		return ErrWrongPhase
	}
	if s.players[s.currentIdx] == seat {
		return ErrCannotChallengeOwnDeclaration
	}

	s.lastChallenger = challengerID
	seat.LastAction = &LastAction{Type: models.ActionChallenge}
	s.addLog(challengerID, models.ActionChallenge, nil, "%s challenges with \"Trombon\"!", seat.Name)
	s.phase = PhaseReveal
	s.resolveChallengeUnsafe()
	return nil
}

// Pass declines to challenge. The first pass closes the challenge window and
// hands the turn to the next player in the game.
func (s *Session) Pass(playerID uuid.UUID) error {
	return s.commit(func() error { return s.passUnsafe(playerID) })
}

func (s *Session) passUnsafe(playerID uuid.UUID) error {
	seat, err := s.activeSeat(playerID)
	if err != nil {
		return err
	}
	if s.phase != PhaseChallenge {
		return ErrWrongPhase
	}
	if s.players[s.currentIdx] == seat {
		return ErrCannotPassOwnDeclaration
	}

	seat.LastAction = &LastAction{Type: models.ActionPass}
	s.addLog(playerID, models.ActionPass, nil, "%s passes", seat.Name)
	if !s.moveToNextPlayer() {
		return nil
	}
	s.phase = PhaseDeclaration
	s.announceTurn()
	s.fireUpdate()
	return nil
}

// HandleAction validates a raw client action and routes it. Malformed requests
// fail with ErrInvalidRequest before any state is read.
func (s *Session) HandleAction(playerID uuid.UUID, action models.GameAction) (PublicState, error) {
	var err error
	switch action.ActionType {
	case models.ActionDeclaration:
		if action.HandType == "" || len(action.Cards) == 0 {
			return PublicState{}, fmt.Errorf("%w: declaration requires declarationType and declaredCards", ErrInvalidRequest)
		}
		err = s.Declare(playerID, poker.Declaration{Type: poker.HandType(action.HandType), Cards: action.Cards})
	case models.ActionChallenge:
		err = s.Challenge(playerID)
	case models.ActionPass:
		err = s.Pass(playerID)
	default:
		return PublicState{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, action.ActionType)
	}
	if err != nil {
		return PublicState{}, err
	}
	return s.State(), nil
}

// Forfeit removes a player who walked away mid-game. They are knocked out and
// their hand leaves the pool; if it was their turn the next player takes over.
func (s *Session) Forfeit(playerID uuid.UUID) error {
	return s.commit(func() error { return s.forfeitUnsafe(playerID) })
}

func (s *Session) forfeitUnsafe(playerID uuid.UUID) error {
	idx := s.seatIndex(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	seat := s.players[idx]
	if seat.Left {
		return nil
	}
	seat.Left = true
	seat.Hand = nil
	if !seat.InGame || s.phase == PhaseGameOver {
		return nil
	}

	seat.InGame = false
	s.remaining--
	s.addLog(playerID, "player_forfeit", nil, "%s left the game", seat.Name)

	if s.phase == PhaseWaiting {
		return nil
	}
	if s.remaining <= 1 {
		s.endGameUnsafe()
		return nil
	}
	if idx == s.currentIdx {
		if !s.moveToNextPlayer() {
			return nil
		}
		s.phase = PhaseDeclaration
		s.announceTurn()
	}
	s.fireUpdate()
	return nil
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.phase
}

// Winner returns the winner once the game is over.
func (s *Session) Winner() (uuid.UUID, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.winner, s.phase == PhaseGameOver && s.winner != uuid.Nil
}

// announceTurn logs whose turn it is. Assumes the lock is held.
func (s *Session) announceTurn() {
	cur := s.players[s.currentIdx]
	s.addLog(cur.ID, "player_turn", map[string]interface{}{"round": s.round}, "%s's turn to declare", cur.Name)
}

// fireUpdate queues a game_update with the public state. Assumes the lock is held.
func (s *Session) fireUpdate() {
	state := s.stateUnsafe()
	s.fireEvent(GameEvent{Type: EventGameUpdate, State: &state})
}

// sendHandsUnsafe privately sends every seated player their own cards.
func (s *Session) sendHandsUnsafe() {
	for _, p := range s.players {
		if p.Left {
			continue
		}
		s.fireEventToPlayer(p.ID, GameEvent{Type: EventPrivateHand, Hand: copyCards(p.Hand)})
	}
}

func (s *Session) seatIndex(playerID uuid.UUID) int {
	for i, p := range s.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// activeSeat finds playerID's seat and rejects players who are out.
func (s *Session) activeSeat(playerID uuid.UUID) (*Seat, error) {
	idx := s.seatIndex(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	seat := s.players[idx]
	if !seat.InGame {
		return nil, ErrPlayerEliminated
	}
	return seat, nil
}

func copyCards(cards []models.Card) []models.Card {
	return append([]models.Card{}, cards...)
}
