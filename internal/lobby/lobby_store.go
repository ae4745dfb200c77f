// internal/lobby/lobby_store.go
package lobby

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	EventSettingsUpdated = "room_settings_updated"

	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts = 32
)

// Options configures a Registry. Zero values fall back to a no-op notifier,
// the standard logger, a time-seeded RNG and time.Now.
type Options struct {
	Notifier  Notifier
	Publisher game.ActionPublisher
	Logger    logrus.FieldLogger
	LogLimit  int
	Rand      *rand.Rand
	Now       func() time.Time
}

// Registry keeps every live room in memory, keyed by room code, and owns the
// game session running in each one.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	players *playerIndex

	notifier  Notifier
	publisher game.ActionPublisher
	logger    logrus.FieldLogger
	logLimit  int
	rng       *rand.Rand
	now       func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		players:   newPlayerIndex(),
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		logLimit:  opts.LogLimit,
		rng:       opts.Rand,
		now:       opts.Now,
	}
}

// effects collects what a registry operation wants to happen once the lock
// is released.
type effects struct {
	notes []notification
	after []func()
}

func (e *effects) notify(to []uuid.UUID, msg interface{}) {
	if len(to) == 0 {
		return
	}
	e.notes = append(e.notes, notification{to: to, msg: msg})
}

func (r *Registry) apply(fx *effects) {
	for _, n := range fx.notes {
		r.notifier.Notify(n.to, n.msg)
	}
	for _, fn := range fx.after {
		fn()
	}
}

// CreateRoom opens a room under a freshly generated code.
func (r *Registry) CreateRoom(hostID uuid.UUID, hostName string, settings models.RoomSettings) (RoomInfo, error) {
	return r.RegisterSession("", hostID, hostName, settings)
}

// RegisterSession opens a room under code, or a generated code when code is
// empty. The host leaves whatever room they were in.
func (r *Registry) RegisterSession(code string, hostID uuid.UUID, hostName string, settings models.RoomSettings) (RoomInfo, error) {
	name, err := models.NormalizeUsername(hostName)
	if err != nil {
		return RoomInfo{}, err
	}
	if err := settings.Normalize(); err != nil {
		return RoomInfo{}, err
	}
	if code != "" {
		if code, err = models.NormalizeRoomCode(code); err != nil {
			return RoomInfo{}, err
		}
	}

	var fx effects
	r.mu.Lock()
	if code == "" {
		if code, err = r.generateCodeUnsafe(); err != nil {
			r.mu.Unlock()
			return RoomInfo{}, err
		}
	} else if _, taken := r.rooms[code]; taken {
		r.mu.Unlock()
		return RoomInfo{}, ErrRoomExists
	}

	r.leaveUnsafe(hostID, &fx)
	room := &Room{
		Code:      code,
		HostID:    hostID,
		Settings:  settings,
		Players:   []models.Player{{ID: hostID, Name: name, JoinedAt: r.now()}},
		Status:    StatusWaiting,
		CreatedAt: r.now(),
	}
	r.rooms[code] = room
	r.players.set(hostID, code)
	info := room.info()
	r.mu.Unlock()

	r.apply(&fx)
	r.logger.WithFields(logrus.Fields{"room": code, "host": hostID, "mode": settings.GameMode}).Info("Room created")
	return info, nil
}

// generateCodeUnsafe picks an unused room code. Assumes the lock is held.
func (r *Registry) generateCodeUnsafe() (string, error) {
	buf := make([]byte, models.RoomCodeLength)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[r.rng.Intn(len(codeAlphabet))]
		}
		if _, taken := r.rooms[string(buf)]; !taken {
			return string(buf), nil
		}
	}
	return "", fmt.Errorf("no free room code after %d attempts: %w", maxCodeAttempts, ErrRoomExists)
}

// JoinRoom seats a player in the room. Joining a room the player is already
// in is a no-op; joining another room leaves the previous one first.
func (r *Registry) JoinRoom(code string, playerID uuid.UUID, playerName string) (RoomInfo, error) {
	name, err := models.NormalizeUsername(playerName)
	if err != nil {
		return RoomInfo{}, err
	}
	code, err = models.NormalizeRoomCode(code)
	if err != nil {
		return RoomInfo{}, ErrRoomNotFound
	}

	var fx effects
	r.mu.Lock()
	room, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return RoomInfo{}, ErrRoomNotFound
	}
	if room.indexOf(playerID) >= 0 {
		info := room.info()
		r.mu.Unlock()
		return info, nil
	}
	if room.Status == StatusPlaying {
		r.mu.Unlock()
		return RoomInfo{}, ErrGameInProgress
	}
	if room.full() {
		r.mu.Unlock()
		return RoomInfo{}, ErrRoomFull
	}

	r.leaveUnsafe(playerID, &fx)
	player := models.Player{ID: playerID, Name: name, JoinedAt: r.now()}
	room.Players = append(room.Players, player)
	r.players.set(playerID, code)
	info := room.info()
	fx.notify(room.memberIDs(), Event{
		Type:     EventPlayerJoined,
		RoomCode: code,
		Payload:  map[string]interface{}{"player": player, "room": info},
	})
	r.mu.Unlock()

	r.apply(&fx)
	r.logger.WithFields(logrus.Fields{"room": code, "player": playerID}).Debug("Player joined room")
	return info, nil
}

// LeaveRoom removes the player from their room. It reports whether they were
// in one.
func (r *Registry) LeaveRoom(playerID uuid.UUID) bool {
	var fx effects
	r.mu.Lock()
	left := r.leaveUnsafe(playerID, &fx)
	r.mu.Unlock()

	r.apply(&fx)
	return left
}

// leaveUnsafe takes the player out of their room: the host role passes to the
// longest-seated player, an empty room is dropped, and a running game treats
// the departure as a forfeit. Assumes the lock is held.
func (r *Registry) leaveUnsafe(playerID uuid.UUID, fx *effects) bool {
	code, ok := r.players.get(playerID)
	if !ok {
		return false
	}
	r.players.del(playerID)
	room, ok := r.rooms[code]
	if !ok {
		return false
	}
	idx := room.indexOf(playerID)
	if idx < 0 {
		return false
	}
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)

	if sess := room.session; sess != nil && room.Status == StatusPlaying {
		fx.after = append(fx.after, func() {
			if err := sess.Forfeit(playerID); err != nil {
				r.logger.WithFields(logrus.Fields{"room": code, "player": playerID}).WithError(err).Warn("Forfeit on leave failed")
			}
		})
	}

	log := r.logger.WithFields(logrus.Fields{"room": code, "player": playerID})
	if len(room.Players) == 0 {
		delete(r.rooms, code)
		fx.notify([]uuid.UUID{playerID}, Event{Type: EventRoomDeleted, RoomCode: code})
		log.Info("Room deleted")
		return true
	}

	remaining := room.memberIDs()
	if room.HostID == playerID {
		room.HostID = room.Players[0].ID
		fx.notify(remaining, Event{
			Type:     EventHostChanged,
			RoomCode: code,
			Payload:  map[string]interface{}{"hostId": room.HostID},
		})
		log.WithField("host", room.HostID).Debug("Host transferred")
	}
	fx.notify(remaining, Event{
		Type:     EventPlayerLeft,
		RoomCode: code,
		Payload:  map[string]interface{}{"playerId": playerID, "room": room.info()},
	})
	log.Debug("Player left room")
	return true
}

// StartGame deals a new game for everyone seated. Only the host may start,
// and a finished room can be started again.
func (r *Registry) StartGame(code string, hostID uuid.UUID) (game.PublicState, error) {
	code, err := models.NormalizeRoomCode(code)
	if err != nil {
		return game.PublicState{}, ErrRoomNotFound
	}

	r.mu.Lock()
	room, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return game.PublicState{}, ErrRoomNotFound
	}
	if room.HostID != hostID {
		r.mu.Unlock()
		return game.PublicState{}, ErrNotHost
	}
	if room.Status == StatusPlaying {
		r.mu.Unlock()
		return game.PublicState{}, ErrGameInProgress
	}
	if len(room.Players) < models.MinPlayers {
		r.mu.Unlock()
		return game.PublicState{}, ErrNotEnoughPlayers
	}
	rules, err := models.RulesForMode(room.Settings.GameMode)
	if err != nil {
		r.mu.Unlock()
		return game.PublicState{}, err
	}

	players := make([]models.Player, len(room.Players))
	copy(players, room.Players)
	sess, err := game.NewSession(players, game.Options{
		RoomCode:  code,
		Rules:     rules,
		Rand:      rand.New(rand.NewSource(r.rng.Int63())),
		LogLimit:  r.logLimit,
		Logger:    r.logger,
		Publisher: r.publisher,
		Now:       r.now,
	})
	if err != nil {
		r.mu.Unlock()
		return game.PublicState{}, err
	}
	r.wireSession(sess)
	room.session = sess
	room.Status = StatusPlaying
	r.mu.Unlock()

	if err := sess.Start(); err != nil {
		return game.PublicState{}, err
	}
	r.logger.WithFields(logrus.Fields{"room": code, "session": sess.ID, "players": len(players)}).Info("Game started")
	return sess.State(), nil
}

// wireSession routes a session's notifications to the players currently in
// its room.
func (r *Registry) wireSession(sess *game.Session) {
	code := sess.RoomCode
	sess.BroadcastFn = func(ev game.GameEvent) {
		if ids := r.members(code); len(ids) > 0 {
			r.notifier.Notify(ids, ev)
		}
	}
	sess.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		r.notifier.Notify([]uuid.UUID{playerID}, ev)
	}
	sess.OnGameEnd = func(roomCode string, winner uuid.UUID) {
		r.finishGame(roomCode, sess, winner)
	}
}

func (r *Registry) members(code string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	return room.memberIDs()
}

func (r *Registry) finishGame(code string, sess *game.Session, winner uuid.UUID) {
	r.mu.Lock()
	room, ok := r.rooms[code]
	if ok && room.session == sess {
		room.Status = StatusFinished
	}
	r.mu.Unlock()
	r.logger.WithFields(logrus.Fields{"room": code, "session": sess.ID, "winner": winner}).Info("Game finished")
}

// PerformAction applies a declare, challenge or pass from a seated player and
// returns the public state after it.
func (r *Registry) PerformAction(code string, playerID uuid.UUID, action models.GameAction) (game.PublicState, error) {
	sess, err := r.session(code)
	if err != nil {
		return game.PublicState{}, err
	}
	return sess.HandleAction(playerID, action)
}

// PlayerState is the game as one player sees it, including their own hand.
func (r *Registry) PlayerState(code string, playerID uuid.UUID) (game.PlayerView, error) {
	sess, err := r.session(code)
	if err != nil {
		return game.PlayerView{}, err
	}
	return sess.ViewFor(playerID)
}

func (r *Registry) session(code string) (*game.Session, error) {
	code, err := models.NormalizeRoomCode(code)
	if err != nil {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.session == nil {
		return nil, ErrGameNotStarted
	}
	return room.session, nil
}

// GetRoom returns a snapshot of the room.
func (r *Registry) GetRoom(code string) (RoomInfo, error) {
	code, err := models.NormalizeRoomCode(code)
	if err != nil {
		return RoomInfo{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return RoomInfo{}, ErrRoomNotFound
	}
	return room.info(), nil
}

// RoomOf returns the room the player currently sits in.
func (r *Registry) RoomOf(playerID uuid.UUID) (RoomInfo, bool) {
	code, ok := r.players.get(playerID)
	if !ok {
		return RoomInfo{}, false
	}
	info, err := r.GetRoom(code)
	if err != nil {
		return RoomInfo{}, false
	}
	return info, true
}

// ListRooms returns public rooms, oldest first. With onlyWaiting set, rooms
// that are mid-game or full are left out.
func (r *Registry) ListRooms(onlyWaiting bool) []RoomInfo {
	r.mu.Lock()
	list := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.Settings.IsPrivate {
			continue
		}
		if onlyWaiting && (room.Status == StatusPlaying || room.full()) {
			continue
		}
		list = append(list, room.info())
	}
	r.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Code < list[j].Code
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// UpdateSettings replaces the room settings. Host only, and not mid-game.
func (r *Registry) UpdateSettings(code string, hostID uuid.UUID, settings models.RoomSettings) (RoomInfo, error) {
	if err := settings.Normalize(); err != nil {
		return RoomInfo{}, err
	}
	code, err := models.NormalizeRoomCode(code)
	if err != nil {
		return RoomInfo{}, ErrRoomNotFound
	}

	var fx effects
	r.mu.Lock()
	room, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return RoomInfo{}, ErrRoomNotFound
	}
	if room.HostID != hostID {
		r.mu.Unlock()
		return RoomInfo{}, ErrNotHost
	}
	if room.Status == StatusPlaying {
		r.mu.Unlock()
		return RoomInfo{}, ErrGameInProgress
	}
	if settings.MaxPlayers < len(room.Players) {
		r.mu.Unlock()
		return RoomInfo{}, fmt.Errorf("%w: %d players already seated", models.ErrInvalidMaxPlayers, len(room.Players))
	}
	room.Settings = settings
	info := room.info()
	fx.notify(room.memberIDs(), Event{
		Type:     EventSettingsUpdated,
		RoomCode: code,
		Payload:  map[string]interface{}{"settings": settings},
	})
	r.mu.Unlock()

	r.apply(&fx)
	return info, nil
}

// OccupiedSeats returns how many players are seated across all rooms.
func (r *Registry) OccupiedSeats() int {
	n := 0
	r.players.foreach(func(uuid.UUID, string) { n++ })
	return n
}
