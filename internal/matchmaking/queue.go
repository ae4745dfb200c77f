// internal/matchmaking/queue.go
package matchmaking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// GroupSize is the table size the queue fills before anyone has waited long.
	GroupSize = 4
	// MaxWait is how long the oldest entry waits before a short table is dealt.
	MaxWait = 30 * time.Second

	QueueCasual = "casual"
	QueueRanked = "ranked"

	EventMatchFound   = "match_found"
	EventQueueUpdated = "queue_updated"
)

var (
	ErrInvalidQueueType        = errors.New("queue type must be casual or ranked")
	ErrInvalidPreferredPlayers = errors.New("preferred players must be between 2 and 8")
)

// Preferences are what a player asks for when queueing. They are kept with the
// entry; grouping only looks at wait time.
type Preferences struct {
	QueueType        string `json:"queueType"`
	GameMode         string `json:"gameMode"`
	PreferredPlayers int    `json:"preferredPlayers"`
}

// Normalize fills defaults and validates in place.
func (p *Preferences) Normalize() error {
	switch p.QueueType {
	case "":
		p.QueueType = QueueCasual
	case QueueCasual, QueueRanked:
	default:
		return ErrInvalidQueueType
	}
	if p.GameMode == "" {
		p.GameMode = models.ModeStandard
	}
	if _, err := models.RulesForMode(p.GameMode); err != nil {
		return err
	}
	if p.PreferredPlayers == 0 {
		p.PreferredPlayers = GroupSize
	}
	if p.PreferredPlayers < models.MinPlayers || p.PreferredPlayers > models.MaxPlayers {
		return ErrInvalidPreferredPlayers
	}
	return nil
}

// Entry is one waiting player.
type Entry struct {
	PlayerID    uuid.UUID   `json:"playerId"`
	Name        string      `json:"name"`
	JoinedAt    time.Time   `json:"joinedAt"`
	Preferences Preferences `json:"preferences"`
}

// Rooms is the slice of the room registry the queue drives.
type Rooms interface {
	LeaveRoom(playerID uuid.UUID) bool
	CreateRoom(hostID uuid.UUID, hostName string, settings models.RoomSettings) (lobby.RoomInfo, error)
	JoinRoom(code string, playerID uuid.UUID, name string) (lobby.RoomInfo, error)
}

// Event is a queue notification.
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Stats summarises the queue.
type Stats struct {
	PlayersInQueue       int  `json:"playersInQueue"`
	EstimatedWaitSeconds int  `json:"estimatedWaitTime"`
	IsActive             bool `json:"isActive"`
}

// Options configures a Queue.
type Options struct {
	Notifier lobby.Notifier
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Queue is the FIFO of players waiting for a table. One mutex covers
// enqueue, dequeue and the batching pass.
type Queue struct {
	mu      sync.Mutex
	entries []Entry

	rooms    Rooms
	notifier lobby.Notifier
	logger   logrus.FieldLogger
	now      func() time.Time
}

// New returns an empty queue that opens rooms through rooms.
func New(rooms Rooms, opts Options) *Queue {
	if opts.Notifier == nil {
		opts.Notifier = lobby.NotifierFunc(func([]uuid.UUID, interface{}) {})
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Queue{
		rooms:    rooms,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Enqueue puts the player at the back of the queue, replacing any entry they
// already had, and runs a batching pass. It returns the player's 1-based
// position afterwards, or 0 if the pass matched them straight away.
func (q *Queue) Enqueue(playerID uuid.UUID, name string, prefs Preferences) (int, error) {
	name, err := models.NormalizeUsername(name)
	if err != nil {
		return 0, err
	}
	if err := prefs.Normalize(); err != nil {
		return 0, err
	}

	q.rooms.LeaveRoom(playerID)

	q.mu.Lock()
	q.removeUnsafe(playerID)
	q.entries = append(q.entries, Entry{
		PlayerID:    playerID,
		Name:        name,
		JoinedAt:    q.now(),
		Preferences: prefs,
	})
	groups := q.batchUnsafe()
	position := q.positionUnsafe(playerID)
	waiting := q.snapshotUnsafe()
	q.mu.Unlock()

	q.logger.WithFields(logrus.Fields{"player": playerID, "position": position}).Debug("Player queued")
	q.settle(groups, waiting)
	return position, nil
}

// Dequeue drops the player from the queue. It reports whether they were queued.
func (q *Queue) Dequeue(playerID uuid.UUID) bool {
	q.mu.Lock()
	removed := q.removeUnsafe(playerID)
	var groups [][]Entry
	if removed {
		groups = q.batchUnsafe()
	}
	waiting := q.snapshotUnsafe()
	q.mu.Unlock()

	if !removed {
		return false
	}
	q.logger.WithField("player", playerID).Debug("Player left queue")
	q.settle(groups, waiting)
	return true
}

// Process runs a batching pass on its own, so tables still form once the
// oldest entry crosses MaxWait with nobody new arriving.
func (q *Queue) Process() int {
	q.mu.Lock()
	groups := q.batchUnsafe()
	var waiting []Entry
	if len(groups) > 0 {
		waiting = q.snapshotUnsafe()
	}
	q.mu.Unlock()

	if len(groups) > 0 {
		q.settle(groups, waiting)
	}
	return len(groups)
}

// batchUnsafe pulls groups off the front of the queue: full tables whenever
// there are enough players, short ones once anyone near the front has waited
// longer than MaxWait. Assumes the lock is held.
func (q *Queue) batchUnsafe() [][]Entry {
	var groups [][]Entry
	for len(q.entries) >= models.MinPlayers {
		now := q.now()
		size := GroupSize
		if q.oldestWaitUnsafe(now) > MaxWait {
			size = min(GroupSize, len(q.entries))
		} else if len(q.entries) < GroupSize {
			break
		}
		group := make([]Entry, size)
		copy(group, q.entries[:size])
		q.entries = append(q.entries[:0:0], q.entries[size:]...)
		groups = append(groups, group)
	}
	return groups
}

func (q *Queue) oldestWaitUnsafe(now time.Time) time.Duration {
	var longest time.Duration
	for i := 0; i < len(q.entries) && i < GroupSize; i++ {
		if w := now.Sub(q.entries[i].JoinedAt); w > longest {
			longest = w
		}
	}
	return longest
}

func (q *Queue) removeUnsafe(playerID uuid.UUID) bool {
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) positionUnsafe(playerID uuid.UUID) int {
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			return i + 1
		}
	}
	return 0
}

func (q *Queue) snapshotUnsafe() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// settle opens a room for every formed group and tells everyone what changed.
// It runs without the queue lock.
func (q *Queue) settle(groups [][]Entry, waiting []Entry) {
	for _, group := range groups {
		q.openRoom(group)
	}

	stats := Stats{
		PlayersInQueue:       len(waiting),
		EstimatedWaitSeconds: estimateWait(len(waiting), q.now()),
		IsActive:             len(waiting) > 0,
	}
	for i, e := range waiting {
		q.notifier.Notify([]uuid.UUID{e.PlayerID}, Event{
			Type: EventQueueUpdated,
			Payload: map[string]interface{}{
				"queuePosition": i + 1,
				"stats":         stats,
			},
		})
	}
}

func (q *Queue) openRoom(group []Entry) {
	host := group[0]
	log := q.logger.WithFields(logrus.Fields{"host": host.PlayerID, "size": len(group)})

	room, err := q.rooms.CreateRoom(host.PlayerID, host.Name, models.RoomSettings{
		MaxPlayers: max(GroupSize, len(group)),
		GameMode:   host.Preferences.GameMode,
	})
	if err != nil {
		log.WithError(err).Error("Failed to open room for matched group")
		q.requeueFront(group)
		return
	}
	ids := []uuid.UUID{host.PlayerID}
	var failed []Entry
	for _, e := range group[1:] {
		joined, err := q.rooms.JoinRoom(room.Code, e.PlayerID, e.Name)
		if err != nil {
			log.WithError(err).WithField("player", e.PlayerID).Warn("Matched player could not join room")
			failed = append(failed, e)
			continue
		}
		room = joined
		ids = append(ids, e.PlayerID)
	}

	// A host left alone goes back in line with everyone else.
	if len(ids) < models.MinPlayers {
		q.rooms.LeaveRoom(host.PlayerID)
		q.requeueFront(group)
		log.WithField("room", room.Code).Warn("Matched group fell apart, requeued")
		return
	}
	if len(failed) > 0 {
		q.requeueFront(failed)
	}

	q.notifier.Notify(ids, Event{
		Type: EventMatchFound,
		Payload: map[string]interface{}{
			"roomCode": room.Code,
			"room":     room,
		},
	})
	log.WithField("room", room.Code).Info("Match formed")
}

// requeueFront puts a group back where it was, ahead of anyone who queued
// since, unless they re-queued in the meantime.
func (q *Queue) requeueFront(group []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queued := make(map[uuid.UUID]bool, len(q.entries))
	for _, e := range q.entries {
		queued[e.PlayerID] = true
	}
	back := make([]Entry, 0, len(group)+len(q.entries))
	for _, e := range group {
		if !queued[e.PlayerID] {
			back = append(back, e)
		}
	}
	q.entries = append(back, q.entries...)
}

// Len is the number of players waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the queue in order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotUnsafe()
}

// EstimatedWait guesses how long a newcomer will wait, in seconds.
func (q *Queue) EstimatedWait(now time.Time) int {
	return estimateWait(q.Len(), now)
}

// Stats reports queue length, estimated wait and whether anyone is queued.
func (q *Queue) Stats() Stats {
	n := q.Len()
	return Stats{
		PlayersInQueue:       n,
		EstimatedWaitSeconds: estimateWait(n, q.now()),
		IsActive:             n > 0,
	}
}

func estimateWait(queued int, now time.Time) int {
	wait := 60
	if queued > 0 {
		wait = max(10, 30-queued*5)
	}
	switch h := now.Hour(); {
	case h >= 19 && h <= 23:
		wait = max(5, wait-15)
	case h >= 2 && h <= 6:
		wait += 30
	}
	return wait
}
