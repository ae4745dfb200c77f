package matchmaking

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type capture struct {
	mu  sync.Mutex
	got map[uuid.UUID][]Event
}

func (c *capture) Notify(to []uuid.UUID, msg interface{}) {
	ev, ok := msg.(Event)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range to {
		c.got[id] = append(c.got[id], ev)
	}
}

func (c *capture) of(id uuid.UUID, typ string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.got[id] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	queue    *Queue
	registry *lobby.Registry
	clock    *fakeClock
	notes    *capture
}

func newFixture() *fixture {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	notes := &capture{got: make(map[uuid.UUID][]Event)}
	reg := lobby.NewRegistry(lobby.Options{Rand: rand.New(rand.NewSource(1)), Now: clock.Now})
	q := New(reg, Options{Notifier: notes, Now: clock.Now})
	return &fixture{queue: q, registry: reg, clock: clock, notes: notes}
}

func (f *fixture) enqueue(t *testing.T, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		_, err := f.queue.Enqueue(ids[i], fmt.Sprintf("Player%d", i+1), Preferences{})
		require.NoError(t, err)
	}
	return ids
}

func TestFourPlayersMatchImmediately(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 3)
	assert.Equal(t, 3, f.queue.Len())

	fourth := uuid.New()
	pos, err := f.queue.Enqueue(fourth, "Player4", Preferences{})
	require.NoError(t, err)
	assert.Equal(t, 0, pos, "matched on arrival")
	assert.Equal(t, 0, f.queue.Len())

	room, ok := f.registry.RoomOf(ids[0])
	require.True(t, ok)
	assert.Equal(t, ids[0], room.HostID, "first in line hosts")
	assert.Equal(t, 4, room.PlayerCount)

	for _, id := range append(ids, fourth) {
		found := f.notes.of(id, EventMatchFound)
		require.Len(t, found, 1)
		assert.Equal(t, room.Code, found[0].Payload["roomCode"])
	}
}

func TestShortTableAfterMaxWait(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 2)
	assert.Equal(t, 2, f.queue.Len())

	f.clock.Advance(MaxWait)
	assert.Equal(t, 0, f.queue.Process(), "exactly MaxWait is not enough")

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, f.queue.Process())
	assert.Equal(t, 0, f.queue.Len())

	room, ok := f.registry.RoomOf(ids[1])
	require.True(t, ok)
	assert.Equal(t, 2, room.PlayerCount)
}

func TestLateArrivalJoinsWaitingGroup(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 2)
	f.clock.Advance(31 * time.Second)

	third := uuid.New()
	pos, err := f.queue.Enqueue(third, "Player3", Preferences{})
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	room, ok := f.registry.RoomOf(third)
	require.True(t, ok)
	assert.Equal(t, ids[0], room.HostID)
	assert.Equal(t, 3, room.PlayerCount)
}

func TestThreeFreshPlayersKeepWaiting(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 3)

	assert.Equal(t, 0, f.queue.Process())
	assert.Equal(t, 3, f.queue.Len())
	for _, id := range ids {
		_, ok := f.registry.RoomOf(id)
		assert.False(t, ok)
	}

	updates := f.notes.of(ids[0], EventQueueUpdated)
	require.NotEmpty(t, updates)
	assert.Equal(t, 1, updates[len(updates)-1].Payload["queuePosition"])
}

func TestGroupsFormInArrivalOrder(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 5)
	assert.Equal(t, 1, f.queue.Len())

	rest := f.queue.Entries()
	require.Len(t, rest, 1)
	assert.Equal(t, ids[4], rest[0].PlayerID)
}

func TestReenqueueMovesToBack(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 3)

	f.clock.Advance(10 * time.Second)
	pos, err := f.queue.Enqueue(ids[0], "Player1", Preferences{QueueType: QueueRanked})
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	entries := f.queue.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0]},
		[]uuid.UUID{entries[0].PlayerID, entries[1].PlayerID, entries[2].PlayerID})
	assert.Equal(t, f.clock.Now(), entries[2].JoinedAt)
	assert.Equal(t, QueueRanked, entries[2].Preferences.QueueType)
}

func TestEnqueueLeavesCurrentRoom(t *testing.T) {
	f := newFixture()
	player := uuid.New()
	_, err := f.registry.CreateRoom(player, "Alice", models.RoomSettings{})
	require.NoError(t, err)

	_, err = f.queue.Enqueue(player, "Alice", Preferences{})
	require.NoError(t, err)
	_, ok := f.registry.RoomOf(player)
	assert.False(t, ok)
}

func TestDequeueIsIdempotent(t *testing.T) {
	f := newFixture()
	ids := f.enqueue(t, 2)

	assert.True(t, f.queue.Dequeue(ids[0]))
	assert.False(t, f.queue.Dequeue(ids[0]))
	assert.False(t, f.queue.Dequeue(uuid.New()))
	assert.Equal(t, 1, f.queue.Len())
}

func TestEnqueueValidatesPreferences(t *testing.T) {
	f := newFixture()

	_, err := f.queue.Enqueue(uuid.New(), "Alice", Preferences{QueueType: "bots"})
	assert.ErrorIs(t, err, ErrInvalidQueueType)
	_, err = f.queue.Enqueue(uuid.New(), "Alice", Preferences{PreferredPlayers: 9})
	assert.ErrorIs(t, err, ErrInvalidPreferredPlayers)
	_, err = f.queue.Enqueue(uuid.New(), "Alice", Preferences{GameMode: "blitz"})
	assert.ErrorIs(t, err, models.ErrInvalidGameMode)
	_, err = f.queue.Enqueue(uuid.New(), "", Preferences{})
	assert.ErrorIs(t, err, models.ErrInvalidUsername)
	assert.Equal(t, 0, f.queue.Len())
}

func TestMatchedRoomUsesHostMode(t *testing.T) {
	f := newFixture()
	host := uuid.New()
	_, err := f.queue.Enqueue(host, "Host", Preferences{GameMode: models.ModeTournament})
	require.NoError(t, err)
	f.enqueue(t, 3)

	room, ok := f.registry.RoomOf(host)
	require.True(t, ok)
	assert.Equal(t, models.ModeTournament, room.Settings.GameMode)
}

func TestEstimateWait(t *testing.T) {
	at := func(hour int) time.Time { return time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC) }

	tests := []struct {
		name   string
		queued int
		now    time.Time
		want   int
	}{
		{"empty queue midday", 0, at(12), 60},
		{"one waiting", 1, at(12), 25},
		{"floor at ten", 10, at(12), 10},
		{"peak evening", 2, at(20), 5},
		{"peak empty", 0, at(19), 45},
		{"late night", 1, at(3), 55},
		{"edge of off-peak", 0, at(7), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateWait(tt.queued, tt.now))
		})
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	assert.Equal(t, Stats{PlayersInQueue: 0, EstimatedWaitSeconds: 60, IsActive: false}, f.queue.Stats())

	f.enqueue(t, 2)
	assert.Equal(t, Stats{PlayersInQueue: 2, EstimatedWaitSeconds: 20, IsActive: true}, f.queue.Stats())
	assert.Equal(t, 20, f.queue.EstimatedWait(f.clock.Now()))
}

func TestConcurrentEnqueueFormsWholeTables(t *testing.T) {
	f := newFixture()
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 12)
	for i := range ids {
		ids[i] = uuid.New()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.queue.Enqueue(ids[i], fmt.Sprintf("Player%d", i+1), Preferences{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, f.queue.Len())
	rooms := make(map[string]int)
	for _, id := range ids {
		room, ok := f.registry.RoomOf(id)
		require.True(t, ok)
		rooms[room.Code]++
	}
	assert.Len(t, rooms, 3)
	for code, n := range rooms {
		assert.Equal(t, 4, n, "room %s", code)
	}
}

// refusingRooms turns away the listed players when they try to join a room.
type refusingRooms struct {
	*lobby.Registry
	refuse map[uuid.UUID]bool
}

func (r refusingRooms) JoinRoom(code string, playerID uuid.UUID, name string) (lobby.RoomInfo, error) {
	if r.refuse[playerID] {
		return lobby.RoomInfo{}, lobby.ErrRoomFull
	}
	return r.Registry.JoinRoom(code, playerID, name)
}

func newRefusingFixture(refuse ...uuid.UUID) *fixture {
	f := newFixture()
	rooms := refusingRooms{Registry: f.registry, refuse: make(map[uuid.UUID]bool)}
	for _, id := range refuse {
		rooms.refuse[id] = true
	}
	f.queue = New(rooms, Options{Notifier: f.notes, Now: f.clock.Now})
	return f
}

func enqueueIDs(t *testing.T, f *fixture, ids []uuid.UUID) {
	t.Helper()
	for i, id := range ids {
		_, err := f.queue.Enqueue(id, fmt.Sprintf("Player%d", i+1), Preferences{})
		require.NoError(t, err)
	}
}

func TestFailedJoinerIsRequeuedNotMatched(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	f := newRefusingFixture(ids[2])
	enqueueIDs(t, f, ids)

	room, ok := f.registry.RoomOf(ids[0])
	require.True(t, ok)
	assert.Equal(t, 3, room.PlayerCount)

	_, seated := f.registry.RoomOf(ids[2])
	assert.False(t, seated)
	assert.Empty(t, f.notes.of(ids[2], EventMatchFound))

	entries := f.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ids[2], entries[0].PlayerID)

	for _, id := range []uuid.UUID{ids[0], ids[1], ids[3]} {
		found := f.notes.of(id, EventMatchFound)
		require.Len(t, found, 1)
		assert.Equal(t, room.Code, found[0].Payload["roomCode"])
	}
}

func TestLoneHostGoesBackInLine(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	f := newRefusingFixture(ids[1])
	enqueueIDs(t, f, ids)

	f.clock.Advance(MaxWait + time.Second)
	f.queue.Process()

	_, hosting := f.registry.RoomOf(ids[0])
	assert.False(t, hosting, "host does not keep an empty table")
	assert.Zero(t, f.registry.OccupiedSeats())

	entries := f.queue.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].PlayerID)
	assert.Equal(t, ids[1], entries[1].PlayerID)
	for _, id := range ids {
		assert.Empty(t, f.notes.of(id, EventMatchFound))
	}
}
