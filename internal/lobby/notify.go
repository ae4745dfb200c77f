// internal/lobby/notify.go
package lobby

import "github.com/google/uuid"

const (
	EventPlayerJoined = "room_player_joined"
	EventPlayerLeft   = "room_player_left"
	EventHostChanged  = "room_host_changed"
	EventRoomDeleted  = "room_deleted"
)

// Event is a room-level notification.
type Event struct {
	Type     string                 `json:"type"`
	RoomCode string                 `json:"roomCode"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Notifier delivers a message to a set of players. Implementations must not
// call back into the registry synchronously.
type Notifier interface {
	Notify(playerIDs []uuid.UUID, msg interface{})
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(playerIDs []uuid.UUID, msg interface{})

func (f NotifierFunc) Notify(playerIDs []uuid.UUID, msg interface{}) { f(playerIDs, msg) }

type notification struct {
	to  []uuid.UUID
	msg interface{}
}

type noopNotifier struct{}

func (noopNotifier) Notify([]uuid.UUID, interface{}) {}
