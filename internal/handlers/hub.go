package handlers

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// sendBuffer is how many outbound messages a slow client may fall behind by
// before messages to it are dropped.
const sendBuffer = 64

// client is one open WebSocket. A player may hold several.
type client struct {
	playerID uuid.UUID
	send     chan []byte
}

// Hub fans registry and queue notifications out to connected players.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	logger  logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.playerID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.playerID] = set
	}
	set[c] = struct{}{}
}

// unregister drops c and reports whether the player has no connections left.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.playerID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.playerID)
		return true
	}
	return false
}

// Connected reports whether the player has an open socket.
func (h *Hub) Connected(playerID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID]) > 0
}

// Notify marshals msg once and queues it on every socket of every listed
// player. It never blocks on a slow client.
func (h *Hub) Notify(playerIDs []uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal notification")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range playerIDs {
		for c := range h.clients[id] {
			h.push(c, data)
		}
	}
}

func (h *Hub) push(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.WithField("player", c.playerID).Warn("send buffer full, dropping message")
	}
}
