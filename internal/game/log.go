package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/cache"
)

// DefaultLogLimit is how many log entries a session keeps when no limit is configured.
const DefaultLogLimit = 200

// LogEntry is one human-readable line of the session log.
type LogEntry struct {
	Seq     int       `json:"seq"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// logRing keeps the most recent entries up to a fixed capacity.
type logRing struct {
	entries []LogEntry
	start   int
	size    int
}

func newLogRing(limit int) *logRing {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &logRing{entries: make([]LogEntry, limit)}
}

func (r *logRing) push(e LogEntry) {
	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.start+r.size)%capacity] = e
		r.size++
		return
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % capacity
}

// snapshot returns the retained entries, oldest first.
func (r *logRing) snapshot() []LogEntry {
	out := make([]LogEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// ActionPublisher ships action records to the historian queue.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// addLog appends a line to the session log and streams it, with payload, to the
// historian. Assumes the lock is held.
func (s *Session) addLog(actorID uuid.UUID, actionType string, payload map[string]interface{}, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.logSeq++
	s.log.push(LogEntry{Seq: s.logSeq, Message: msg, Time: s.now()})

	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["message"] = msg
	s.logAction(actorID, actionType, payload)
}

// logAction sends the action details to the historian service via Redis.
// Assumes the lock is held.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.publisher == nil {
		return
	}
	record := cache.GameActionRecord{
		SessionID:     s.ID,
		RoomCode:      s.RoomCode,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     s.now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.publisher.PublishGameAction(ctx, rec); err != nil {
			s.logger.WithError(err).WithField("actionIndex", rec.ActionIndex).Warn("failed to publish game action")
		}
	}(record)
}
