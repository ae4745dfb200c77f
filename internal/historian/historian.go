// Package historian drains session action records from Redis and persists
// them to Postgres in batches, closing out sessions that go quiet.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Queue yields the next records, waiting at most timeout for the first one.
type Queue interface {
	Pop(ctx context.Context, limit int, timeout time.Duration) ([]cache.GameActionRecord, error)
}

// Store persists batches and abandons idle sessions.
type Store interface {
	SaveGameActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkSessionAbandoned(ctx context.Context, sessionID uuid.UUID) error
}

// RedisQueue reads from the list the game server publishes to.
type RedisQueue struct {
	Client redis.Cmdable
	Name   string
}

func (q RedisQueue) Pop(ctx context.Context, limit int, timeout time.Duration) ([]cache.GameActionRecord, error) {
	return cache.PopGameActions(ctx, q.Client, q.Name, limit, timeout)
}

type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Inactivity    time.Duration
	PollTimeout   time.Duration
	SweepInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.Inactivity <= 0 {
		c.Inactivity = 10 * time.Minute
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 3 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// maxRetainedBatches bounds how much unsaved data is held while the store is failing.
const maxRetainedBatches = 4

type Service struct {
	queue Queue
	store Store
	cfg   Config
	log   logrus.FieldLogger
	now   func() time.Time

	batch        []cache.GameActionRecord
	lastFlush    time.Time
	lastSweep    time.Time
	lastActivity map[uuid.UUID]time.Time
}

func New(queue Queue, store Store, cfg Config, logger logrus.FieldLogger) *Service {
	cfg.setDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		queue:        queue,
		store:        store,
		cfg:          cfg,
		log:          logger.WithField("component", "historian"),
		now:          time.Now,
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run loops until ctx is cancelled, then flushes what it holds.
func (s *Service) Run(ctx context.Context) error {
	s.lastFlush = s.now()
	s.lastSweep = s.now()
	s.log.Info("historian started")

	for {
		if ctx.Err() != nil {
			s.flush(context.Background())
			s.log.Info("historian shutting down")
			return nil
		}

		records, err := s.queue.Pop(ctx, s.cfg.BatchSize, s.cfg.PollTimeout)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Error("failed to pop action records")
			if len(records) == 0 {
				select {
				case <-ctx.Done():
				case <-time.After(s.cfg.FlushInterval):
				}
			}
		}
		s.ingest(records)

		now := s.now()
		if len(s.batch) >= s.cfg.BatchSize || now.Sub(s.lastFlush) >= s.cfg.FlushInterval {
			s.flush(ctx)
		}
		if now.Sub(s.lastSweep) >= s.cfg.SweepInterval {
			s.sweep(ctx, now)
		}
	}
}

func (s *Service) ingest(records []cache.GameActionRecord) {
	now := s.now()
	for _, rec := range records {
		s.batch = append(s.batch, rec)
		if rec.ActionType == "game_end" {
			delete(s.lastActivity, rec.SessionID)
			continue
		}
		s.lastActivity[rec.SessionID] = now
	}
}

// flush writes the pending batch. On failure the batch is kept for the next
// attempt unless it has grown past the retention bound.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.store.SaveGameActions(ctx, s.batch); err != nil {
		if len(s.batch) >= maxRetainedBatches*s.cfg.BatchSize {
			s.log.WithError(err).WithField("dropped", len(s.batch)).Error("dropping action batch")
			s.batch = nil
			return
		}
		s.log.WithError(err).WithField("pending", len(s.batch)).Warn("failed to flush actions, will retry")
		return
	}
	s.log.WithField("count", len(s.batch)).Debug("flushed actions")
	s.batch = nil
}

// sweep abandons sessions idle for longer than the inactivity threshold.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.lastSweep = now
	for id, last := range s.lastActivity {
		if now.Sub(last) <= s.cfg.Inactivity {
			continue
		}
		if err := s.store.MarkSessionAbandoned(ctx, id); err != nil {
			s.log.WithError(err).WithField("session", id).Warn("failed to mark session abandoned")
			continue
		}
		s.log.WithField("session", id).Info("marked session abandoned due to inactivity")
		delete(s.lastActivity, id)
	}
}
