// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu      sync.Mutex
	batches [][]cache.GameActionRecord
}

func (q *fakeQueue) Pop(ctx context.Context, _ int, timeout time.Duration) ([]cache.GameActionRecord, error) {
	q.mu.Lock()
	if len(q.batches) > 0 {
		next := q.batches[0]
		q.batches = q.batches[1:]
		q.mu.Unlock()
		return next, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

type fakeStore struct {
	mu        sync.Mutex
	saved     []cache.GameActionRecord
	abandoned []uuid.UUID
	failNext  int
}

func (s *fakeStore) SaveGameActions(_ context.Context, records []cache.GameActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return errors.New("db down")
	}
	s.saved = append(s.saved, records...)
	return nil
}

func (s *fakeStore) MarkSessionAbandoned(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned = append(s.abandoned, id)
	return nil
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func records(session uuid.UUID, types ...string) []cache.GameActionRecord {
	out := make([]cache.GameActionRecord, len(types))
	for i, typ := range types {
		out[i] = cache.GameActionRecord{SessionID: session, ActionIndex: i + 1, ActionType: typ}
	}
	return out
}

func TestRunFlushesAndStopsCleanly(t *testing.T) {
	session := uuid.New()
	q := &fakeQueue{batches: [][]cache.GameActionRecord{records(session, "game_start", "game_deal", "round_start")}}
	store := &fakeStore{}
	svc := New(q, store, Config{BatchSize: 2, PollTimeout: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.savedCount() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("historian did not stop")
	}
}

func TestFlushRetriesAfterStoreFailure(t *testing.T) {
	store := &fakeStore{failNext: 1}
	svc := New(&fakeQueue{}, store, Config{BatchSize: 10}, nil)

	svc.ingest(records(uuid.New(), "game_start", "game_deal"))
	svc.flush(context.Background())
	assert.Equal(t, 0, store.savedCount())
	require.Len(t, svc.batch, 2)

	svc.flush(context.Background())
	assert.Equal(t, 2, store.savedCount())
	assert.Empty(t, svc.batch)
}

func TestFlushDropsOversizedBacklog(t *testing.T) {
	store := &fakeStore{failNext: 1}
	svc := New(&fakeQueue{}, store, Config{BatchSize: 1}, nil)

	svc.ingest(records(uuid.New(), "a", "b", "c", "d"))
	svc.flush(context.Background())
	assert.Empty(t, svc.batch)
	assert.Equal(t, 0, store.savedCount())
}

func TestSweepAbandonsIdleSessions(t *testing.T) {
	store := &fakeStore{}
	svc := New(&fakeQueue{}, store, Config{Inactivity: time.Minute}, nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	idle, finished, busy := uuid.New(), uuid.New(), uuid.New()
	svc.ingest(records(idle, "round_start"))
	svc.ingest(records(finished, "round_start", "game_end"))

	svc.now = func() time.Time { return start.Add(50 * time.Second) }
	svc.ingest(records(busy, "round_start"))

	svc.sweep(context.Background(), start.Add(90*time.Second))
	assert.Equal(t, []uuid.UUID{idle}, store.abandoned)
	assert.NotContains(t, svc.lastActivity, idle)
	assert.Contains(t, svc.lastActivity, busy)
}
