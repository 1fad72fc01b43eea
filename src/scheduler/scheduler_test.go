package scheduler

import (
	"errors"
	"testing"
	"time"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	storage.NoopStore
	cutoff time.Time
	err    error
}

func (s *recordingStore) CleanupOldData(cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 4, s.err
}

type counter struct{ calls int }

func (c *counter) DeleteExpired() int      { c.calls++; return 1 }
func (c *counter) CheckMemoryLimits() bool { c.calls++; return false }

type evicter struct {
	now  time.Time
	idle time.Duration
}

func (e *evicter) EvictIdle(now time.Time, idle time.Duration) []string {
	e.now, e.idle = now, idle
	return []string{"a"}
}

func newTestScheduler(store *recordingStore, quotes, memory *counter, sessions *evicter) *Scheduler {
	s := NewScheduler(store, quotes, sessions, memory, 720*time.Hour, 2*time.Hour, logger.NewLogger(nil, "test"))
	s.now = func() time.Time { return time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC) }
	return s
}

func TestCleanupStoreUsesRetention(t *testing.T) {
	store := &recordingStore{}
	s := newTestScheduler(store, &counter{}, &counter{}, &evicter{})

	s.CleanupStore()
	assert.Equal(t, time.Date(2025, 5, 2, 3, 30, 0, 0, time.UTC), store.cutoff)

	store.err = errors.New("locked")
	assert.NotPanics(t, s.CleanupStore)
}

func TestHousekeeping(t *testing.T) {
	quotes, memory, sessions := &counter{}, &counter{}, &evicter{}
	s := newTestScheduler(&recordingStore{}, quotes, memory, sessions)

	s.Housekeeping()
	assert.Equal(t, 1, quotes.calls)
	assert.Equal(t, 1, memory.calls)
	assert.Equal(t, 2*time.Hour, sessions.idle)
	assert.Equal(t, s.now(), sessions.now)
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(&recordingStore{}, &counter{}, &counter{}, &evicter{})
	require.NoError(t, s.RegisterAll("0 30 3 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	bad := newTestScheduler(&recordingStore{}, &counter{}, &counter{}, &evicter{})
	assert.Error(t, bad.RegisterAll("every night"))

	s.Start()
	s.Stop()
}
