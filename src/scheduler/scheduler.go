package scheduler

import (
	"fmt"
	"time"

	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"

	"github.com/robfig/cron/v3"
)

// housekeepingSpec fires at second 0 of every minute.
const housekeepingSpec = "0 * * * * *"

// QuoteMaintainer is the part of the quote cache the jobs touch.
type QuoteMaintainer interface {
	DeleteExpired() int
}

// SessionEvicter drops idle dashboard sessions.
type SessionEvicter interface {
	EvictIdle(now time.Time, idle time.Duration) []string
}

// MemoryGuard reclaims memory over a soft limit.
type MemoryGuard interface {
	CheckMemoryLimits() bool
}

// Scheduler manages the maintenance cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Store     interfaces.IQuoteStore
	Quotes    QuoteMaintainer
	Sessions  SessionEvicter
	Memory    MemoryGuard
	Retention time.Duration
	Idle      time.Duration
	Logger    *logger.Logger
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewScheduler(store interfaces.IQuoteStore, quotes QuoteMaintainer, sessions SessionEvicter, memory MemoryGuard, retention, idle time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Store:     store,
		Quotes:    quotes,
		Sessions:  sessions,
		Memory:    memory,
		Retention: retention,
		Idle:      idle,
		Logger:    log,
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// RegisterAll registers the store cleanup on cleanupSpec and the per-minute
// housekeeping.
func (s *Scheduler) RegisterAll(cleanupSpec string) error {
	if _, err := s.Cron.AddFunc(cleanupSpec, s.CleanupStore); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	if _, err := s.Cron.AddFunc(housekeepingSpec, s.Housekeeping); err != nil {
		return fmt.Errorf("register housekeeping task: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("Maintenance scheduler started (%d jobs)", len(s.Cron.Entries()))
}

// -----------------------------------------------------------------------------

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("Maintenance scheduler stopped")
}

// -----------------------------------------------------------------------------

// CleanupStore prunes persisted quotes older than the retention window.
func (s *Scheduler) CleanupStore() {
	if s.Store == nil {
		return
	}
	cutoff := s.now().Add(-s.Retention)
	n, err := s.Store.CleanupOldData(cutoff)
	if err != nil {
		s.Logger.Error("Store cleanup failed: %v", err)
		return
	}
	s.Logger.Info("Store cleanup removed %d rows older than %s", n, s.Retention)
}

// -----------------------------------------------------------------------------

// Housekeeping evicts idle sessions and expired cache entries.
func (s *Scheduler) Housekeeping() {
	now := s.now()

	if s.Sessions != nil && s.Idle > 0 {
		if ids := s.Sessions.EvictIdle(now, s.Idle); len(ids) > 0 {
			s.Logger.Debug("Evicted sessions %v", ids)
		}
	}
	if s.Quotes != nil {
		if n := s.Quotes.DeleteExpired(); n > 0 {
			s.Logger.Debug("Dropped %d expired quote entries", n)
		}
	}
	if s.Memory != nil {
		s.Memory.CheckMemoryLimits()
	}
}
