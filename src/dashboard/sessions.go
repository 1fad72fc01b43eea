package dashboard

import (
	"sync"
	"time"

	"nifty-dashboard/src/analysis"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/google/uuid"
)

// SessionRegistry holds one independent DashboardState per client session.
type SessionRegistry struct {
	Quotes    interfaces.IQuoteCache
	Directory interfaces.ITickerDirectory
	Charts    *analysis.AnalysisFacade
	Format    *Formatter
	Defaults  models.MDashboardInputs
	Windows   models.MovingAverageSet
	Logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*DashboardState
}

// -----------------------------------------------------------------------------

func NewSessionRegistry(quotes interfaces.IQuoteCache, directory interfaces.ITickerDirectory, format *Formatter, defaults models.MDashboardInputs, log *logger.Logger) *SessionRegistry {
	return &SessionRegistry{
		Quotes:    quotes,
		Directory: directory,
		Charts:    analysis.NewAnalysisFacade(log.Named("chart")),
		Format:    format,
		Defaults:  defaults,
		Windows:   models.NewMovingAverageSet(models.DefaultMovingAverageWindows...),
		Logger:    log,
		sessions:  make(map[string]*DashboardState),
	}
}

// -----------------------------------------------------------------------------

// Create starts a session with the default inputs and no selection.
func (r *SessionRegistry) Create() *DashboardState {
	id := uuid.NewString()
	state := r.NewState(id)

	r.mu.Lock()
	r.sessions[id] = state
	count := len(r.sessions)
	r.mu.Unlock()

	r.Logger.Info("Session %s created (%d active)", id, count)
	return state
}

// -----------------------------------------------------------------------------

// NewState builds an unregistered state, used by one-shot renders.
func (r *SessionRegistry) NewState(id string) *DashboardState {
	state := NewDashboardState(id, r.Quotes, r.Directory, r.Charts, r.Format, r.Defaults, r.Logger.Named("session"))
	if len(r.Windows) > 0 {
		state.Windows = r.Windows.Clone()
	}
	return state
}

// -----------------------------------------------------------------------------

func (r *SessionRegistry) Get(id string) (*DashboardState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// -----------------------------------------------------------------------------

func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// -----------------------------------------------------------------------------

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// -----------------------------------------------------------------------------

// EvictIdle drops sessions unused since before now-idle and returns their ids.
func (r *SessionRegistry) EvictIdle(now time.Time, idle time.Duration) []string {
	cutoff := now.Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		r.Logger.Info("Evicted %d idle sessions", len(evicted))
	}
	return evicted
}
