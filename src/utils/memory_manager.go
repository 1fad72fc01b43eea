package utils

import (
	"runtime"
	"runtime/debug"
	"sync"

	"nifty-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// MemoryManager keeps the heap under a soft limit by asking registered
// caches to drop expired entries.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	MaxMemoryMB int
	Logger      *logger.Logger
	reclaimers  map[string]func() int
	mu          sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxMemoryMB int, log *logger.Logger) *MemoryManager {
	return &MemoryManager{
		MaxMemoryMB: maxMemoryMB,
		Logger:      log,
		reclaimers:  make(map[string]func() int),
	}
}

// -----------------------------------------------------------------------------

// Register adds a reclaimer returning how many entries it freed.
func (mm *MemoryManager) Register(name string, reclaim func() int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.reclaimers[name] = reclaim
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits reclaims when the heap exceeds the limit and reports
// whether it did. A non-positive limit disables the check.
func (mm *MemoryManager) CheckMemoryLimits() bool {
	if mm.MaxMemoryMB <= 0 {
		return false
	}
	currentMemory := mm.GetProcessMemoryMB()
	if currentMemory <= float64(mm.MaxMemoryMB) {
		return false
	}

	mm.Logger.Info("Memory usage %.1fMB exceeds limit %dMB. Cleaning up.", currentMemory, mm.MaxMemoryMB)
	mm.Reclaim()
	return true
}

// -----------------------------------------------------------------------------

// Reclaim runs every reclaimer and returns memory to the OS.
func (mm *MemoryManager) Reclaim() int {
	mm.mu.RLock()
	freed := 0
	for name, reclaim := range mm.reclaimers {
		n := reclaim()
		freed += n
		mm.Logger.Debug("Reclaimer %s freed %d entries", name, n)
	}
	mm.mu.RUnlock()

	runtime.GC()
	debug.FreeOSMemory()
	return freed
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB gets current heap usage in MB
func (mm *MemoryManager) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}
