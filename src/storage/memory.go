package storage

import (
	"time"

	"nifty-dashboard/src/models"
)

// NoopStore disables persistence; the in-memory cache tier is the only one.
type NoopStore struct{}

func (NoopStore) Kind() string      { return "memory" }
func (NoopStore) Initialize() error { return nil }
func (NoopStore) Close() error      { return nil }

func (NoopStore) LoadSeries(string, models.Period) (*models.MCacheEntry, error) { return nil, nil }
func (NoopStore) SaveSeries(models.MCacheEntry) error                          { return nil }
func (NoopStore) LoadProfile(string) (*models.MProfileEntry, error)            { return nil, nil }
func (NoopStore) SaveProfile(models.MProfileEntry) error                       { return nil }
func (NoopStore) Purge(string) (int64, error)                                  { return 0, nil }
func (NoopStore) CleanupOldData(time.Time) (int64, error)                      { return 0, nil }
