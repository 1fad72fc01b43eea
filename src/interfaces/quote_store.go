package interfaces

import (
	"time"

	"nifty-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteStore is the persistent tier behind the in-memory quote cache.
// Load calls return (nil, nil) when nothing is stored.
// -----------------------------------------------------------------------------

type IQuoteStore interface {

	// Kind names the backend (sqlite, postgres, memory).
	Kind() string

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	LoadSeries(ticker string, period models.Period) (*models.MCacheEntry, error)

	// -----------------------------------------------------------------------------

	// SaveSeries upserts the entry for (ticker, period).
	SaveSeries(entry models.MCacheEntry) error

	// -----------------------------------------------------------------------------

	LoadProfile(ticker string) (*models.MProfileEntry, error)

	// -----------------------------------------------------------------------------

	SaveProfile(entry models.MProfileEntry) error

	// -----------------------------------------------------------------------------

	// Purge deletes every row for ticker, or everything when ticker is empty.
	Purge(ticker string) (int64, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows fetched before cutoff.
	CleanupOldData(cutoff time.Time) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
