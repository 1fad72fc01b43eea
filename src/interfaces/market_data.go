package interfaces

import (
	"context"

	"nifty-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataProvider is the upstream source of price history and fundamentals.
// Both calls fail with a *helpers.DataUnavailableError.
// -----------------------------------------------------------------------------

type IMarketDataProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// FetchHistory returns daily bars for the period, ascending by date.
	FetchHistory(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error)

	// -----------------------------------------------------------------------------

	// FetchProfile returns the fundamentals snapshot.
	FetchProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error)
}
