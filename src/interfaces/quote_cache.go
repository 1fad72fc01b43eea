package interfaces

import (
	"context"

	"nifty-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteCache is what dashboard sessions read market data through.
// -----------------------------------------------------------------------------

type IQuoteCache interface {
	GetSeries(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error)

	// -----------------------------------------------------------------------------

	GetProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error)
}

// -----------------------------------------------------------------------------
// ITickerDirectory validates ticker selections.
// -----------------------------------------------------------------------------

type ITickerDirectory interface {
	Contains(ticker string) bool
}
