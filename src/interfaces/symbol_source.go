package interfaces

import (
	"context"

	"nifty-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// ISymbolSource yields the ticker universe once at startup.
// -----------------------------------------------------------------------------

type ISymbolSource interface {
	Name() string

	// -----------------------------------------------------------------------------

	// LoadListings returns the listings in source order.
	LoadListings(ctx context.Context) ([]models.MSymbolListing, error)
}
