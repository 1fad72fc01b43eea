package symbols

import (
	"context"
	"strings"

	"nifty-dashboard/src/models"
)

// StaticSource serves the symbols listed in config.
type StaticSource struct {
	Symbols []string
	Suffix  string
}

func (s *StaticSource) Name() string { return "static" }

// -----------------------------------------------------------------------------

func (s *StaticSource) LoadListings(_ context.Context) ([]models.MSymbolListing, error) {
	listings := make([]models.MSymbolListing, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		listings = append(listings, models.MSymbolListing{Symbol: sym, ExchangeSuffix: s.Suffix})
	}
	return listings, nil
}
