package symbols

import (
	"context"
	"fmt"
	"strings"

	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
)

// SymbolDirectory is the immutable ticker universe offered to the selector.
type SymbolDirectory struct {
	Source   string
	listings []models.MSymbolListing
	options  []models.MTickerOption
	index    map[string]models.MSymbolListing
}

// -----------------------------------------------------------------------------

// Load reads the universe once. A failing or empty source is an error.
func Load(ctx context.Context, source interfaces.ISymbolSource, log *logger.Logger) (*SymbolDirectory, error) {
	listings, err := source.LoadListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols from %s: %w", source.Name(), err)
	}

	dir := NewSymbolDirectory(listings)
	if len(dir.listings) == 0 {
		return nil, fmt.Errorf("symbol source %s returned no listings", source.Name())
	}
	dir.Source = source.Name()

	if log != nil {
		log.Info("Loaded %d symbols from %s", len(dir.listings), source.Name())
	}
	return dir, nil
}

// -----------------------------------------------------------------------------

// NewSymbolDirectory keeps load order and drops duplicate tickers.
func NewSymbolDirectory(listings []models.MSymbolListing) *SymbolDirectory {
	d := &SymbolDirectory{
		index: make(map[string]models.MSymbolListing, len(listings)),
	}
	for _, l := range listings {
		l.Symbol = strings.TrimSpace(l.Symbol)
		if l.Symbol == "" {
			continue
		}
		ticker := l.Ticker()
		if _, dup := d.index[ticker]; dup {
			continue
		}
		d.index[ticker] = l
		d.listings = append(d.listings, l)
		d.options = append(d.options, models.MTickerOption{Label: l.Symbol, Value: ticker})
	}
	return d
}

// -----------------------------------------------------------------------------

// Search matches labels case-insensitively. An empty query reports ok=false so
// the caller keeps whatever options it already shows.
func (d *SymbolDirectory) Search(query string) ([]models.MTickerOption, bool) {
	q := strings.ToLower(query)
	if q == "" {
		return nil, false
	}

	out := make([]models.MTickerOption, 0)
	for _, o := range d.options {
		if strings.Contains(strings.ToLower(o.Label), q) {
			out = append(out, o)
		}
	}
	return out, true
}

// -----------------------------------------------------------------------------

func (d *SymbolDirectory) All() []models.MTickerOption {
	out := make([]models.MTickerOption, len(d.options))
	copy(out, d.options)
	return out
}

// -----------------------------------------------------------------------------

func (d *SymbolDirectory) Contains(ticker string) bool {
	_, ok := d.index[ticker]
	return ok
}

// -----------------------------------------------------------------------------

func (d *SymbolDirectory) Lookup(ticker string) (models.MSymbolListing, bool) {
	l, ok := d.index[ticker]
	return l, ok
}

// -----------------------------------------------------------------------------

func (d *SymbolDirectory) Len() int {
	return len(d.listings)
}
