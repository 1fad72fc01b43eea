package symbols

import (
	"context"
	"fmt"
	"os"
	"strings"

	"nifty-dashboard/src/models"

	"github.com/gocarina/gocsv"
)

// constituentRow matches the exchange's index constituents download.
type constituentRow struct {
	CompanyName string `csv:"Company Name"`
	Industry    string `csv:"Industry"`
	Symbol      string `csv:"Symbol"`
	Series      string `csv:"Series"`
	ISIN        string `csv:"ISIN Code"`
}

// CSVSource reads constituents from a local file.
type CSVSource struct {
	Path   string
	Suffix string
}

// -----------------------------------------------------------------------------

func NewCSVSource(path, suffix string) *CSVSource {
	return &CSVSource{Path: path, Suffix: suffix}
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Name() string { return "csv" }

// -----------------------------------------------------------------------------

func (s *CSVSource) LoadListings(_ context.Context) ([]models.MSymbolListing, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	var rows []constituentRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}

	listings := make([]models.MSymbolListing, 0, len(rows))
	for _, r := range rows {
		symbol := strings.TrimSpace(r.Symbol)
		if symbol == "" {
			continue
		}
		listings = append(listings, models.MSymbolListing{Symbol: symbol, ExchangeSuffix: s.Suffix})
	}
	return listings, nil
}
