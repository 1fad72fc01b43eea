package symbols

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/PuerkitoBio/goquery"
)

// WikipediaSource scrapes the index constituents table.
type WikipediaSource struct {
	URL        string
	TableIndex int
	Suffix     string
	Network    interfaces.INetworkManager
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewWikipediaSource(cfg models.MSymbolsConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *WikipediaSource {
	return &WikipediaSource{
		URL:        cfg.URL,
		TableIndex: cfg.TableIndex,
		Suffix:     cfg.ExchangeSuffix,
		Network:    netMgr,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *WikipediaSource) Name() string { return "wikipedia" }

// -----------------------------------------------------------------------------

func (s *WikipediaSource) LoadListings(ctx context.Context) ([]models.MSymbolListing, error) {
	body, err := s.Network.Get(ctx, s.URL, nil)
	if err != nil {
		return nil, err
	}
	return s.parse(body)
}

// -----------------------------------------------------------------------------

func (s *WikipediaSource) parse(body []byte) ([]models.MSymbolListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse constituents page: %w", err)
	}

	tables := doc.Find("table")
	var table *goquery.Selection
	column := -1

	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if col := symbolColumn(t); col >= 0 {
			table, column = t, col
			return false
		}
		return true
	})

	if table == nil && s.TableIndex >= 0 && s.TableIndex < tables.Length() {
		t := tables.Eq(s.TableIndex)
		if col := symbolColumn(t); col >= 0 {
			table, column = t, col
		}
	}
	if table == nil {
		return nil, fmt.Errorf("no table with a Symbol column among %d tables", tables.Length())
	}

	var listings []models.MSymbolListing
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= column {
			return
		}
		symbol := strings.TrimSpace(cells.Eq(column).Text())
		if symbol == "" {
			return
		}
		listings = append(listings, models.MSymbolListing{Symbol: symbol, ExchangeSuffix: s.Suffix})
	})

	if s.Logger != nil {
		s.Logger.Debug("Parsed %d constituents from %s", len(listings), s.URL)
	}
	return listings, nil
}

// -----------------------------------------------------------------------------

// symbolColumn returns the position of the "Symbol" header cell, or -1.
func symbolColumn(table *goquery.Selection) int {
	column := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(th.Text()), "symbol") {
			column = i
			return false
		}
		return true
	})
	return column
}
