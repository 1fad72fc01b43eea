package csvfile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/gocarina/gocsv"
	"github.com/guregu/null/v6"
	"gopkg.in/yaml.v3"
)

// historyRow matches the CSV layout of a yfinance history export.
type historyRow struct {
	Date   string `csv:"Date"`
	Open   string `csv:"Open"`
	High   string `csv:"High"`
	Low    string `csv:"Low"`
	Close  string `csv:"Close"`
	Volume string `csv:"Volume"`
}

type profileRow struct {
	DisplayName    *string  `yaml:"display_name"`
	SummaryText    *string  `yaml:"summary_text"`
	Currency       string   `yaml:"currency"`
	CurrentPrice   *float64 `yaml:"current_price"`
	MarketCap      *float64 `yaml:"market_cap"`
	Week52High     *float64 `yaml:"week52_high"`
	Week52Low      *float64 `yaml:"week52_low"`
	TrailingPE     *float64 `yaml:"trailing_pe"`
	ReturnOnEquity *float64 `yaml:"return_on_equity"`
	DividendYield  *float64 `yaml:"dividend_yield"`
	Beta           *float64 `yaml:"beta"`
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05-07:00", time.RFC3339}

// -----------------------------------------------------------------------------

// CSVSource serves history from <dir>/<TICKER>.csv and fundamentals from
// <dir>/profiles.yaml. Used offline and as a fallback behind Yahoo.
type CSVSource struct {
	Dir    string
	Logger *logger.Logger
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{
		Dir:    dir,
		Logger: logger.NewLogger(nil, "CSVSource"),
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Name() string {
	return "csv"
}

// -----------------------------------------------------------------------------

func (s *CSVSource) FetchHistory(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error) {
	path := filepath.Join(s.Dir, ticker+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, helpers.NewDataUnavailable(ticker, fmt.Sprintf("no history file for %s", ticker), err)
	}
	defer f.Close()

	var rows []*historyRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, helpers.NewDataUnavailable(ticker, fmt.Sprintf("malformed history file %s", path), err)
	}

	var cutoff time.Time
	if lb := period.Lookback(); lb > 0 {
		cutoff = s.now().Add(-lb)
	}

	seen := make(map[time.Time]int)
	var points []models.MPricePoint
	for i, row := range rows {
		closeVal, err := parseFloat(row.Close)
		if err != nil || closeVal <= 0 {
			continue
		}
		date, err := parseDate(row.Date)
		if err != nil {
			s.Logger.Warning("Skipping row %d of %s: %v", i+1, path, err)
			continue
		}
		if !cutoff.IsZero() && date.Before(cutoff) {
			continue
		}

		p := models.MPricePoint{
			Date:   date,
			Open:   parseOr(row.Open, closeVal),
			High:   parseOr(row.High, closeVal),
			Low:    parseOr(row.Low, closeVal),
			Close:  closeVal,
			Volume: parseOr(row.Volume, 0),
		}
		if idx, dup := seen[date]; dup {
			points[idx] = p
			continue
		}
		seen[date] = len(points)
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, helpers.NewEmptySeries(ticker, string(period))
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// -----------------------------------------------------------------------------

func (s *CSVSource) FetchProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, "profiles.yaml"))
	if err != nil {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, "no profiles file", err)
	}

	var profiles map[string]profileRow
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, "malformed profiles file", err)
	}

	row, ok := profiles[ticker]
	if !ok {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, fmt.Sprintf("no profile for %s", ticker), errors.New("not in profiles.yaml"))
	}

	return models.MProfileSnapshot{
		Ticker:         ticker,
		Currency:       row.Currency,
		DisplayName:    null.StringFromPtr(row.DisplayName),
		SummaryText:    null.StringFromPtr(row.SummaryText),
		CurrentPrice:   finite(row.CurrentPrice),
		MarketCap:      finite(row.MarketCap),
		Week52High:     finite(row.Week52High),
		Week52Low:      finite(row.Week52Low),
		TrailingPE:     finite(row.TrailingPE),
		ReturnOnEquity: finite(row.ReturnOnEquity),
		DividendYield:  finite(row.DividendYield),
		Beta:           finite(row.Beta),
	}, nil
}

// -----------------------------------------------------------------------------

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// parseFloat rejects NaN and infinities so they read as missing.
func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

func finite(v *float64) null.Float {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(*v)
}

func parseOr(raw string, fallback float64) float64 {
	v, err := parseFloat(raw)
	if err != nil {
		return fallback
	}
	return v
}
