package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/network"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultCookieURL = "https://fc.yahoo.com"
)

// YahooFinanceSource implements interfaces.IMarketDataProvider over the
// public chart and quoteSummary endpoints.
type YahooFinanceSource struct {
	BaseURL   string
	CookieURL string
	Network   interfaces.INetworkManager
	Logger    *logger.Logger

	now   func() time.Time
	sf    singleflight.Group
	mu    sync.Mutex
	crumb string
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	base := strings.TrimSuffix(cfg.Provider.YahooURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &YahooFinanceSource{
		BaseURL:   base,
		CookieURL: DefaultCookieURL,
		Network:   netMgr,
		Logger:    logger.NewLogger(cfg, "YahooFinanceSource"),
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// FetchHistory fetches daily bars for the period.
func (s *YahooFinanceSource) FetchHistory(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error) {
	params := map[string]string{
		"interval":       "1d",
		"includePrePost": "false",
		"events":         "div,splits",
	}
	params = withRange(params, period, s.now())

	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s", s.BaseURL, url.PathEscape(ticker))
	body, err := s.Network.Get(ctx, chartURL, params)
	if err != nil {
		var statusErr *network.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, helpers.NewDataUnavailable(ticker, fmt.Sprintf("no data found for %s, symbol may be delisted", ticker), err)
		}
		return nil, helpers.NewDataUnavailable(ticker, fmt.Sprintf("history request for %s failed", ticker), err)
	}

	return s.parseChartResponse(ticker, period, body)
}

// -----------------------------------------------------------------------------

// withRange maps the period onto Yahoo's range tokens. 3y has no token and is
// sent as an explicit window.
func withRange(params map[string]string, period models.Period, now time.Time) map[string]string {
	if period == models.Period3Y {
		params["period1"] = strconv.FormatInt(now.Add(-period.Lookback()).Unix(), 10)
		params["period2"] = strconv.FormatInt(now.Unix(), 10)
		return params
	}
	params["range"] = string(period)
	return params
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				InstrumentType       string  `json:"instrumentType"`
				Gmtoffset            int     `json:"gmtoffset"`
				Timezone             string  `json:"timezone"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				DataGranularity      string  `json:"dataGranularity"`
				Range                string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"`   // Use pointers to handle null
					Low    []*float64 `json:"low"`    // Use pointers to handle null
					Open   []*float64 `json:"open"`   // Use pointers to handle null
					Close  []*float64 `json:"close"`  // Use pointers to handle null
					Volume []*float64 `json:"volume"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(ticker string, period models.Period, data []byte) ([]models.MPricePoint, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewDataUnavailable(ticker, "malformed chart response", err)
	}

	if resp.Chart.Error != nil {
		return nil, helpers.NewDataUnavailable(ticker,
			fmt.Sprintf("yahoo api error for %s: %s - %s", ticker, resp.Chart.Error.Code, resp.Chart.Error.Description), nil)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, helpers.NewEmptySeries(ticker, string(period))
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, helpers.NewEmptySeries(ticker, string(period))
	}
	quote := result.Indicators.Quote[0]

	// Alignment check
	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Volume) != n {
		s.Logger.Warning("Data alignment error for %s: mismatched array lengths", ticker)
		return nil, helpers.NewDataUnavailable(ticker, fmt.Sprintf("data alignment error for %s", ticker), nil)
	}

	loc := time.UTC
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	// one bar per exchange-local date, the later bar wins
	byDate := make(map[time.Time]models.MPricePoint, n)
	for i, ts := range result.Timestamp {
		if quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue
		}
		closeVal := *quote.Close[i]
		local := time.Unix(ts, 0).In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

		byDate[date] = models.MPricePoint{
			Date:   date,
			Open:   valueOr(quote.Open[i], closeVal),
			High:   valueOr(quote.High[i], closeVal),
			Low:    valueOr(quote.Low[i], closeVal),
			Close:  closeVal,
			Volume: valueOr(quote.Volume[i], 0),
		}
	}

	if len(byDate) == 0 {
		return nil, helpers.NewEmptySeries(ticker, string(period))
	}

	points := make([]models.MPricePoint, 0, len(byDate))
	for _, p := range byDate {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	s.Logger.Debug("Parsed %d daily bars for %s (%s)", len(points), ticker, period)
	return points, nil
}

// -----------------------------------------------------------------------------

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
