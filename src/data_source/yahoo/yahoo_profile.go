package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/network"

	"github.com/guregu/null/v6"
)

var profileModules = strings.Join([]string{
	"price", "assetProfile", "summaryProfile", "summaryDetail", "financialData", "defaultKeyStatistics",
}, ",")

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} envelope; missing values come as {}.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) float() null.Float {
	if v == nil {
		return null.Float{}
	}
	return null.FloatFromPtr(v.Raw)
}

type YahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName           *string   `json:"longName"`
				ShortName          *string   `json:"shortName"`
				Currency           string    `json:"currency"`
				MarketCap          *rawValue `json:"marketCap"`
				RegularMarketPrice *rawValue `json:"regularMarketPrice"`
			} `json:"price"`
			AssetProfile *struct {
				LongBusinessSummary *string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			SummaryProfile *struct {
				LongBusinessSummary *string `json:"longBusinessSummary"`
			} `json:"summaryProfile"`
			SummaryDetail *struct {
				MarketCap        *rawValue `json:"marketCap"`
				FiftyTwoWeekHigh *rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  *rawValue `json:"fiftyTwoWeekLow"`
				TrailingPE       *rawValue `json:"trailingPE"`
				DividendYield    *rawValue `json:"dividendYield"`
				Beta             *rawValue `json:"beta"`
			} `json:"summaryDetail"`
			FinancialData *struct {
				CurrentPrice   *rawValue `json:"currentPrice"`
				ReturnOnEquity *rawValue `json:"returnOnEquity"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				Beta *rawValue `json:"beta"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// -----------------------------------------------------------------------------

// FetchProfile fetches the fundamentals snapshot. A 401 drops the cached crumb
// and retries once with a fresh one.
func (s *YahooFinanceSource) FetchProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error) {
	body, err := s.fetchQuoteSummary(ctx, ticker)
	var statusErr *network.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		s.resetCrumb()
		body, err = s.fetchQuoteSummary(ctx, ticker)
	}
	if err != nil {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, fmt.Sprintf("profile request for %s failed", ticker), err)
	}
	return parseQuoteSummary(ticker, body)
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchQuoteSummary(ctx context.Context, ticker string) ([]byte, error) {
	crumb, err := s.getCrumb(ctx)
	if err != nil {
		return nil, err
	}
	summaryURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", s.BaseURL, url.PathEscape(ticker))
	return s.Network.Get(ctx, summaryURL, map[string]string{
		"modules": profileModules,
		"crumb":   crumb,
	})
}

// -----------------------------------------------------------------------------

// getCrumb performs the cookie/crumb handshake once; concurrent callers share it.
func (s *YahooFinanceSource) getCrumb(ctx context.Context) (string, error) {
	s.mu.Lock()
	crumb := s.crumb
	s.mu.Unlock()
	if crumb != "" {
		return crumb, nil
	}

	v, err, _ := s.sf.Do("crumb", func() (interface{}, error) {
		// the cookie endpoint answers 404 but sets the session cookie
		if _, err := s.Network.Get(ctx, s.CookieURL, nil); err != nil {
			var statusErr *network.StatusError
			if !errors.As(err, &statusErr) {
				return "", fmt.Errorf("cookie handshake failed: %w", err)
			}
		}

		body, err := s.Network.Get(ctx, s.BaseURL+"/v1/test/getcrumb", nil)
		if err != nil {
			return "", fmt.Errorf("crumb request failed: %w", err)
		}
		fresh := strings.TrimSpace(string(body))
		if fresh == "" || strings.ContainsAny(fresh, "<{") {
			return "", fmt.Errorf("unexpected crumb response")
		}

		s.mu.Lock()
		s.crumb = fresh
		s.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) resetCrumb() {
	s.mu.Lock()
	s.crumb = ""
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

func parseQuoteSummary(ticker string, data []byte) (models.MProfileSnapshot, error) {
	var resp YahooQuoteSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, "malformed quoteSummary response", err)
	}
	if resp.QuoteSummary.Error != nil {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker,
			fmt.Sprintf("yahoo api error for %s: %s - %s", ticker, resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description), nil)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return models.MProfileSnapshot{}, helpers.NewDataUnavailable(ticker, fmt.Sprintf("no profile for %s", ticker), nil)
	}

	r := resp.QuoteSummary.Result[0]
	snap := models.MProfileSnapshot{Ticker: ticker}

	if p := r.Price; p != nil {
		snap.Currency = p.Currency
		snap.DisplayName = firstString(p.LongName, p.ShortName)
		snap.MarketCap = p.MarketCap.float()
		snap.CurrentPrice = p.RegularMarketPrice.float()
	}
	if r.AssetProfile != nil {
		snap.SummaryText = firstString(r.AssetProfile.LongBusinessSummary)
	}
	if !snap.SummaryText.Valid && r.SummaryProfile != nil {
		snap.SummaryText = firstString(r.SummaryProfile.LongBusinessSummary)
	}
	if d := r.SummaryDetail; d != nil {
		if !snap.MarketCap.Valid {
			snap.MarketCap = d.MarketCap.float()
		}
		snap.Week52High = d.FiftyTwoWeekHigh.float()
		snap.Week52Low = d.FiftyTwoWeekLow.float()
		snap.TrailingPE = d.TrailingPE.float()
		snap.DividendYield = d.DividendYield.float()
		snap.Beta = d.Beta.float()
	}
	if f := r.FinancialData; f != nil {
		// financialData.currentPrice is what the dashboard has always shown
		if cp := f.CurrentPrice.float(); cp.Valid {
			snap.CurrentPrice = cp
		}
		snap.ReturnOnEquity = f.ReturnOnEquity.float()
	}
	if k := r.DefaultKeyStatistics; k != nil && !snap.Beta.Valid {
		snap.Beta = k.Beta.float()
	}

	return snap, nil
}

// -----------------------------------------------------------------------------

func firstString(values ...*string) null.String {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return null.StringFrom(*v)
		}
	}
	return null.String{}
}
