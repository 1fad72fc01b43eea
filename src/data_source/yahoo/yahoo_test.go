package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"meta":{"currency":"INR","symbol":"RELIANCE.NS","exchangeTimezoneName":"Asia/Kolkata"},
"timestamp":[1704080700,1704167100,1704253500,1704253800],
"indicators":{"quote":[{"open":[100,101,null,103],"high":[101,102,103,104],"low":[99,100,101,102],
"close":[100.5,null,102.5,103.5],"volume":[1000,1100,1200,1300]}]}}],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{
"price":{"longName":"Reliance Industries Limited","currency":"INR","marketCap":{"raw":19500000000000,"fmt":"19.5T"},"regularMarketPrice":{"raw":2890.5}},
"assetProfile":{"longBusinessSummary":"Reliance Industries Limited engages in hydrocarbon exploration."},
"summaryDetail":{"fiftyTwoWeekHigh":{"raw":3024.9},"fiftyTwoWeekLow":{"raw":2220.3},"trailingPE":{"raw":28.456},"dividendYield":{},"beta":{"raw":0.93}},
"financialData":{"currentPrice":{"raw":2891.0},"returnOnEquity":{"raw":0.0912}}}],"error":null}}`

type fakeYahoo struct {
	*httptest.Server
	crumbCalls atomic.Int32
	lastQuery  atomic.Value
}

func newFakeYahoo(t *testing.T) *fakeYahoo {
	f := &fakeYahoo{}
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		f.crumbCalls.Add(1)
		w.Write([]byte("abcCrumb"))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.Query())
		switch strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/") {
		case "RELIANCE.NS":
			w.Write([]byte(chartBody))
		case "EMPTY.NS":
			w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		}
	})
	mux.HandleFunc("/v10/finance/quoteSummary/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crumb") != "abcCrumb" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/v10/finance/quoteSummary/") {
		case "RELIANCE.NS":
			w.Write([]byte(summaryBody))
		case "BARE.NS":
			w.Write([]byte(`{"quoteSummary":{"result":[{"price":{"shortName":"Bare Ltd"}}],"error":null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newSource(t *testing.T, f *fakeYahoo) *YahooFinanceSource {
	cfg := &models.MConfig{
		Network:  models.MNetworkConfig{RequestTimeout: 5, MaxRetries: 0, ConcurrentRequests: 4},
		Provider: models.MProviderConfig{YahooURL: f.URL},
	}
	s := NewYahooFinanceSource(cfg, network.NewAsyncNetworkManager(cfg, logger.NewLogger(nil, "test")))
	s.CookieURL = f.URL + "/cookie"
	return s
}

func TestFetchHistoryParsesDailyBars(t *testing.T) {
	f := newFakeYahoo(t)
	src := newSource(t, f)

	points, err := src.FetchHistory(context.Background(), "RELIANCE.NS", models.Period1Y)
	require.NoError(t, err)

	// null close dropped; two bars on the same local date collapse to the later one
	require.Len(t, points, 2)
	assert.Equal(t, 100.5, points[0].Close)
	assert.Equal(t, 103.5, points[1].Close)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.Equal(t, "Asia/Kolkata", points[0].Date.Location().String())

	q := f.lastQuery.Load().(interface{ Get(string) string })
	assert.Equal(t, "1y", q.Get("range"))
	assert.Equal(t, "1d", q.Get("interval"))
}

func TestFetchHistoryThreeYearsUsesExplicitWindow(t *testing.T) {
	f := newFakeYahoo(t)
	src := newSource(t, f)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	_, err := src.FetchHistory(context.Background(), "RELIANCE.NS", models.Period3Y)
	require.NoError(t, err)

	q := f.lastQuery.Load().(interface{ Get(string) string })
	assert.Empty(t, q.Get("range"))
	assert.NotEmpty(t, q.Get("period1"))
	assert.Equal(t, "1767348000", q.Get("period2"))
}

func TestFetchHistoryFailures(t *testing.T) {
	f := newFakeYahoo(t)
	src := newSource(t, f)

	_, err := src.FetchHistory(context.Background(), "NOPE.NS", models.Period1Mo)
	assert.ErrorIs(t, err, helpers.ErrDataUnavailable)
	assert.NotErrorIs(t, err, helpers.ErrEmptySeries)

	_, err = src.FetchHistory(context.Background(), "EMPTY.NS", models.Period1Mo)
	assert.ErrorIs(t, err, helpers.ErrDataUnavailable)
	assert.ErrorIs(t, err, helpers.ErrEmptySeries)
}

func TestFetchProfile(t *testing.T) {
	f := newFakeYahoo(t)
	src := newSource(t, f)

	snap, err := src.FetchProfile(context.Background(), "RELIANCE.NS")
	require.NoError(t, err)

	assert.Equal(t, "Reliance Industries Limited", snap.DisplayName.String)
	assert.True(t, snap.SummaryText.Valid)
	assert.Equal(t, 2891.0, snap.CurrentPrice.Float64)
	assert.Equal(t, 19500000000000.0, snap.MarketCap.Float64)
	assert.Equal(t, 28.456, snap.TrailingPE.Float64)
	assert.Equal(t, 0.0912, snap.ReturnOnEquity.Float64)
	assert.False(t, snap.DividendYield.Valid, "empty envelope must stay missing")
	assert.Equal(t, "INR", snap.Currency)

	// crumb is reused
	_, err = src.FetchProfile(context.Background(), "BARE.NS")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.crumbCalls.Load())
}

func TestFetchProfileMissingFields(t *testing.T) {
	f := newFakeYahoo(t)
	src := newSource(t, f)

	snap, err := src.FetchProfile(context.Background(), "BARE.NS")
	require.NoError(t, err)
	assert.Equal(t, "Bare Ltd", snap.DisplayName.String)
	assert.False(t, snap.SummaryText.Valid)
	assert.False(t, snap.CurrentPrice.Valid)
	assert.False(t, snap.Beta.Valid)

	_, err = src.FetchProfile(context.Background(), "NOPE.NS")
	assert.ErrorIs(t, err, helpers.ErrDataUnavailable)
}
