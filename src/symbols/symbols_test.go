package symbols

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNetwork struct {
	body  []byte
	err   error
	calls int
}

func (s *stubNetwork) Get(_ context.Context, _ string, _ map[string]string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

const constituentsPage = `<html><body>
<table class="infobox"><tr><th>Exchange</th><td>NSE</td></tr></table>
<table class="wikitable"><tr><th>Rank</th><th>Name</th></tr><tr><td>1</td><td>Something</td></tr></table>
<table class="wikitable sortable">
<tbody>
<tr><th>Company name</th><th>Symbol</th><th>Sector</th></tr>
<tr><td>Reliance Industries</td><td>RELIANCE</td><td>Energy</td></tr>
<tr><td>Tata Consultancy Services</td><td> TCS
</td><td>IT</td></tr>
<tr><td>Infosys</td><td>INFY</td><td>IT</td></tr>
<tr><td colspan="3">footnote</td></tr>
</tbody>
</table>
</body></html>`

func newDirectory() *SymbolDirectory {
	return NewSymbolDirectory([]models.MSymbolListing{
		{Symbol: "RELIANCE", ExchangeSuffix: ".NS"},
		{Symbol: "TCS", ExchangeSuffix: ".NS"},
		{Symbol: "INFY", ExchangeSuffix: ".NS"},
		{Symbol: "TCS", ExchangeSuffix: ".NS"},
	})
}

func TestSymbolDirectorySearch(t *testing.T) {
	d := newDirectory()
	require.Equal(t, 3, d.Len())

	got, ok := d.Search("tc")
	require.True(t, ok)
	assert.Equal(t, []models.MTickerOption{{Label: "TCS", Value: "TCS.NS"}}, got)

	got, ok = d.Search("I")
	require.True(t, ok)
	assert.Equal(t, []string{"RELIANCE.NS", "INFY.NS"}, []string{got[0].Value, got[1].Value})

	got, ok = d.Search("zzz")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSymbolDirectoryEmptyQueryIsNoOp(t *testing.T) {
	d := newDirectory()
	got, ok := d.Search("")
	assert.False(t, ok)
	assert.Nil(t, got)

	// Whitespace is a real query and is matched as typed.
	got, ok = d.Search("   ")
	assert.True(t, ok)
	assert.Empty(t, got)

	got, ok = d.Search(" tcs")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSymbolDirectoryLookup(t *testing.T) {
	d := newDirectory()
	assert.True(t, d.Contains("TCS.NS"))
	assert.False(t, d.Contains("TCS"))
	assert.False(t, d.Contains("XYZ.NS"))

	l, ok := d.Lookup("INFY.NS")
	require.True(t, ok)
	assert.Equal(t, "INFY", l.Symbol)

	all := d.All()
	all[0].Label = "changed"
	assert.Equal(t, "RELIANCE", d.All()[0].Label)
}

func TestLoadFailsOnErrorOrEmpty(t *testing.T) {
	log := logger.NewLogger(nil, "test")

	_, err := Load(context.Background(), &WikipediaSource{Network: &stubNetwork{err: errors.New("offline")}}, log)
	assert.ErrorContains(t, err, "offline")

	_, err = Load(context.Background(), &StaticSource{}, log)
	assert.ErrorContains(t, err, "no listings")

	dir, err := Load(context.Background(), &StaticSource{Symbols: []string{"SBIN", " "}, Suffix: ".NS"}, log)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.Len())
	assert.Equal(t, "static", dir.Source)
}

func TestWikipediaSourceFindsSymbolTable(t *testing.T) {
	net := &stubNetwork{body: []byte(constituentsPage)}
	src := NewWikipediaSource(models.MSymbolsConfig{URL: "http://wiki/NIFTY_50", TableIndex: 2, ExchangeSuffix: ".NS"}, net, logger.NewLogger(nil, "test"))

	listings, err := src.LoadListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "RELIANCE.NS", listings[0].Ticker())
	assert.Equal(t, "TCS.NS", listings[1].Ticker())
	assert.Equal(t, "INFY.NS", listings[2].Ticker())
	assert.Equal(t, 1, net.calls)
}

func TestWikipediaSourceWithoutSymbolColumn(t *testing.T) {
	net := &stubNetwork{body: []byte(`<table><tr><th>Name</th></tr><tr><td>x</td></tr></table>`)}
	src := NewWikipediaSource(models.MSymbolsConfig{TableIndex: 0, ExchangeSuffix: ".NS"}, net, nil)

	_, err := src.LoadListings(context.Background())
	assert.ErrorContains(t, err, "Symbol column")
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ind_nifty50list.csv")
	data := "Company Name,Industry,Symbol,Series,ISIN Code\n" +
		"Adani Enterprises Ltd.,Metals & Mining,ADANIENT,EQ,INE423A01024\n" +
		"Asian Paints Ltd.,Consumer Durables,ASIANPAINT,EQ,INE021A01026\n" +
		"Blank Row,Nothing,,EQ,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	listings, err := NewCSVSource(path, ".NS").LoadListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "ADANIENT.NS", listings[0].Ticker())
	assert.Equal(t, "ASIANPAINT.NS", listings[1].Ticker())

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), ".NS").LoadListings(context.Background())
	assert.Error(t, err)
}

func TestNewSymbolSource(t *testing.T) {
	cfg := &models.MConfig{Symbols: models.MSymbolsConfig{Source: "static", Static: []string{"TCS"}}}
	src, err := NewSymbolSource(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "static", src.Name())

	cfg.Symbols.Source = "yaml"
	_, err = NewSymbolSource(cfg, nil, nil)
	assert.Error(t, err)
}
