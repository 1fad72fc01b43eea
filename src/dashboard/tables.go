package dashboard

import (
	"math"

	"nifty-dashboard/src/models"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const missingDisplay = "N/A"

var crore = decimal.NewFromInt(10_000_000)

// Formatter renders profile values for the tables with thousands grouping.
type Formatter struct {
	Currency string
	printer  *message.Printer
}

// -----------------------------------------------------------------------------

func NewFormatter(currency string) *Formatter {
	return &Formatter{
		Currency: currency,
		printer:  message.NewPrinter(language.English),
	}
}

// -----------------------------------------------------------------------------

func (f *Formatter) money(v null.Float) string {
	if !present(v) {
		return missingDisplay
	}
	return f.printer.Sprintf("%s %.2f", f.Currency, decimal.NewFromFloat(v.Float64).Round(2).InexactFloat64())
}

// -----------------------------------------------------------------------------

func (f *Formatter) fixed(v null.Float) string {
	if !present(v) {
		return missingDisplay
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2)
}

// -----------------------------------------------------------------------------

func (f *Formatter) percent(v null.Float) string {
	if !present(v) {
		return missingDisplay
	}
	return decimal.NewFromFloat(v.Float64).Mul(decimal.NewFromInt(100)).StringFixed(2) + " %"
}

// -----------------------------------------------------------------------------

// Fundamentals builds the price table. Market cap is shown in whole crores.
func (f *Formatter) Fundamentals(p models.MProfileSnapshot) models.MTable {
	capRow := models.MTableRow{Label: "Market Cap", Display: missingDisplay}
	if present(p.MarketCap) {
		cr := decimal.NewFromFloat(p.MarketCap.Float64).Div(crore).Floor()
		capRow.Value = null.FloatFrom(cr.InexactFloat64())
		capRow.Display = f.printer.Sprintf("%s %d Cr.", f.Currency, cr.IntPart())
	}

	return models.MTable{
		Ticker: p.Ticker,
		Title:  "Fundamentals",
		Rows: []models.MTableRow{
			{Label: "Current Price", Value: valueOf(p.CurrentPrice), Display: f.money(p.CurrentPrice)},
			capRow,
			{Label: "52 Week High", Value: valueOf(p.Week52High), Display: f.money(p.Week52High)},
			{Label: "52 Week Low", Value: valueOf(p.Week52Low), Display: f.money(p.Week52Low)},
		},
	}
}

// -----------------------------------------------------------------------------

// Ratios builds the valuation table. Fractions are shown as percentages.
func (f *Formatter) Ratios(p models.MProfileSnapshot) models.MTable {
	return models.MTable{
		Ticker: p.Ticker,
		Title:  "Ratios",
		Rows: []models.MTableRow{
			{Label: "Stock P/E", Value: round2(p.TrailingPE), Display: f.fixed(p.TrailingPE)},
			{Label: "ROE", Value: asPercent(p.ReturnOnEquity), Display: f.percent(p.ReturnOnEquity)},
			{Label: "Dividend Yield", Value: asPercent(p.DividendYield), Display: f.percent(p.DividendYield)},
			{Label: "Beta", Value: round2(p.Beta), Display: f.fixed(p.Beta)},
		},
	}
}

// -----------------------------------------------------------------------------

// present treats NaN and infinities as missing.
func present(v null.Float) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// -----------------------------------------------------------------------------

func valueOf(v null.Float) null.Float {
	if !present(v) {
		return null.Float{}
	}
	return v
}

// -----------------------------------------------------------------------------

func round2(v null.Float) null.Float {
	if !present(v) {
		return null.Float{}
	}
	return null.FloatFrom(decimal.NewFromFloat(v.Float64).Round(2).InexactFloat64())
}

// -----------------------------------------------------------------------------

func asPercent(v null.Float) null.Float {
	if !present(v) {
		return null.Float{}
	}
	return null.FloatFrom(decimal.NewFromFloat(v.Float64).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64())
}
