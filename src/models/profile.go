package models

import "github.com/guregu/null/v6"

// MProfileSnapshot holds the fundamentals of one ticker. Fields the upstream
// response lacks stay invalid (JSON null) rather than zero.
type MProfileSnapshot struct {
	Ticker         string      `json:"ticker"`
	Currency       string      `json:"currency,omitempty"`
	DisplayName    null.String `json:"display_name"`
	SummaryText    null.String `json:"summary_text"`
	CurrentPrice   null.Float  `json:"current_price"`
	MarketCap      null.Float  `json:"market_cap"`
	Week52High     null.Float  `json:"week52_high"`
	Week52Low      null.Float  `json:"week52_low"`
	TrailingPE     null.Float  `json:"trailing_pe"`
	ReturnOnEquity null.Float  `json:"return_on_equity"`
	DividendYield  null.Float  `json:"dividend_yield"`
	Beta           null.Float  `json:"beta"`
}
