package models

// MSymbolListing is one row yielded by a symbol source.
type MSymbolListing struct {
	Symbol         string `json:"symbol"`
	ExchangeSuffix string `json:"exchange_suffix"`
}

// Ticker returns the exchange-qualified symbol.
func (l MSymbolListing) Ticker() string {
	return l.Symbol + l.ExchangeSuffix
}

// MTickerOption is a label/value pair offered to the ticker selector.
type MTickerOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
