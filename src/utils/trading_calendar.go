package utils

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/scmhub/calendar"
)

// exchangeInfo describes where a ticker suffix trades and the session used
// when scmhub/calendar has no calendar for the MIC.
type exchangeInfo struct {
	MIC      string
	Zone     string
	OpenMin  int
	CloseMin int
}

// Yahoo ticker suffixes, first match wins.
var suffixExchanges = []struct {
	Suffix string
	Info   exchangeInfo
}{
	{".NS", exchangeInfo{"xnse", "Asia/Kolkata", 9*60 + 15, 15*60 + 30}},
	{".BO", exchangeInfo{"xbom", "Asia/Kolkata", 9*60 + 15, 15*60 + 30}},
	{".L", exchangeInfo{"xlon", "Europe/London", 8 * 60, 16*60 + 30}},
	{".PA", exchangeInfo{"xpar", "Europe/Paris", 9 * 60, 17*60 + 30}},
	{".DE", exchangeInfo{"xfra", "Europe/Berlin", 9 * 60, 17*60 + 30}},
	{".HK", exchangeInfo{"xhkg", "Asia/Hong_Kong", 9*60 + 30, 16 * 60}},
	{".T", exchangeInfo{"xtks", "Asia/Tokyo", 9 * 60, 15 * 60}},
	{".TO", exchangeInfo{"xtse", "America/Toronto", 9*60 + 30, 16 * 60}},
	{".AX", exchangeInfo{"xasx", "Australia/Sydney", 10 * 60, 16 * 60}},
}

var defaultExchange = exchangeInfo{"xnys", "America/New_York", 9*60 + 30, 16 * 60}

// TradingCalendar calculates trading days using scmhub/calendar.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
	openMin  int
	closeMin int
}

// -----------------------------------------------------------------------------

// ExchangeFor maps a ticker suffix to its MIC (ISO 10383).
func ExchangeFor(ticker string) exchangeInfo {
	upper := strings.ToUpper(ticker)
	for _, e := range suffixExchanges {
		if strings.HasSuffix(upper, e.Suffix) {
			return e.Info
		}
	}
	return defaultExchange
}

// -----------------------------------------------------------------------------

func GetCalendar(ticker string) *TradingCalendar {
	info := ExchangeFor(ticker)

	if cal := calendar.GetCalendar(info.MIC); cal != nil {
		return &TradingCalendar{MIC: info.MIC, Calendar: cal, Timezone: cal.Loc}
	}

	// Weekday session in the exchange's zone when the library lacks the MIC.
	loc, err := time.LoadLocation(info.Zone)
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{
		MIC:      info.MIC,
		Fallback: true,
		Timezone: loc,
		openMin:  info.OpenMin,
		closeMin: info.CloseMin,
	}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		m := t.Hour()*60 + t.Minute()
		return m >= tc.openMin && m < tc.closeMin
	}

	return tc.Calendar.IsOpen(t)
}
