package utils

import (
	"sync"
	"time"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
)

// MarketScheduler answers open/closed questions per ticker, caching one
// calendar per exchange.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(tickers []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	for _, t := range tickers {
		ms.calendarFor(t)
	}
	ms.Logger.Info("MarketScheduler: Mapped %d tickers to %d exchange calendars.", len(tickers), len(ms.Calendars))
	return ms
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) calendarFor(ticker string) *TradingCalendar {
	mic := ExchangeFor(ticker).MIC

	ms.mu.RLock()
	cal, ok := ms.Calendars[mic]
	ms.mu.RUnlock()
	if ok {
		return cal
	}

	cal = GetCalendar(ticker)
	ms.mu.Lock()
	ms.Calendars[mic] = cal
	ms.mu.Unlock()
	if cal.Fallback {
		ms.Logger.Warning("No exchange calendar for %s, using weekday session hours", mic)
	}
	return cal
}

// -----------------------------------------------------------------------------

// Status reports whether ticker's exchange trades today and is open at now.
func (ms *MarketScheduler) Status(ticker string, now time.Time) models.MMarketStatus {
	cal := ms.calendarFor(ticker)
	return models.MMarketStatus{
		Ticker:     ticker,
		Exchange:   cal.MIC,
		TradingDay: cal.IsTradingDay(now),
		Open:       cal.IsOpenOnMinute(now),
		Timestamp:  now.Unix(),
	}
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if any tracked exchange is currently open.
func (ms *MarketScheduler) AnyMarketOpen(now time.Time) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
