package models

import (
	"fmt"
	"strings"
	"time"
)

// Period is the fixed-enum lookback window for historical prices.
type Period string

const (
	Period1Mo Period = "1mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period3Y  Period = "3y"
	Period5Y  Period = "5y"
	PeriodMax Period = "max"
)

// AllPeriods in display order.
var AllPeriods = []Period{Period1Mo, Period6Mo, Period1Y, Period3Y, Period5Y, PeriodMax}

var periodLabels = map[Period]string{
	Period1Mo: "1m",
	Period6Mo: "6m",
	Period1Y:  "1Yr",
	Period3Y:  "3Yr",
	Period5Y:  "5Yr",
	PeriodMax: "Max",
}

// -----------------------------------------------------------------------------

// ParsePeriod accepts either the token ("1y") or the tab label ("1Yr"), case-insensitive.
func ParsePeriod(raw string) (Period, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range AllPeriods {
		if s == string(p) || s == strings.ToLower(periodLabels[p]) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", raw)
}

// -----------------------------------------------------------------------------

func (p Period) Valid() bool {
	_, ok := periodLabels[p]
	return ok
}

// -----------------------------------------------------------------------------

func (p Period) Label() string {
	return periodLabels[p]
}

// -----------------------------------------------------------------------------

// Lookback returns the calendar span covered by the period, zero for max.
func (p Period) Lookback() time.Duration {
	const day = 24 * time.Hour
	switch p {
	case Period1Mo:
		return 31 * day
	case Period6Mo:
		return 183 * day
	case Period1Y:
		return 366 * day
	case Period3Y:
		return 3*365*day + day
	case Period5Y:
		return 5*365*day + 2*day
	}
	return 0
}
