package core

import (
	"github.com/guregu/null/v6"
	"github.com/montanaflynn/stats"
)

// -----------------------------------------------------------------------------

// PeriodChange is the percent change from the first to the last close.
func PeriodChange(closes []float64) null.Float {
	if len(closes) < 2 || closes[0] == 0 {
		return null.Float{}
	}
	return null.FloatFrom((closes[len(closes)-1] - closes[0]) / closes[0] * 100)
}

// -----------------------------------------------------------------------------

// Range returns the lowest and highest close, both missing for an empty series.
func Range(closes []float64) (null.Float, null.Float) {
	lo, err := stats.Min(closes)
	if err != nil {
		return null.Float{}, null.Float{}
	}
	hi, _ := stats.Max(closes)
	return null.FloatFrom(lo), null.FloatFrom(hi)
}
