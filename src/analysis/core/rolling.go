package core

import (
	"github.com/guregu/null/v6"
	"github.com/montanaflynn/stats"
)

// -----------------------------------------------------------------------------

// RollingMean computes the trailing simple mean over window values. Index i is
// missing while i < window-1; a non-positive window yields an all-missing column.
func RollingMean(values []float64, window int) []null.Float {
	out := make([]null.Float, len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		mean, err := stats.Mean(values[i-window+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = null.FloatFrom(mean)
	}
	return out
}
