package analysis

import (
	"time"

	"nifty-dashboard/src/analysis/core"
	"nifty-dashboard/src/models"

	"github.com/guregu/null/v6"
)

// ComputeDerived turns daily bars into aligned plot columns with one trailing
// SMA column per window. It is pure; the caller's slice is not modified.
func ComputeDerived(points []models.MPricePoint, windows models.MovingAverageSet) models.MDerivedSeries {
	out := models.MDerivedSeries{
		Dates:          make([]time.Time, len(points)),
		Close:          make([]float64, len(points)),
		MovingAverages: make(map[models.MovingAverageWindow][]null.Float),
	}
	if len(points) == 0 {
		return out
	}

	for i, p := range points {
		out.Dates[i] = p.Date
		out.Close[i] = p.Close
	}

	for _, w := range windows {
		if w <= 0 {
			continue
		}
		out.MovingAverages[w] = core.RollingMean(out.Close, int(w))
	}
	return out
}
