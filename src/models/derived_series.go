package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// MDerivedSeries is the plot-ready series: every array is index-aligned with
// the source price points.
type MDerivedSeries struct {
	Dates          []time.Time                          `json:"dates"`
	Close          []float64                            `json:"close"`
	MovingAverages map[MovingAverageWindow][]null.Float `json:"moving_averages"`
}

// Len is the number of aligned rows.
func (d MDerivedSeries) Len() int {
	return len(d.Dates)
}

// -----------------------------------------------------------------------------

// Defined counts the non-missing values of one moving-average column.
func (d MDerivedSeries) Defined(w MovingAverageWindow) int {
	n := 0
	for _, v := range d.MovingAverages[w] {
		if v.Valid {
			n++
		}
	}
	return n
}
