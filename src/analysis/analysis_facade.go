package analysis

import (
	"nifty-dashboard/src/analysis/core"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
)

// AnalysisFacade turns cached price history into the chart payload.
type AnalysisFacade struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{Logger: log}
}

// -----------------------------------------------------------------------------

// BuildChart assembles the chart for a non-empty series. Trace names follow
// the dashboard legend: "Price" then "<w>DMA" in ascending window order.
func (f *AnalysisFacade) BuildChart(ticker string, period models.Period, windows models.MovingAverageSet, points []models.MPricePoint) models.MChart {
	windows = models.NewMovingAverageSet(windows...)
	series := ComputeDerived(points, windows)

	traces := []string{"Price"}
	for _, w := range windows {
		traces = append(traces, w.TraceName())
	}

	lo, hi := core.Range(series.Close)
	chart := models.MChart{
		Ticker:        ticker,
		Period:        period,
		Windows:       windows,
		Traces:        traces,
		Series:        series,
		ChangePercent: core.PeriodChange(series.Close),
		Low:           lo,
		High:          hi,
	}

	if f.Logger != nil {
		f.Logger.Debug("Built chart for %s (%s): %d rows, windows %v", ticker, period, series.Len(), windows)
	}
	return chart
}
