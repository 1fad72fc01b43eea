package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nifty-dashboard/src/analysis"
	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory map[string]bool

func (d stubDirectory) Contains(ticker string) bool { return d[ticker] }

type stubQuotes struct {
	series     map[string][]models.MPricePoint
	seriesErr  error
	profileErr error
	gate       chan struct{}
	started    chan string

	seriesCalls  atomic.Int32
	profileCalls atomic.Int32
}

func (s *stubQuotes) GetSeries(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error) {
	s.seriesCalls.Add(1)
	if s.started != nil {
		s.started <- ticker
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.seriesErr != nil {
		return nil, s.seriesErr
	}
	return s.series[ticker+"|"+string(period)], nil
}

func (s *stubQuotes) GetProfile(_ context.Context, ticker string) (models.MProfileSnapshot, error) {
	s.profileCalls.Add(1)
	if s.profileErr != nil {
		return models.MProfileSnapshot{}, s.profileErr
	}
	return models.MProfileSnapshot{
		Ticker:         ticker,
		DisplayName:    null.StringFrom("Reliance Industries Limited"),
		SummaryText:    null.StringFrom("Reliance Industries Limited engages in hydrocarbon exploration."),
		CurrentPrice:   null.FloatFrom(2456.75),
		MarketCap:      null.FloatFrom(16_620_000_000_000),
		Week52High:     null.FloatFrom(3217.9),
		Week52Low:      null.FloatFrom(2220.3),
		TrailingPE:     null.FloatFrom(24.567),
		ReturnOnEquity: null.FloatFrom(0.0912),
		DividendYield:  null.FloatFrom(0.0035),
		Beta:           null.FloatFrom(0.8),
	}, nil
}

func flat(n int, v float64) []models.MPricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.MPricePoint, n)
	for i := range out {
		out[i] = models.MPricePoint{Date: start.AddDate(0, 0, i), Close: v}
	}
	return out
}

var directory = stubDirectory{"RELIANCE.NS": true, "TCS.NS": true, "INFY.NS": true}

func newState(q *stubQuotes) *DashboardState {
	log := logger.NewLogger(nil, "test")
	return NewDashboardState("test", q, directory, analysis.NewAnalysisFacade(log), NewFormatter("₹"),
		models.MDashboardInputs{Period: models.PeriodMax}, log)
}

func render(t *testing.T, d *DashboardState) map[models.OutputName]models.MOutput {
	t.Helper()
	outs, err := d.Refresh(context.Background())
	require.NoError(t, err)
	got := make(map[models.OutputName]models.MOutput, len(outs))
	for _, o := range outs {
		got[o.Name] = o
	}
	return got
}

func TestNoSelectionYieldsSentinelsWithoutFetching(t *testing.T) {
	q := &stubQuotes{}
	d := newState(q)

	for name, out := range render(t, d) {
		assert.Equal(t, models.StateFresh, out.State, name)
		assert.Equal(t, models.KindNoSelection, out.Kind, name)
		assert.Nil(t, out.Value, name)
	}
	assert.Equal(t, int32(0), q.seriesCalls.Load())
	assert.Equal(t, int32(0), q.profileCalls.Load())
}

func TestSelectTickerStalesEverything(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 3500)}}
	d := newState(q)
	render(t, d)

	require.NoError(t, d.SelectTicker("TCS.NS"))
	for _, st := range d.States() {
		assert.Equal(t, models.StateStale, st)
	}

	outs := render(t, d)
	heading := outs[models.OutputHeading].Value.(models.MHeading)
	assert.Equal(t, "Reliance Industries Limited", heading.DisplayName.String)
	assert.Equal(t, "TCS.NS", outs[models.OutputChart].Value.(models.MChart).Ticker)
	assert.Equal(t, int32(1), q.profileCalls.Load())
	assert.Equal(t, int32(1), q.seriesCalls.Load())
}

func TestGetOutputIsIdempotent(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 3500)}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	first, err := d.GetOutput(context.Background(), models.OutputChart)
	require.NoError(t, err)
	second, err := d.GetOutput(context.Background(), models.OutputChart)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), q.seriesCalls.Load())
}

func TestPeriodChangeStalesOnlyChart(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{
		"TCS.NS|max": flat(10, 3500),
		"TCS.NS|1y":  flat(5, 3500),
	}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))
	render(t, d)

	require.NoError(t, d.SetPeriod(models.Period1Y))
	states := d.States()
	assert.Equal(t, models.StateStale, states[models.OutputChart])
	for _, name := range []models.OutputName{models.OutputHeading, models.OutputSummary, models.OutputFundamental, models.OutputRatios} {
		assert.Equal(t, models.StateFresh, states[name], name)
	}

	out, err := d.GetOutput(context.Background(), models.OutputChart)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Value.(models.MChart).Series.Len())
	assert.Equal(t, int32(1), q.profileCalls.Load())
}

func TestEqualMovingAverageSetIsNoOp(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 3500)}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))
	require.NoError(t, d.SetMovingAverages(models.MovingAverageSet{200, 50}))
	render(t, d)

	require.NoError(t, d.SetMovingAverages(models.MovingAverageSet{50, 200, 50}))
	assert.Equal(t, models.StateFresh, d.States()[models.OutputChart])

	require.NoError(t, d.SetMovingAverages(models.MovingAverageSet{50}))
	assert.Equal(t, models.StateStale, d.States()[models.OutputChart])
}

func TestUnknownTickerRejectedBeforeFetch(t *testing.T) {
	q := &stubQuotes{}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	err := d.SelectTicker("XYZ.NS")
	require.Error(t, err)
	assert.ErrorIs(t, err, helpers.ErrUnknownTicker)
	var unknown *helpers.UnknownTickerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "XYZ.NS", unknown.Ticker)

	assert.Equal(t, "TCS.NS", d.Inputs().SelectedTicker)
	assert.Equal(t, int32(0), q.seriesCalls.Load())
	assert.Equal(t, int32(0), q.profileCalls.Load())
}

func TestClearingSelection(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"TCS.NS|max": flat(3, 1)}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))
	render(t, d)

	require.NoError(t, d.SetInput(models.InputSelectedTicker, nil))
	assert.False(t, d.Inputs().HasSelection())
	for _, out := range render(t, d) {
		assert.Equal(t, models.KindNoSelection, out.Kind)
	}
}

func TestProfileFailureIsolatedFromChart(t *testing.T) {
	q := &stubQuotes{
		series:     map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 3500)},
		profileErr: helpers.NewDataUnavailable("TCS.NS", "profile fetch for TCS.NS failed", errors.New("HTTP 500")),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	ctx := context.Background()
	var reasons []string
	for _, name := range []models.OutputName{models.OutputHeading, models.OutputSummary, models.OutputFundamental, models.OutputRatios} {
		out, err := d.GetOutput(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, models.StateError, out.State, name)
		assert.Equal(t, models.KindError, out.Kind, name)
		reasons = append(reasons, out.Error)
	}
	for _, r := range reasons {
		assert.Equal(t, reasons[0], r)
	}
	assert.Contains(t, reasons[0], "HTTP 500")
	assert.Equal(t, int32(1), q.profileCalls.Load())

	chart, err := d.GetOutput(ctx, models.OutputChart)
	require.NoError(t, err)
	assert.Equal(t, models.StateFresh, chart.State)
	assert.Equal(t, models.KindValue, chart.Kind)

	// Error outputs are memoized until the next input change.
	again, err := d.GetOutput(ctx, models.OutputHeading)
	require.NoError(t, err)
	assert.Equal(t, models.StateError, again.State)
	assert.Equal(t, int32(1), q.profileCalls.Load())
}

func TestReselectingRetriesOnlyErroredOutputs(t *testing.T) {
	q := &stubQuotes{
		series:     map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 3500)},
		profileErr: errors.New("timeout"),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))
	render(t, d)

	q.profileErr = nil
	require.NoError(t, d.SelectTicker("TCS.NS"))
	states := d.States()
	assert.Equal(t, models.StateStale, states[models.OutputHeading])
	assert.Equal(t, models.StateFresh, states[models.OutputChart])

	outs := render(t, d)
	assert.Equal(t, models.StateFresh, outs[models.OutputHeading].State)
	assert.Equal(t, int32(2), q.profileCalls.Load())
	assert.Equal(t, int32(1), q.seriesCalls.Load())
}

func TestEmptySeriesRendersNoData(t *testing.T) {
	for _, q := range []*stubQuotes{
		{seriesErr: helpers.NewEmptySeries("INFY.NS", "1mo")},
		{series: map[string][]models.MPricePoint{}},
	} {
		d := newState(q)
		require.NoError(t, d.SelectTicker("INFY.NS"))
		out, err := d.GetOutput(context.Background(), models.OutputChart)
		require.NoError(t, err)
		assert.Equal(t, models.StateFresh, out.State)
		assert.Equal(t, models.KindNoData, out.Kind)
	}
}

func TestSeriesFailureIsErrorState(t *testing.T) {
	q := &stubQuotes{seriesErr: helpers.NewDataUnavailable("INFY.NS", "history fetch for INFY.NS failed", errors.New("dns"))}
	d := newState(q)
	require.NoError(t, d.SelectTicker("INFY.NS"))

	out, err := d.GetOutput(context.Background(), models.OutputChart)
	require.NoError(t, err)
	assert.Equal(t, models.StateError, out.State)
	assert.Contains(t, out.Error, "history fetch for INFY.NS failed")
}

func TestFlatYearMovingAverages(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"RELIANCE.NS|1y": flat(252, 100)}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("RELIANCE.NS"))
	require.NoError(t, d.SetInput(models.InputPeriod, "1Yr"))
	require.NoError(t, d.SetInput(models.InputMovingAverages, []any{float64(50), float64(200)}))

	out, err := d.GetOutput(context.Background(), models.OutputChart)
	require.NoError(t, err)
	chart := out.Value.(models.MChart)

	assert.Equal(t, []string{"Price", "50DMA", "200DMA"}, chart.Traces)
	assert.Equal(t, 203, chart.Series.Defined(50))
	assert.Equal(t, 53, chart.Series.Defined(200))
	for _, v := range chart.Series.MovingAverages[200] {
		if v.Valid {
			assert.InDelta(t, 100.0, v.Float64, 1e-9)
		}
	}
}

func TestInFlightRequestsShareOneFetch(t *testing.T) {
	q := &stubQuotes{
		series:  map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 1)},
		gate:    make(chan struct{}),
		started: make(chan string, 8),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	var wg sync.WaitGroup
	results := make([]models.MOutput, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := d.GetOutput(context.Background(), models.OutputChart)
			assert.NoError(t, err)
			results[i] = out
		}()
	}

	<-q.started
	time.Sleep(50 * time.Millisecond)
	close(q.gate)
	wg.Wait()

	assert.Equal(t, int32(1), q.seriesCalls.Load())
	assert.Equal(t, results[0], results[1])
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	q := &stubQuotes{
		series: map[string][]models.MPricePoint{
			"TCS.NS|max":  flat(10, 1),
			"INFY.NS|max": flat(4, 2),
		},
		gate:    make(chan struct{}),
		started: make(chan string, 8),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	done := make(chan models.MOutput)
	go func() {
		out, err := d.GetOutput(context.Background(), models.OutputChart)
		assert.NoError(t, err)
		done <- out
	}()

	assert.Equal(t, "TCS.NS", <-q.started)
	require.NoError(t, d.SelectTicker("INFY.NS"))
	close(q.gate)

	out := <-done
	assert.Equal(t, "INFY.NS", out.Inputs.SelectedTicker)
	assert.Equal(t, "INFY.NS", out.Value.(models.MChart).Ticker)
	assert.Equal(t, 4, out.Value.(models.MChart).Series.Len())
	assert.Equal(t, int32(2), q.seriesCalls.Load())
}

func TestCancelledComputationIsNotCommitted(t *testing.T) {
	q := &stubQuotes{
		series:  map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 1)},
		gate:    make(chan struct{}),
		started: make(chan string, 8),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() {
		_, err := d.GetOutput(ctx, models.OutputChart)
		errCh <- err
	}()

	<-q.started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, models.StateStale, d.States()[models.OutputChart])
}

func TestPublishDropsOvertakenRefresh(t *testing.T) {
	q := &stubQuotes{
		series: map[string][]models.MPricePoint{
			"TCS.NS|max": flat(10, 1),
			"TCS.NS|1y":  flat(5, 2),
		},
		gate:    make(chan struct{}),
		started: make(chan string, 8),
	}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	var mu sync.Mutex
	var sent []models.MDashboardInputs
	record := func(outputs []models.MOutput, err error) {
		assert.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, outputs[len(outputs)-1].Inputs)
	}

	first := make(chan bool)
	go func() { first <- d.Publish(context.Background(), record) }()
	<-q.started

	require.NoError(t, d.SetPeriod(models.Period1Y))
	second := make(chan bool)
	go func() { second <- d.Publish(context.Background(), record) }()
	require.Eventually(t, func() bool { return d.pushSeq.Load() == 2 }, time.Second, time.Millisecond)

	close(q.gate)
	assert.False(t, <-first)
	assert.True(t, <-second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Equal(t, models.Period1Y, sent[0].Period)
}

func TestCurrentComparesOnlyDependencies(t *testing.T) {
	q := &stubQuotes{series: map[string][]models.MPricePoint{"TCS.NS|max": flat(10, 1)}}
	d := newState(q)
	require.NoError(t, d.SelectTicker("TCS.NS"))

	outs, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Current(outs))

	require.NoError(t, d.SetPeriod(models.Period1Y))
	assert.False(t, d.Current(outs))
	// The profile outputs do not depend on the period.
	assert.True(t, d.Current(outs[:len(outs)-1]))

	require.NoError(t, d.SelectTicker("INFY.NS"))
	assert.False(t, d.Current(outs[:1]))
}

func TestSetInputValidation(t *testing.T) {
	d := newState(&stubQuotes{})

	var verr *helpers.ValidationError
	assert.ErrorAs(t, d.SetInput(models.InputPeriod, "2w"), &verr)
	assert.ErrorAs(t, d.SetInput(models.InputPeriod, 12), &verr)
	assert.ErrorAs(t, d.SetInput(models.InputMovingAverages, []any{float64(0)}), &verr)
	assert.ErrorAs(t, d.SetInput(models.InputMovingAverages, []any{12.5}), &verr)
	assert.ErrorAs(t, d.SetInput(models.InputMovingAverages, []any{7.0, 100000.0}), &verr)
	assert.ErrorAs(t, d.SetInput(models.InputMovingAverages, "50,20"), &verr)
	assert.Empty(t, d.Inputs().MovingAverages)
	assert.ErrorAs(t, d.SetInput("volume", "x"), &verr)

	require.NoError(t, d.SetInput(models.InputMovingAverages, "50DMA, 100"))
	assert.Equal(t, models.MovingAverageSet{50, 100}, d.Inputs().MovingAverages)
	require.NoError(t, d.SetInput(models.InputPeriod, "6mo"))
	assert.Equal(t, models.Period6Mo, d.Inputs().Period)

	_, err := d.GetOutput(context.Background(), "volume")
	assert.Error(t, err)
}
