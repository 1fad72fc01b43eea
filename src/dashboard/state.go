package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nifty-dashboard/src/analysis"
	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Dependents maps each input to the outputs derived from it.
var Dependents = map[models.InputName][]models.OutputName{
	models.InputSelectedTicker: models.AllOutputs,
	models.InputPeriod:         {models.OutputChart},
	models.InputMovingAverages: {models.OutputChart},
}

var errSuperseded = errors.New("result superseded by a newer input")

// slot is the memo of one output. gen moves every time the slot goes Stale.
type slot struct {
	output models.MOutput
	gen    uint64
}

// profileResult memoizes one profile fetch for the current ticker epoch so
// the four profile outputs see the same answer.
type profileResult struct {
	ticker  string
	epoch   uint64
	profile models.MProfileSnapshot
	err     error
}

// DashboardState owns the inputs of one session and lazily derives the five
// outputs from them.
type DashboardState struct {
	ID        string
	Quotes    interfaces.IQuoteCache
	Directory interfaces.ITickerDirectory
	Charts    *analysis.AnalysisFacade
	Format    *Formatter
	Logger    *logger.Logger
	// Windows is the checklist a moving average selection must come from.
	Windows   models.MovingAverageSet

	mu       sync.Mutex
	inputs   models.MDashboardInputs
	slots    map[models.OutputName]*slot
	epoch    uint64
	profile  *profileResult
	lastUsed time.Time
	now      func() time.Time
	sf       singleflight.Group

	pushMu  sync.Mutex
	pushSeq atomic.Uint64
}

// -----------------------------------------------------------------------------

func NewDashboardState(id string, quotes interfaces.IQuoteCache, directory interfaces.ITickerDirectory, charts *analysis.AnalysisFacade, format *Formatter, defaults models.MDashboardInputs, log *logger.Logger) *DashboardState {
	if log == nil {
		log = logger.NewLogger(nil, "dashboard")
	}
	d := &DashboardState{
		ID:        id,
		Quotes:    quotes,
		Directory: directory,
		Charts:    charts,
		Format:    format,
		Logger:    log,
		Windows:   models.NewMovingAverageSet(models.DefaultMovingAverageWindows...),
		inputs:    defaults.Clone(),
		slots:     make(map[models.OutputName]*slot, len(models.AllOutputs)),
		now:       time.Now,
	}
	if d.inputs.Period == "" {
		d.inputs.Period = models.PeriodMax
	}
	if d.inputs.MovingAverages == nil {
		d.inputs.MovingAverages = models.MovingAverageSet{}
	}
	for _, name := range models.AllOutputs {
		d.slots[name] = &slot{output: models.MOutput{Name: name, State: models.StateStale}}
	}
	d.lastUsed = d.now()
	return d
}

// -----------------------------------------------------------------------------

// SetInput applies a raw input value as received from a client.
func (d *DashboardState) SetInput(name models.InputName, value any) error {
	switch name {
	case models.InputSelectedTicker:
		ticker, err := asString(value)
		if err != nil {
			return err
		}
		return d.SelectTicker(ticker)

	case models.InputPeriod:
		raw, err := asString(value)
		if err != nil {
			return err
		}
		period, err := models.ParsePeriod(raw)
		if err != nil {
			return helpers.NewValidationError("%v", err)
		}
		return d.SetPeriod(period)

	case models.InputMovingAverages:
		windows, err := asWindows(value)
		if err != nil {
			return err
		}
		return d.SetMovingAverages(windows)

	default:
		return helpers.NewValidationError("unknown input %q", name)
	}
}

// -----------------------------------------------------------------------------

// SelectTicker changes the selection. An empty ticker clears it; a ticker
// outside the directory is rejected before anything is fetched.
func (d *DashboardState) SelectTicker(ticker string) error {
	ticker = strings.TrimSpace(ticker)
	if ticker != "" && !d.Directory.Contains(ticker) {
		return helpers.NewUnknownTicker(ticker)
	}

	d.apply(models.InputSelectedTicker, func(in *models.MDashboardInputs) bool {
		changed := in.SelectedTicker != ticker
		in.SelectedTicker = ticker
		return changed
	})
	return nil
}

// -----------------------------------------------------------------------------

func (d *DashboardState) SetPeriod(period models.Period) error {
	if !period.Valid() {
		return helpers.NewValidationError("invalid period %q", period)
	}

	d.apply(models.InputPeriod, func(in *models.MDashboardInputs) bool {
		changed := in.Period != period
		in.Period = period
		return changed
	})
	return nil
}

// -----------------------------------------------------------------------------

// SetMovingAverages replaces the window set. Order and duplicates are ignored.
func (d *DashboardState) SetMovingAverages(windows models.MovingAverageSet) error {
	for _, w := range windows {
		if w <= 0 {
			return helpers.NewValidationError("moving average window must be positive, got %d", w)
		}
		if !d.Windows.Contains(w) {
			return helpers.NewValidationError("moving average window %d is not one of %v", w, d.Windows)
		}
	}
	set := models.NewMovingAverageSet(windows...)

	d.apply(models.InputMovingAverages, func(in *models.MDashboardInputs) bool {
		changed := !in.MovingAverages.Equal(set)
		in.MovingAverages = set
		return changed
	})
	return nil
}

// -----------------------------------------------------------------------------

// apply mutates the inputs and invalidates dependents. When the value did not
// change, only dependents sitting in Error are re-marked Stale.
func (d *DashboardState) apply(name models.InputName, mutate func(*models.MDashboardInputs) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastUsed = d.now()
	changed := mutate(&d.inputs)

	invalidated := 0
	for _, out := range Dependents[name] {
		s := d.slots[out]
		if changed || s.output.State == models.StateError {
			s.gen++
			s.output.State = models.StateStale
			invalidated++
		}
	}

	if name == models.InputSelectedTicker && invalidated > 0 {
		d.epoch++
		d.profile = nil
	}

	if invalidated > 0 {
		d.Logger.Debug("Session %s: %s changed=%t, %d outputs stale", d.ID, name, changed, invalidated)
	}
}

// -----------------------------------------------------------------------------

// GetOutput returns the memoized output, recomputing it when Stale. Fetch
// failures become an Error output; only cancellation and unknown names are
// returned as errors.
func (d *DashboardState) GetOutput(ctx context.Context, name models.OutputName) (models.MOutput, error) {
	d.mu.Lock()
	s, ok := d.slots[name]
	d.lastUsed = d.now()
	d.mu.Unlock()
	if !ok {
		return models.MOutput{}, helpers.NewValidationError("unknown output %q", name)
	}

	for {
		if err := ctx.Err(); err != nil {
			return models.MOutput{}, err
		}

		d.mu.Lock()
		if s.output.State != models.StateStale {
			out := s.output
			d.mu.Unlock()
			return out, nil
		}
		gen := s.gen
		epoch := d.epoch
		inputs := d.inputs.Clone()
		d.mu.Unlock()

		key := fmt.Sprintf("%s#%d", name, gen)
		v, err, _ := d.sf.Do(key, func() (interface{}, error) {
			out, err := d.compute(ctx, name, inputs, epoch)
			if err != nil {
				return nil, err
			}

			d.mu.Lock()
			defer d.mu.Unlock()
			if s.gen != gen {
				return nil, errSuperseded
			}
			s.output = out
			return out, nil
		})

		switch {
		case err == nil:
			return v.(models.MOutput), nil
		case errors.Is(err, errSuperseded):
			d.Logger.Debug("Session %s: discarded superseded %s result", d.ID, name)
			continue
		case isCancellation(err) && ctx.Err() == nil:
			// The caller leading the shared computation went away; retry on ours.
			continue
		default:
			return models.MOutput{}, err
		}
	}
}

// -----------------------------------------------------------------------------

func (d *DashboardState) compute(ctx context.Context, name models.OutputName, inputs models.MDashboardInputs, epoch uint64) (models.MOutput, error) {
	out := models.MOutput{Name: name, Inputs: inputs, ComputedAt: d.now()}

	if !inputs.HasSelection() {
		out.State = models.StateFresh
		out.Kind = models.KindNoSelection
		return out, nil
	}
	ticker := inputs.SelectedTicker

	if name == models.OutputChart {
		points, err := d.Quotes.GetSeries(ctx, ticker, inputs.Period)
		if err != nil && (ctx.Err() != nil || isCancellation(err)) {
			return models.MOutput{}, err
		}
		if errors.Is(err, helpers.ErrEmptySeries) || (err == nil && len(points) == 0) {
			out.State = models.StateFresh
			out.Kind = models.KindNoData
			return out, nil
		}
		if err != nil {
			return failed(out, err), nil
		}

		out.State = models.StateFresh
		out.Kind = models.KindValue
		out.Value = d.Charts.BuildChart(ticker, inputs.Period, inputs.MovingAverages, points)
		return out, nil
	}

	profile, err := d.loadProfile(ctx, ticker, epoch)
	if err != nil {
		if ctx.Err() != nil || isCancellation(err) {
			return models.MOutput{}, err
		}
		return failed(out, err), nil
	}

	out.State = models.StateFresh
	out.Kind = models.KindValue
	switch name {
	case models.OutputHeading:
		out.Value = models.MHeading{Ticker: ticker, DisplayName: profile.DisplayName}
	case models.OutputSummary:
		out.Value = models.MSummary{Ticker: ticker, Text: profile.SummaryText}
	case models.OutputFundamental:
		profile.Ticker = ticker
		out.Value = d.Format.Fundamentals(profile)
	case models.OutputRatios:
		profile.Ticker = ticker
		out.Value = d.Format.Ratios(profile)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// loadProfile shares one profile fetch between the profile outputs of the
// current selection, including concurrent callers.
func (d *DashboardState) loadProfile(ctx context.Context, ticker string, epoch uint64) (models.MProfileSnapshot, error) {
	d.mu.Lock()
	if p := d.profile; p != nil && p.ticker == ticker && p.epoch == epoch {
		d.mu.Unlock()
		return p.profile, p.err
	}
	d.mu.Unlock()

	key := fmt.Sprintf("profile|%s#%d", ticker, epoch)
	v, err, _ := d.sf.Do(key, func() (interface{}, error) {
		profile, err := d.Quotes.GetProfile(ctx, ticker)
		if err != nil && (ctx.Err() != nil || isCancellation(err)) {
			return nil, err
		}

		res := &profileResult{ticker: ticker, epoch: epoch, profile: profile, err: err}
		d.mu.Lock()
		if d.epoch == epoch {
			d.profile = res
		}
		d.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return models.MProfileSnapshot{}, err
	}
	res := v.(*profileResult)
	return res.profile, res.err
}

// -----------------------------------------------------------------------------

// Refresh recomputes every Stale output concurrently and returns all five
// outputs in render order.
func (d *DashboardState) Refresh(ctx context.Context) ([]models.MOutput, error) {
	outputs := make([]models.MOutput, len(models.AllOutputs))

	var g errgroup.Group
	for i, name := range models.AllOutputs {
		g.Go(func() error {
			out, err := d.GetOutput(ctx, name)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// -----------------------------------------------------------------------------

// Publish refreshes the outputs and hands them to send. Publishes of one
// session run one at a time; a publish overtaken by a later one, or whose
// outputs no longer match the inputs, is dropped and reports false.
func (d *DashboardState) Publish(ctx context.Context, send func([]models.MOutput, error)) bool {
	seq := d.pushSeq.Add(1)

	d.pushMu.Lock()
	defer d.pushMu.Unlock()
	if d.pushSeq.Load() != seq {
		return false
	}

	outputs, err := d.Refresh(ctx)
	if d.pushSeq.Load() != seq || (err == nil && !d.Current(outputs)) {
		d.Logger.Debug("Session %s: dropped publish #%d", d.ID, seq)
		return false
	}
	send(outputs, err)
	return true
}

// -----------------------------------------------------------------------------

// Current reports whether every output was derived from the inputs it
// depends on as they stand now.
func (d *DashboardState) Current(outputs []models.MOutput) bool {
	inputs := d.Inputs()
	for _, out := range outputs {
		for name, dependents := range Dependents {
			if slices.Contains(dependents, out.Name) && !sameInput(name, out.Inputs, inputs) {
				return false
			}
		}
	}
	return true
}

// -----------------------------------------------------------------------------

func sameInput(name models.InputName, a, b models.MDashboardInputs) bool {
	switch name {
	case models.InputSelectedTicker:
		return a.SelectedTicker == b.SelectedTicker
	case models.InputPeriod:
		return a.Period == b.Period
	case models.InputMovingAverages:
		return a.MovingAverages.Equal(b.MovingAverages)
	}
	return true
}

// -----------------------------------------------------------------------------

func (d *DashboardState) States() map[models.OutputName]models.OutputState {
	d.mu.Lock()
	defer d.mu.Unlock()

	states := make(map[models.OutputName]models.OutputState, len(d.slots))
	for name, s := range d.slots {
		states[name] = s.output.State
	}
	return states
}

// -----------------------------------------------------------------------------

func (d *DashboardState) Inputs() models.MDashboardInputs {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs.Clone()
}

// -----------------------------------------------------------------------------

// LastUsed is the time of the latest input change or output read.
func (d *DashboardState) LastUsed() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastUsed
}

// -----------------------------------------------------------------------------

func failed(out models.MOutput, err error) models.MOutput {
	out.State = models.StateError
	out.Kind = models.KindError
	out.Error = err.Error()
	return out
}

// -----------------------------------------------------------------------------

// isCancellation matches a caller going away. Upstream timeouts are ordinary
// fetch failures.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// -----------------------------------------------------------------------------

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case models.Period:
		return string(v), nil
	default:
		return "", helpers.NewValidationError("expected a string, got %T", value)
	}
}

// -----------------------------------------------------------------------------

// asWindows accepts a set, an int slice, a decoded JSON array or "50,200".
func asWindows(value any) (models.MovingAverageSet, error) {
	switch v := value.(type) {
	case nil:
		return models.MovingAverageSet{}, nil
	case models.MovingAverageSet:
		return v, nil
	case []models.MovingAverageWindow:
		return models.MovingAverageSet(v), nil
	case []int:
		out := make(models.MovingAverageSet, len(v))
		for i, w := range v {
			out[i] = models.MovingAverageWindow(w)
		}
		return out, nil
	case []any:
		out := make(models.MovingAverageSet, 0, len(v))
		for _, item := range v {
			w, err := asWindow(item)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	case string:
		set, err := models.ParseMovingAverageSet(v)
		if err != nil {
			return nil, helpers.NewValidationError("%v", err)
		}
		return set, nil
	default:
		return nil, helpers.NewValidationError("expected a list of windows, got %T", value)
	}
}

// -----------------------------------------------------------------------------

func asWindow(item any) (models.MovingAverageWindow, error) {
	switch w := item.(type) {
	case float64:
		if w != float64(int(w)) {
			return 0, helpers.NewValidationError("window %v is not an integer", w)
		}
		return models.MovingAverageWindow(int(w)), nil
	case int:
		return models.MovingAverageWindow(w), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(w)), "DMA"))
		if err != nil {
			return 0, helpers.NewValidationError("invalid window %q", w)
		}
		return models.MovingAverageWindow(n), nil
	default:
		return 0, helpers.NewValidationError("invalid window %v", item)
	}
}
