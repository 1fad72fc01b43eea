package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// InputName identifies one of the user-controlled dashboard inputs.
type InputName string

const (
	InputSelectedTicker InputName = "selectedTicker"
	InputPeriod         InputName = "period"
	InputMovingAverages InputName = "movingAverages"
)

// AllInputs in declaration order.
var AllInputs = []InputName{InputSelectedTicker, InputPeriod, InputMovingAverages}

// OutputName identifies one of the derived dashboard outputs.
type OutputName string

const (
	OutputHeading     OutputName = "heading"
	OutputSummary     OutputName = "summary"
	OutputFundamental OutputName = "fundamentalsTable"
	OutputRatios      OutputName = "ratiosTable"
	OutputChart       OutputName = "chart"
)

// AllOutputs in render order.
var AllOutputs = []OutputName{OutputHeading, OutputSummary, OutputFundamental, OutputRatios, OutputChart}

// OutputState of a derived output.
type OutputState string

const (
	StateStale OutputState = "stale"
	StateFresh OutputState = "fresh"
	StateError OutputState = "error"
)

// OutputKind tells the renderer how to read MOutput.Value.
type OutputKind string

const (
	KindValue       OutputKind = "value"
	KindNoSelection OutputKind = "no_selection"
	KindNoData      OutputKind = "no_data"
	KindError       OutputKind = "error"
)

// -----------------------------------------------------------------------------

// MDashboardInputs is the per-session mutable input state.
type MDashboardInputs struct {
	SelectedTicker string           `json:"selected_ticker"`
	Period         Period           `json:"period"`
	MovingAverages MovingAverageSet `json:"moving_averages"`
}

// HasSelection reports whether a ticker is selected.
func (in MDashboardInputs) HasSelection() bool {
	return in.SelectedTicker != ""
}

// Clone deep-copies the moving average set.
func (in MDashboardInputs) Clone() MDashboardInputs {
	in.MovingAverages = in.MovingAverages.Clone()
	return in
}

// -----------------------------------------------------------------------------

// MOutput is the memoized value of one derived output.
type MOutput struct {
	Name       OutputName       `json:"name"`
	State      OutputState      `json:"state"`
	Kind       OutputKind       `json:"kind"`
	Value      any              `json:"value,omitempty"`
	Error      string           `json:"error,omitempty"`
	Inputs     MDashboardInputs `json:"inputs"`
	ComputedAt time.Time        `json:"computed_at"`
}

// MHeading is the heading output payload.
type MHeading struct {
	Ticker      string      `json:"ticker"`
	DisplayName null.String `json:"display_name"`
}

// MSummary is the summary output payload.
type MSummary struct {
	Ticker string      `json:"ticker"`
	Text   null.String `json:"text"`
}

// MTableRow is one label/value row of a fundamentals or ratios table.
type MTableRow struct {
	Label   string     `json:"label"`
	Value   null.Float `json:"value"`
	Display string     `json:"display"`
}

// MTable is the fundamentals or ratios output payload.
type MTable struct {
	Ticker string      `json:"ticker"`
	Title  string      `json:"title"`
	Rows   []MTableRow `json:"rows"`
}

// MChart is the chart output payload.
type MChart struct {
	Ticker        string           `json:"ticker"`
	Period        Period           `json:"period"`
	Windows       MovingAverageSet `json:"windows"`
	Traces        []string         `json:"traces"`
	Series        MDerivedSeries   `json:"series"`
	ChangePercent null.Float       `json:"change_percent"`
	Low           null.Float       `json:"low"`
	High          null.Float       `json:"high"`
}
