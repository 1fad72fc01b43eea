package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MovingAverageWindow is a trailing window length in trading days.
type MovingAverageWindow int

const (
	MA50  MovingAverageWindow = 50
	MA100 MovingAverageWindow = 100
	MA200 MovingAverageWindow = 200
)

// DefaultMovingAverageWindows offered by the dashboard checklist.
var DefaultMovingAverageWindows = []MovingAverageWindow{MA50, MA100, MA200}

// TraceName is the chart series name for the window, e.g. "50DMA".
func (w MovingAverageWindow) TraceName() string {
	return fmt.Sprintf("%dDMA", int(w))
}

// -----------------------------------------------------------------------------

// MovingAverageSet is a sorted, duplicate-free set of windows.
type MovingAverageSet []MovingAverageWindow

// NewMovingAverageSet normalizes windows into a set.
func NewMovingAverageSet(windows ...MovingAverageWindow) MovingAverageSet {
	out := make(MovingAverageSet, 0, len(windows))
	for _, w := range windows {
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return out
}

// -----------------------------------------------------------------------------

// ParseMovingAverageSet reads "50,200" style lists.
func ParseMovingAverageSet(raw string) (MovingAverageSet, error) {
	var windows []MovingAverageWindow
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(part)), "DMA"))
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid moving average window %q", part)
		}
		windows = append(windows, MovingAverageWindow(n))
	}
	return NewMovingAverageSet(windows...), nil
}

// -----------------------------------------------------------------------------

// Equal compares by set membership.
func (s MovingAverageSet) Equal(other MovingAverageSet) bool {
	return slices.Equal(NewMovingAverageSet(s...), NewMovingAverageSet(other...))
}

// -----------------------------------------------------------------------------

func (s MovingAverageSet) Contains(w MovingAverageWindow) bool {
	return slices.Contains(s, w)
}

// -----------------------------------------------------------------------------

func (s MovingAverageSet) Clone() MovingAverageSet {
	return slices.Clone(s)
}
