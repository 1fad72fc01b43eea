package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"nifty-dashboard/src/models"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// chartTail is how many trailing chart rows show prints.
const chartTail = 10

// -----------------------------------------------------------------------------

func runSymbols(cmd *cobra.Command, args []string) error {
	a, err := setupBase(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	options := a.Directory.All()
	if len(args) == 1 {
		if found, ok := a.Directory.Search(args[0]); ok {
			options = found
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Ticker"})
	for _, o := range options {
		table.Append([]string{o.Label, o.Value})
	}
	table.Render()
	fmt.Printf("%d of %d symbols (source: %s)\n", len(options), a.Directory.Len(), a.Directory.Source)
	return nil
}

// -----------------------------------------------------------------------------

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := setupBase(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.setupDashboard(); err != nil {
		return err
	}

	state := a.Sessions.NewState("cli")
	if err := state.SelectTicker(strings.ToUpper(strings.TrimSpace(args[0]))); err != nil {
		return err
	}
	if showPeriod != "" {
		if err := state.SetInput(models.InputPeriod, showPeriod); err != nil {
			return err
		}
	}
	if showMA != "" {
		if err := state.SetInput(models.InputMovingAverages, showMA); err != nil {
			return err
		}
	}

	outputs, err := state.Refresh(ctx)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		renderOutput(os.Stdout, out)
	}
	return nil
}

// -----------------------------------------------------------------------------

func renderOutput(w io.Writer, out models.MOutput) {
	switch out.Kind {
	case models.KindError:
		fmt.Fprintf(w, "[%s] unavailable: %s\n\n", out.Name, out.Error)
		return
	case models.KindNoSelection:
		fmt.Fprintf(w, "[%s] no ticker selected\n\n", out.Name)
		return
	case models.KindNoData:
		fmt.Fprintf(w, "[%s] no data for %s over %s\n\n", out.Name, out.Inputs.SelectedTicker, out.Inputs.Period.Label())
		return
	}

	switch v := out.Value.(type) {
	case models.MHeading:
		fmt.Fprintf(w, "%s\n%s\n\n", v.DisplayName.ValueOrZero(), strings.Repeat("=", len(v.DisplayName.ValueOrZero())))
	case models.MSummary:
		fmt.Fprintf(w, "%s\n\n", v.Text.ValueOrZero())
	case models.MTable:
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{v.Title, ""})
		for _, row := range v.Rows {
			table.Append([]string{row.Label, row.Display})
		}
		table.Render()
		fmt.Fprintln(w)
	case models.MChart:
		renderChart(w, v)
	}
}

// -----------------------------------------------------------------------------

func renderChart(w io.Writer, chart models.MChart) {
	fmt.Fprintf(w, "%s %s", chart.Ticker, chart.Period.Label())
	if chart.ChangePercent.Valid {
		fmt.Fprintf(w, "  change %.2f %%", chart.ChangePercent.Float64)
	}
	if chart.Low.Valid && chart.High.Valid {
		fmt.Fprintf(w, "  range %.2f - %.2f", chart.Low.Float64, chart.High.Float64)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Date"}, chart.Traces...))

	series := chart.Series
	start := max(series.Len()-chartTail, 0)
	for i := start; i < series.Len(); i++ {
		row := []string{series.Dates[i].Format("2006-01-02"), fmt.Sprintf("%.2f", series.Close[i])}
		for _, win := range chart.Windows {
			cell := "-"
			if v := series.MovingAverages[win][i]; v.Valid {
				cell = fmt.Sprintf("%.2f", v.Float64)
			}
			row = append(row, cell)
		}
		table.Append(row)
	}
	table.Render()
}
