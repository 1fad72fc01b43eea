package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	showPeriod string
	showMA     string
)

// -----------------------------------------------------------------------------

var rootCmd = &cobra.Command{
	Use:   "nifty-dashboard",
	Short: "Reactive NIFTY 50 stock dashboard",
	Long: `Reactive NIFTY 50 stock dashboard.

Commands:
    serve               HTTP/WebSocket dashboard API and gRPC control plane (default)
    symbols [query]     List or search the ticker universe
    show <ticker>       Render the dashboard outputs for one ticker
`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard servers",
	RunE:  runServe,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [query]",
	Short: "List the ticker universe, optionally filtered by query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSymbols,
}

var showCmd = &cobra.Command{
	Use:   "show <ticker>",
	Short: "Render heading, summary, tables and chart tail for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// -----------------------------------------------------------------------------

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/default.yaml", "path to config file")

	showCmd.Flags().StringVar(&showPeriod, "period", "", "lookback period (1mo, 6mo, 1y, 3y, 5y, max)")
	showCmd.Flags().StringVar(&showMA, "ma", "", "moving average windows, e.g. 50,200")

	rootCmd.AddCommand(serveCmd, symbolsCmd, showCmd)
}

// -----------------------------------------------------------------------------

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
