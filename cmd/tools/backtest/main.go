// Command backtest trains the revenue model on CSV exports and reports its
// out-of-sample accuracy or a forecast table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile   string
	revenueFile  string
	weatherFile  string
	calendarFile string
	asJSON       bool

	// forecast flags
	startDate string
	horizon   int
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backtest",
		Short: "Train and evaluate the daily revenue model on CSV exports",
		Long: `Reads a revenue CSV (date,total_revenue) and optionally a weather CSV
(date,humidity,precipitation,cloud_cover,...) and runs the same tiered ridge
training as the forecaster service.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Forecaster config file (engine calibration)")
	root.PersistentFlags().StringVarP(&revenueFile, "revenue", "r", "", "Revenue CSV file (required)")
	root.PersistentFlags().StringVarP(&weatherFile, "weather", "w", "", "Weather CSV file")
	root.PersistentFlags().StringVar(&calendarFile, "calendar", "", "Calendar override YAML (defaults to config calendar.file)")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = root.MarkPersistentFlagRequired("revenue")

	root.AddCommand(runCmd())
	root.AddCommand(forecastCmd())
	return root
}

// runCmd trains once and prints the model diagnostics.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Train on the full history and print in-sample and walk-forward metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := load()
			if err != nil {
				return err
			}
			rep, err := env.backtest()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			return rep.WriteText(cmd.OutOrStdout())
		},
	}
}

// forecastCmd trains and forecasts the days after the last revenue row.
func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Train on the full history and print the next days' forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := load()
			if err != nil {
				return err
			}
			if horizon > 0 {
				env.cfg.Horizon = horizon
			}
			table, err := env.forecast(startDate)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), table)
			}
			return table.WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "First forecast day YYYY-MM-DD (default: day after the last revenue row)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Days to forecast (default: forecast.horizon)")
	return cmd
}
