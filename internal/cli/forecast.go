package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Compute and persist a forecast from the most recent scan",
	Long: `Forecast reads up to 14 days of history, computes a 7-day moving
average and a tip-to-tail linear growth rate, and persists the resulting
prediction for tomorrow. Run scan first in the same process invocation, or
rely on the cached scan from a prior run within the same pipeline (the
standalone CLI always scans first, since each invocation opens a fresh
store handle with no carried cache).`,
	RunE: runForecast,
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	gran := cfg.Scan.GranularityValue()
	if _, err := eng.Scan(ctx, cfg.Scan.Root, gran); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fc, err := eng.Forecast(ctx)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	fmt.Printf("current:       %.2f MB\n", fc.CurrentMB)
	fmt.Printf("predicted:     %.2f MB (%s)\n", fc.PredictedMB, fc.ForecastDate)
	fmt.Printf("growth rate:   %.4f MB/day\n", fc.GrowthRate)
	fmt.Printf("history days:  %d\n", fc.DaysAvailable)
	return nil
}
