package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var evaluateLimitMB float64

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Scan, forecast, and evaluate against a capacity limit",
	Long: `Evaluate runs scan and forecast, then maps the predicted usage
against --limit-mb through the Safe/Monitor/Caution/Cleanup threshold
table, printing the resulting action and recommended deletion amount
without actually deleting anything.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().Float64Var(&evaluateLimitMB, "limit-mb", 0, "capacity limit in MB (default: scan.limit_mb from config)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	limitMB := evaluateLimitMB
	if limitMB == 0 {
		limitMB = cfg.Scan.LimitMB
	}

	gran := cfg.Scan.GranularityValue()
	if _, err := eng.Scan(ctx, cfg.Scan.Root, gran); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if _, err := eng.Forecast(ctx); err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	result := eng.Evaluate(limitMB)

	fmt.Printf("action:              %s\n", result.Action)
	fmt.Printf("projected usage:     %.2f%%\n", result.ProjectedPercent)
	fmt.Printf("amount to delete:    %.2f MB\n", result.AmountToDeleteMB)
	return nil
}
