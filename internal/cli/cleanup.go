package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupLimitMB   float64
	cleanupTargetPct float64
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Scan and run FIFO-by-age cleanup against a target fraction",
	Long: `Cleanup scans, then deletes the oldest eligible files until usage
falls to --target-pct of --limit-mb, independent of the evaluator's
threshold table and its fixed 70% recovery target.

Examples:
  fifoguard cleanup --limit-mb 10000 --target-pct 0.70`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().Float64Var(&cleanupLimitMB, "limit-mb", 0, "capacity limit in MB (default: scan.limit_mb from config)")
	cleanupCmd.Flags().Float64Var(&cleanupTargetPct, "target-pct", 0.70, "target fraction of limit-mb to reduce usage to")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	limitMB := cleanupLimitMB
	if limitMB == 0 {
		limitMB = cfg.Scan.LimitMB
	}

	gran := cfg.Scan.GranularityValue()
	if _, err := eng.Scan(ctx, cfg.Scan.Root, gran); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	result, err := eng.FifoCleanup(ctx, limitMB, cleanupTargetPct)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("files deleted: %d\n", result.FilesDeleted)
	fmt.Printf("mb freed:      %.2f\n", result.MBFreed)
	fmt.Printf("new usage:     %.2f MB (%.2f%%)\n", result.NewUsageMB, result.NewUsagePct)
	return nil
}
