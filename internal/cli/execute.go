package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jgalley/fifoguard/internal/engine"
	"github.com/spf13/cobra"
)

var (
	executeRoot        string
	executeGranularity string
	executeLimitMB     float64
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run one full scan-forecast-evaluate-cleanup cycle",
	Long: `Execute runs the complete orchestrated cycle: scan, persist,
forecast, evaluate against --limit-mb, and, if the evaluator's action is
Cleanup, run FIFO-by-age cleanup — then records last_run.`,
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().StringVar(&executeRoot, "root", "", "archive root to scan (default: scan.root from config)")
	executeCmd.Flags().StringVar(&executeGranularity, "granularity", "", "asset, asset_index, or full (default: scan.granularity from config)")
	executeCmd.Flags().Float64Var(&executeLimitMB, "limit-mb", 0, "capacity limit in MB (default: scan.limit_mb from config)")
}

func runExecute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	root := executeRoot
	if root == "" {
		root = cfg.Scan.Root
	}
	limitMB := executeLimitMB
	if limitMB == 0 {
		limitMB = cfg.Scan.LimitMB
	}
	gran := cfg.Scan.GranularityValue()
	if executeGranularity != "" {
		gran, err = parseGranularity(executeGranularity)
		if err != nil {
			return err
		}
	}

	result, err := eng.ExecuteFull(ctx, root, gran, limitMB)
	if err != nil {
		if errors.Is(err, engine.ErrNoData) {
			fmt.Println("cycle aborted: no files found")
			return nil
		}
		return fmt.Errorf("cycle failed: %w", err)
	}

	fmt.Printf("action:          %s\n", result.Action)
	fmt.Printf("current:         %.2f MB\n", result.CurrentMB)
	fmt.Printf("predicted:       %.2f MB\n", result.PredictedMB)
	fmt.Printf("growth rate:     %.4f MB/day\n", result.GrowthRate)
	fmt.Printf("usage:           %.2f%%\n", result.UsagePercent)
	fmt.Printf("files deleted:   %d\n", result.FilesDeleted)
	fmt.Printf("mb freed:        %.2f\n", result.MBFreedMB)
	fmt.Printf("history days:    %d\n", result.HistoryDays)
	return nil
}
