package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusLimitMB float64

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the engine's cached state and last scheduled run",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Float64Var(&statusLimitMB, "limit-mb", 0, "capacity limit in MB (default: scan.limit_mb from config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	limitMB := statusLimitMB
	if limitMB == 0 {
		limitMB = cfg.Scan.LimitMB
	}

	st, err := eng.Status(ctx, limitMB)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	fmt.Printf("current:      %.2f MB\n", st.CurrentMB)
	fmt.Printf("predicted:    %.2f MB\n", st.PredictedMB)
	fmt.Printf("action:       %s\n", st.Action)
	fmt.Printf("history days: %d\n", st.HistoryDays)
	if st.LastRun == "" {
		fmt.Println("last run:     never")
	} else {
		fmt.Printf("last run:     %s\n", st.LastRun)
	}
	return nil
}
