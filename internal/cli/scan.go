package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jgalley/fifoguard/internal/engine"
	"github.com/spf13/cobra"
)

var (
	scanRoot        string
	scanGranularity string
	scanFormat      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Walk the archive tree and record a usage snapshot",
	Long: `Scan walks the six-level asset/index/category/date archive tree,
aggregates sizes at the configured granularity, and persists one snapshot
row per aggregated entity.

Examples:
  fifoguard scan --root /data/archive
  fifoguard scan --root /data/archive --granularity full --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "archive root to scan (default: scan.root from config)")
	scanCmd.Flags().StringVar(&scanGranularity, "granularity", "", "asset, asset_index, or full (default: scan.granularity from config)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "output format (text, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	root := scanRoot
	if root == "" {
		root = cfg.Scan.Root
	}
	gran := cfg.Scan.GranularityValue()
	if scanGranularity != "" {
		gran, err = parseGranularity(scanGranularity)
		if err != nil {
			return err
		}
	}

	result, err := eng.Scan(ctx, root, gran)
	if err != nil && !errors.Is(err, engine.ErrNoData) {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"total_mb":    result.TotalMB,
			"total_files": result.TotalFiles,
			"entities":    len(result.Entries),
		})
	}

	fmt.Printf("scanned %s\n", root)
	fmt.Printf("total:    %s (%d files)\n", humanize.Bytes(uint64(result.TotalMB*1024*1024)), result.TotalFiles)
	fmt.Printf("entities: %d\n", len(result.Entries))
	return nil
}
