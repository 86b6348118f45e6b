package cli

import (
	"context"
	"fmt"

	"github.com/jgalley/fifoguard/internal/config"
	"github.com/jgalley/fifoguard/internal/datagen"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/spf13/cobra"
)

var (
	generateRoot   string
	generateSizeGB float64
)

var generateTestDataCmd = &cobra.Command{
	Use:   "generate-test-data",
	Short: "Synthesize a 14-day archive tree with realistic growth, for exercising scan/forecast/cleanup",
	Long: `Generate-test-data builds the six-level asset/index/category/date
directory schema under --root, populated with 14 days of history and a
linear growth ramp (day 1 at 70% of the per-folder average, day 14 at
130%), totaling approximately --size-gb, and records a matching snapshot
row per folder.`,
	RunE: runGenerateTestData,
}

func init() {
	generateTestDataCmd.Flags().StringVar(&generateRoot, "root", "", "archive root to populate (default: scan.root from config)")
	generateTestDataCmd.Flags().Float64Var(&generateSizeGB, "size-gb", 1.0, "approximate total size to generate, in GB")
}

func runGenerateTestData(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	root := generateRoot
	if root == "" {
		root = cfg.Scan.Root
	}

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	progress := func(pct int, message string) {
		fmt.Printf("\r[%3d%%] %-60s", pct, message)
	}

	if err := datagen.Generate(ctx, st, root, generateSizeGB, progress); err != nil {
		fmt.Println()
		return fmt.Errorf("generating test data: %w", err)
	}
	fmt.Println()
	return nil
}
