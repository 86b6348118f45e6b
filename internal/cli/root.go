// Package cli implements fifoguard's command-line surface: one-shot
// pipeline stages (scan/forecast/evaluate/cleanup/execute), scheduler
// control, status/config queries, test data generation, and the metrics
// server, all built on cobra.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	rootCmd  *cobra.Command
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "fifoguard",
		Short: "Predictive storage-governance engine for hierarchical file archives",
		Long: `fifoguard scans a six-level asset/index/category/date archive tree,
forecasts near-term capacity growth, and runs FIFO-by-age cleanup before a
configured limit is breached.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/fifoguard/fifoguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(generateTestDataCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogger creates a logger based on the configured level and format.
func setupLogger(level string, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
