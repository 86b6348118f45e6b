package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgalley/fifoguard/internal/config"
	"github.com/jgalley/fifoguard/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	scheduleRoot        string
	scheduleGranularity string
	scheduleLimitMB     float64
	scheduleHour        int
	scheduleMinute      int
	scheduleInterval    int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the background scheduler in the foreground",
}

var scheduleStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler on a daily wall-clock timetable",
	Long: `Start runs the scheduler in the foreground on a daily timetable,
firing one governance cycle at --hour:--minute each day, until interrupted.`,
	RunE: runScheduleStart(scheduler.ModeDaily),
}

var scheduleStartIntervalCmd = &cobra.Command{
	Use:   "start-interval",
	Short: "Run the scheduler on a fixed-interval timetable",
	Long: `Start-interval runs the scheduler in the foreground, firing one
governance cycle every --interval-minutes, until interrupted.`,
	RunE: runScheduleStart(scheduler.ModeInterval),
}

func init() {
	for _, c := range []*cobra.Command{scheduleStartCmd, scheduleStartIntervalCmd} {
		c.Flags().StringVar(&scheduleRoot, "root", "", "archive root to scan (default: scan.root from config)")
		c.Flags().StringVar(&scheduleGranularity, "granularity", "", "asset, asset_index, or full (default: scan.granularity from config)")
		c.Flags().Float64Var(&scheduleLimitMB, "limit-mb", 0, "capacity limit in MB (default: scan.limit_mb from config)")
	}
	scheduleStartCmd.Flags().IntVar(&scheduleHour, "hour", -1, "hour of day to run at, 0-23 (default: scheduler.hour from config)")
	scheduleStartCmd.Flags().IntVar(&scheduleMinute, "minute", -1, "minute of hour to run at, 0-59 (default: scheduler.minute from config)")
	scheduleStartIntervalCmd.Flags().IntVar(&scheduleInterval, "interval-minutes", 0, "minutes between runs (default: scheduler.interval_minutes from config)")

	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleStartIntervalCmd)
}

func runScheduleStart(mode scheduler.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := setupLogger(logLevel, cfg.Logging.Format)

		root := scheduleRoot
		if root == "" {
			root = cfg.Scan.Root
		}
		limitMB := scheduleLimitMB
		if limitMB == 0 {
			limitMB = cfg.Scan.LimitMB
		}
		gran := cfg.Scan.GranularityValue()
		if scheduleGranularity != "" {
			gran, err = parseGranularity(scheduleGranularity)
			if err != nil {
				return err
			}
		}

		sched := scheduler.Schedule{Mode: mode}
		if mode == scheduler.ModeDaily {
			sched.Hour = cfg.Scheduler.Hour
			sched.Minute = cfg.Scheduler.Minute
			if scheduleHour >= 0 {
				sched.Hour = scheduleHour
			}
			if scheduleMinute >= 0 {
				sched.Minute = scheduleMinute
			}
		} else {
			sched.IntervalMinutes = cfg.Scheduler.IntervalMinutes
			if scheduleInterval > 0 {
				sched.IntervalMinutes = scheduleInterval
			}
		}

		pipeline := scheduler.PipelineConfig{Root: root, Granularity: gran, LimitMB: limitMB}
		s := scheduler.New(cfg.Database.Path, pipeline, sched, logger)
		if err := s.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}

		logger.Info("scheduler started", "next_run", s.NextRun())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("received signal, stopping scheduler")
		s.Stop()
		logger.Info("scheduler stopped")
		return nil
	}
}
