package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jgalley/fifoguard/internal/config"
	"github.com/jgalley/fifoguard/internal/evaluate"
	"github.com/jgalley/fifoguard/internal/scheduler"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/jgalley/fifoguard/internal/telemetry"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and a Prometheus metrics endpoint together",
	Long: `Serve starts the background scheduler on the timetable configured
in scheduler.* and serves /metrics on --addr, running until interrupted.
This is the form typically invoked by systemd.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "address to serve /metrics on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("starting fifoguard",
		"config", cfgFile,
		"db", cfg.Database.Path,
		"root", cfg.Scan.Root,
		"scheduler_mode", cfg.Scheduler.Mode,
	)

	metrics := telemetry.New()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/status", statusHandler(cfg, logger))
	httpSrv := &http.Server{Addr: serveAddr, Handler: mux}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	mode := scheduler.ModeDaily
	sched := scheduler.Schedule{Mode: mode, Hour: cfg.Scheduler.Hour, Minute: cfg.Scheduler.Minute}
	if cfg.Scheduler.Mode == "interval" {
		sched = scheduler.Schedule{Mode: scheduler.ModeInterval, IntervalMinutes: cfg.Scheduler.IntervalMinutes}
	}

	gran := cfg.Scan.GranularityValue()
	pipeline := scheduler.PipelineConfig{Root: cfg.Scan.Root, Granularity: gran, LimitMB: cfg.Scan.LimitMB}
	s := scheduler.New(cfg.Database.Path, pipeline, sched, logger)
	if err := s.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	logger.Info("scheduler started", "next_run", s.NextRun())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", "signal", sig)
		cancel()
	}()

	<-ctx.Done()

	s.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server did not shut down cleanly", "error", err)
	}

	logger.Info("fifoguard stopped")
	return nil
}

type statusResponse struct {
	CurrentMB   float64 `json:"current_mb"`
	PredictedMB float64 `json:"predicted_mb"`
	Action      string  `json:"action"`
	HistoryDays int     `json:"history_days"`
	LastRun     string  `json:"last_run"`
}

// statusHandler answers /status by opening its own store handle per
// request, independent of the scheduler's and any facade's, consistent
// with the read-only nature of a status probe.
func statusHandler(cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		st, err := store.Open(ctx, cfg.Database.Path)
		if err != nil {
			http.Error(w, fmt.Sprintf("opening database: %v", err), http.StatusInternalServerError)
			return
		}
		defer st.Close()

		currentMB, err := st.GetTotalCurrentMB(ctx)
		if err != nil {
			http.Error(w, fmt.Sprintf("reading current usage: %v", err), http.StatusInternalServerError)
			return
		}
		predictedMB, err := st.GetLatestForecast(ctx)
		if err != nil {
			http.Error(w, fmt.Sprintf("reading latest forecast: %v", err), http.StatusInternalServerError)
			return
		}
		historyDays, err := st.GetHistoryDayCount(ctx)
		if err != nil {
			http.Error(w, fmt.Sprintf("reading history day count: %v", err), http.StatusInternalServerError)
			return
		}
		lastRun, err := st.GetConfig(ctx, "last_run", "")
		if err != nil {
			http.Error(w, fmt.Sprintf("reading last run: %v", err), http.StatusInternalServerError)
			return
		}
		action, _ := evaluate.Evaluate(predictedMB, cfg.Scan.LimitMB)

		resp := statusResponse{
			CurrentMB:   currentMB,
			PredictedMB: predictedMB,
			Action:      action.String(),
			HistoryDays: historyDays,
			LastRun:     lastRun,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("failed to encode status response", "error", err)
		}
	}
}
