// Package scheduler drives the governance pipeline on a background
// timetable: either a daily wall-clock time or a fixed interval. It holds
// its own store handle, separate from any facade Engine, and never
// acquires the facade's mutex — the store's WAL mode serializes the
// resulting concurrent writes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jgalley/fifoguard/internal/cleanup"
	"github.com/jgalley/fifoguard/internal/evaluate"
	"github.com/jgalley/fifoguard/internal/forecast"
	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/scanner"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
)

// ErrBusy is returned by Start when the scheduler is already running.
var ErrBusy = errors.New("scheduler: already running")

// Mode selects between the two scheduling timetables. It is a tagged union
// in spirit: a Schedule carries only the fields its Mode consults.
type Mode int

const (
	ModeDaily Mode = iota
	ModeInterval
)

// Schedule is the scheduler's two-variant timetable: {Daily(hour,minute)}
// or {Interval(minutes)}.
type Schedule struct {
	Mode            Mode
	Hour            int
	Minute          int
	IntervalMinutes int
}

// PipelineConfig carries the fixed per-cycle parameters ExecuteOnce needs:
// where to scan, at what granularity, and the capacity limit to evaluate
// against.
type PipelineConfig struct {
	Root        string
	Granularity model.Granularity
	LimitMB     float64
}

// Scheduler runs PipelineConfig/Schedule on loop against its own Store
// handle, opened fresh for each run via dbPath.
type Scheduler struct {
	dbPath   string
	pipeline PipelineConfig
	schedule Schedule
	logger   *slog.Logger

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Scheduler bound to dbPath, not yet started.
func New(dbPath string, pipeline PipelineConfig, schedule Schedule, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{dbPath: dbPath, pipeline: pipeline, schedule: schedule, logger: logger}
}

// Start begins the background worker, returning ErrBusy if one is already
// running (the spec's schedule_start-while-scheduled Busy semantics).
func (s *Scheduler) Start() error {
	if !s.running.CAS(false, true) {
		return ErrBusy
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.runLoop()
	return nil
}

// Stop requests termination and blocks until the worker has exited. It
// returns within roughly one second of the worker noticing, per the
// ≤1s-granularity cancellation requirement.
func (s *Scheduler) Stop() {
	if !s.running.Load() {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

// IsRunning reports whether the background worker is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// NextRun computes the forward-looking scheduled instant in "YYYY-MM-DD
// HH:MM" form, or "" when not running.
func (s *Scheduler) NextRun() string {
	if !s.running.Load() {
		return ""
	}
	next := s.nextFireTime(time.Now())
	return next.Format(model.NextRunForm)
}

// nextFireTime computes the next wall-clock instant the worker will run
// the pipeline, given the schedule and the current time.
func (s *Scheduler) nextFireTime(now time.Time) time.Time {
	if s.schedule.Mode == ModeInterval {
		minutes := s.schedule.IntervalMinutes
		if minutes <= 0 {
			minutes = 1
		}
		return now.Add(time.Duration(minutes) * time.Minute)
	}

	spec := fmt.Sprintf("%d %d * * *", s.schedule.Minute, s.schedule.Hour)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		// Malformed hour/minute should have been validated at config
		// load; fall back to "same time tomorrow" arithmetic so a
		// scheduler misconfiguration degrades rather than panics.
		target := time.Date(now.Year(), now.Month(), now.Day(), s.schedule.Hour, s.schedule.Minute, 0, 0, now.Location())
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		return target
	}
	return schedule.Next(now)
}

// runLoop sleeps in ≤1s slices until the next scheduled instant, runs the
// pipeline, and repeats until Stop is requested.
func (s *Scheduler) runLoop() {
	defer close(s.doneCh)
	defer s.running.Store(false)

	for {
		next := s.nextFireTime(time.Now())
		if !s.sleepUntil(next) {
			return
		}

		if err := ExecuteOnce(context.Background(), s.dbPath, s.pipeline); err != nil {
			s.logger.Warn("scheduled cycle failed", "error", err)
			// A failed cycle is simply not logged as last_run; the
			// next tick proceeds regardless.
		}
	}
}

// sleepUntil blocks until target or until Stop is requested, whichever
// comes first, waiting in ≤1s slices and returning as soon as Stop closes
// stopCh. It returns false if stopped.
func (s *Scheduler) sleepUntil(target time.Time) bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		remaining := time.Until(target)
		if remaining <= 0 {
			return true
		}

		wait := remaining
		if wait > time.Second {
			wait = time.Second
		}

		select {
		case <-s.stopCh:
			return false
		case <-time.After(wait):
		}
	}
}

// ExecuteOnce runs one complete scan-forecast-evaluate-cleanup cycle
// against its own Store handle, opened and closed within this call, and
// records last_run exactly once at the end of the cycle (the original
// implementation wrote last_run twice — once here and once after the
// caller returned — which this resolves per the spec's stated preference
// for a single end-of-cycle write).
func ExecuteOnce(ctx context.Context, dbPath string, cfg PipelineConfig) error {
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	result, skipErr := scanner.Scan(cfg.Root, cfg.Granularity)
	if result == nil {
		return fmt.Errorf("scanning %s: %w", cfg.Root, skipErr)
	}
	if result.TotalFiles == 0 {
		return fmt.Errorf("scan of %s produced no files", cfg.Root)
	}

	for _, snap := range result.Entries {
		if err := st.InsertSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("persisting snapshot: %w", err)
		}
	}

	fc, err := forecast.Compute(ctx, st, result.TotalMB)
	if err != nil {
		return fmt.Errorf("computing forecast: %w", err)
	}
	if err := forecast.StoreForecast(ctx, st, fc); err != nil {
		return fmt.Errorf("storing forecast: %w", err)
	}

	action, amount := evaluate.Evaluate(fc.PredictedMB, cfg.LimitMB)
	if action == model.ActionCleanup && amount > 0 {
		if _, err := cleanup.Cleanup(ctx, st, nil, result.Files, amount, cleanup.DefaultOptions()); err != nil {
			return fmt.Errorf("running cleanup: %w", err)
		}
	}

	lastRun := time.Now().Format(model.TimestampForm)
	if err := st.SetConfig(ctx, "last_run", lastRun); err != nil {
		return fmt.Errorf("recording last_run: %w", err)
	}

	return nil
}
