// Package engine composes the scan, forecast, evaluate, and cleanup stages
// into a single orchestrated cycle, and exposes the stable facade API
// (scan/forecast/evaluate/cleanup/execute_full/status) behind one
// process-wide mutex.
//
// The in-memory cached scanner.Result and Forecast are shared mutable
// state: Scan, Forecast, and ExecuteFull refresh them, and Forecast,
// Evaluate, FifoCleanup, and Status read them; pervasive locking here is
// simpler than fine-grained reasoning about
// which stage touched what (see spec's Design Notes on global state).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jgalley/fifoguard/internal/cleanup"
	"github.com/jgalley/fifoguard/internal/evaluate"
	"github.com/jgalley/fifoguard/internal/forecast"
	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/scanner"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/jgalley/fifoguard/internal/telemetry"
)

// Sentinel errors mapped to the spec's error codes at the CLI boundary.
var (
	ErrPersistence   = errors.New("engine: persistence failure")
	ErrInvalidPath   = errors.New("engine: invalid path")
	ErrScan          = errors.New("engine: scan failure")
	ErrSchedulerBusy = errors.New("engine: scheduler busy")
	ErrNoData        = errors.New("engine: no data")
)

// CycleResult is the composite outcome of a full orchestrated cycle.
type CycleResult struct {
	CurrentMB     float64
	PredictedMB   float64
	GrowthRate    float64
	LimitMB       float64
	UsagePercent  float64
	Action        model.Action
	FilesDeleted  int
	MBFreedMB     float64
	HistoryDays   int
}

// CleanupResult is the outcome of a standalone cleanup call.
type CleanupResult struct {
	FilesDeleted int
	MBFreed      float64
	NewUsageMB   float64
	NewUsagePct  float64
}

// Engine holds the facade's shared mutable state: the open store handle and
// the last scan/forecast caches, all guarded by mu.
type Engine struct {
	mu      sync.Mutex
	st      store.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics

	lastScan     *scanner.Result
	lastForecast model.Forecast
}

// New wraps an already-open Store in a facade. logger and metrics may be
// nil; nil metrics disables instrumentation.
func New(st store.Store, logger *slog.Logger, metrics *telemetry.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{st: st, logger: logger, metrics: metrics}
}

// Scan performs the scan phase alone, persists the aggregated snapshot
// rows, and caches the result for subsequent Forecast/Evaluate/Cleanup
// calls.
func (e *Engine) Scan(ctx context.Context, root string, granularity model.Granularity) (*scanner.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanLocked(ctx, root, granularity)
}

func (e *Engine) scanLocked(ctx context.Context, root string, granularity model.Granularity) (*scanner.Result, error) {
	start := time.Now()
	result, skipErr := scanner.Scan(root, granularity)
	if result == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, skipErr)
	}
	if skipErr != nil {
		e.logger.Debug("scan skipped some entries", "root", root, "error", skipErr)
	}
	if e.metrics != nil {
		e.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}

	if result.TotalFiles == 0 {
		e.lastScan = result
		return result, ErrNoData
	}

	for _, snap := range result.Entries {
		if err := e.st.InsertSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	e.lastScan = result
	return result, nil
}

// Forecast computes and persists a new forecast from the cached scan's
// total MB.
func (e *Engine) Forecast(ctx context.Context) (model.Forecast, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forecastLocked(ctx)
}

func (e *Engine) forecastLocked(ctx context.Context) (model.Forecast, error) {
	var currentMB float64
	if e.lastScan != nil {
		currentMB = e.lastScan.TotalMB
	}

	fc, err := forecast.Compute(ctx, e.st, currentMB)
	if err != nil {
		return model.Forecast{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := forecast.StoreForecast(ctx, e.st, fc); err != nil {
		return model.Forecast{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	e.lastForecast = fc
	return fc, nil
}

// EvalResult is the outcome of a standalone Evaluate call.
type EvalResult struct {
	Action           model.Action
	ProjectedPercent float64
	AmountToDeleteMB float64
}

// Evaluate maps the cached forecast's predicted MB against limitMB.
func (e *Engine) Evaluate(limitMB float64) EvalResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked(limitMB)
}

func (e *Engine) evaluateLocked(limitMB float64) EvalResult {
	action, amount := evaluate.Evaluate(e.lastForecast.PredictedMB, limitMB)
	var pct float64
	if limitMB > 0 {
		pct = e.lastForecast.PredictedMB / limitMB * 100.0
	}
	return EvalResult{Action: action, ProjectedPercent: pct, AmountToDeleteMB: amount}
}

// FifoCleanup runs a standalone cleanup derived from the cached scan's
// total MB and a caller-supplied target fraction, rather than the
// evaluator's fixed 70% recovery target. Per spec, callers should prefer
// ExecuteFull for evaluator-consistent behavior; this path exists for
// parity with the original facade's fifo_cleanup entry point.
func (e *Engine) FifoCleanup(ctx context.Context, limitMB, targetPct float64) (CleanupResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastScan == nil {
		return CleanupResult{}, ErrNoData
	}

	targetMB := limitMB * targetPct
	amount := e.lastScan.TotalMB - targetMB
	if amount <= 0 {
		return CleanupResult{
			FilesDeleted: 0,
			MBFreed:      0,
			NewUsageMB:   e.lastScan.TotalMB,
			NewUsagePct:  percentOf(e.lastScan.TotalMB, limitMB),
		}, nil
	}

	stats, err := cleanup.Cleanup(ctx, e.st, e.logger, e.lastScan.Files, amount, cleanup.DefaultOptions())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	e.recordCleanupMetrics(stats)

	newUsage := e.lastScan.TotalMB - stats.MBFreed
	return CleanupResult{
		FilesDeleted: stats.FilesDeleted,
		MBFreed:      stats.MBFreed,
		NewUsageMB:   newUsage,
		NewUsagePct:  percentOf(newUsage, limitMB),
	}, nil
}

// ExecuteFull runs the four-phase pipeline under the facade mutex: scan,
// persist, forecast, evaluate, and — if warranted — cleanup, then records
// last_run. If the scan yields zero files, it aborts with ErrNoData before
// touching forecast or cleanup.
func (e *Engine) ExecuteFull(ctx context.Context, root string, granularity model.Granularity, limitMB float64) (CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cycleID := uuid.New().String()
	log := e.logger.With("cycle_id", cycleID)

	result, err := e.scanLocked(ctx, root, granularity)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			log.Warn("cycle aborted: no files found", "root", root)
			return CycleResult{}, ErrNoData
		}
		return CycleResult{}, err
	}

	fc, err := e.forecastLocked(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	action, amount := evaluate.Evaluate(fc.PredictedMB, limitMB)

	var filesDeleted int
	var mbFreed float64
	if action == model.ActionCleanup && amount > 0 {
		stats, err := cleanup.Cleanup(ctx, e.st, log, result.Files, amount, cleanup.DefaultOptions())
		if err != nil {
			return CycleResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		filesDeleted = stats.FilesDeleted
		mbFreed = stats.MBFreed
		e.recordCleanupMetrics(stats)
	}

	if e.metrics != nil {
		e.metrics.CyclesTotal.WithLabelValues(action.String()).Inc()
	}

	lastRun := time.Now().Format(model.TimestampForm)
	if err := e.st.SetConfig(ctx, "last_run", lastRun); err != nil {
		return CycleResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	historyDays, err := e.st.GetHistoryDayCount(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Info("cycle completed",
		"action", action.String(),
		"current_mb", result.TotalMB,
		"predicted_mb", fc.PredictedMB,
		"files_deleted", filesDeleted,
		"mb_freed", mbFreed,
	)

	return CycleResult{
		CurrentMB:    result.TotalMB,
		PredictedMB:  fc.PredictedMB,
		GrowthRate:   fc.GrowthRate,
		LimitMB:      limitMB,
		UsagePercent: percentOf(result.TotalMB, limitMB),
		Action:       action,
		FilesDeleted: filesDeleted,
		MBFreedMB:    mbFreed,
		HistoryDays:  historyDays,
	}, nil
}

// Status reports the engine's current cached state for the facade's
// get_status operation.
type Status struct {
	CurrentMB    float64
	PredictedMB  float64
	Action       model.Action
	HistoryDays  int
	LastRun      string
}

// Status returns a snapshot of cached scan/forecast state plus the
// persisted last_run marker.
func (e *Engine) Status(ctx context.Context, limitMB float64) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var currentMB float64
	if e.lastScan != nil {
		currentMB = e.lastScan.TotalMB
	}
	action, _ := evaluate.Evaluate(e.lastForecast.PredictedMB, limitMB)

	historyDays, err := e.st.GetHistoryDayCount(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	lastRun, err := e.st.GetConfig(ctx, "last_run", "")
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return Status{
		CurrentMB:   currentMB,
		PredictedMB: e.lastForecast.PredictedMB,
		Action:      action,
		HistoryDays: historyDays,
		LastRun:     lastRun,
	}, nil
}

// SetConfig sets a key/value configuration entry.
func (e *Engine) SetConfig(ctx context.Context, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.st.SetConfig(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// GetConfig reads a key/value configuration entry, falling back to
// defaultVal if unset.
func (e *Engine) GetConfig(ctx context.Context, key, defaultVal string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	val, err := e.st.GetConfig(ctx, key, defaultVal)
	if err != nil {
		return defaultVal, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return val, nil
}

// Store exposes the underlying store for callers that need direct access
// outside the facade mutex.
func (e *Engine) Store() store.Store { return e.st }

func (e *Engine) recordCleanupMetrics(stats cleanup.Stats) {
	if e.metrics == nil {
		return
	}
	e.metrics.FilesDeletedTotal.Add(float64(stats.FilesDeleted))
	e.metrics.MBFreedTotal.Add(stats.MBFreed)
}

func percentOf(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return value / limit * 100.0
}
