// Package store provides the persistent history, forecast ledger, deletion
// ledger, scheduler config, and generic key/value configuration table that
// back the governance pipeline. It owns no policy: every query returns raw
// rows for its caller to interpret.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jgalley/fifoguard/internal/model"
)

// ErrOperationFailed wraps any backend error surfaced by Store. Queries
// that return zero rows are not failures and do not use this sentinel.
var ErrOperationFailed = errors.New("store: operation failed")

// wrapf wraps err (if non-nil) with ErrOperationFailed and a message.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), err, ErrOperationFailed)
}

// Store defines the persistence surface the engine, forecaster, and
// scheduler depend on. SQLiteStore is the only production implementation;
// the interface exists so forecast/cleanup tests can substitute an
// in-memory double.
type Store interface {
	Close() error
	IsOpen() bool

	InsertSnapshot(ctx context.Context, snap model.Snapshot) error
	GetHistory(ctx context.Context, days int, filter model.HistoryFilter) ([]model.Snapshot, error)
	GetTotalCurrentMB(ctx context.Context) (float64, error)
	GetAverageWeights(ctx context.Context, days int) ([]model.Weight, error)
	GetHistoryDayCount(ctx context.Context) (int, error)

	InsertForecast(ctx context.Context, forecastDate string, predictedMB float64) error
	GetLatestForecast(ctx context.Context) (float64, error)

	LogDeletion(ctx context.Context, rec model.DeletionRecord) error
	GetDeletionLogs(ctx context.Context, limit int) ([]model.DeletionRecord, error)

	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key, defaultVal string) (string, error)

	GetSchedulerConfig(ctx context.Context) (model.SchedulerConfig, error)
	SetSchedulerConfig(ctx context.Context, cfg model.SchedulerConfig) error
}
