// Package cleanup selects and deletes the oldest candidate files under a
// retention cutoff and per-entity floor, logging each deletion to the
// ledger, until the requested MB target is reached or a safety cap binds.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
)

// DefaultMinRetentionHours is the minimum file age, in hours, before it is
// eligible for deletion.
const DefaultMinRetentionHours = 24

// DefaultMaxDeletions caps how many files a single cleanup call will
// remove.
const DefaultMaxDeletions = 500

// entityFloor is the minimum number of files a cleanup call leaves behind
// per entity that started with more than this many candidates.
const entityFloor = 5

// Options configures a single cleanup call; the zero value is invalid —
// use DefaultOptions.
type Options struct {
	MinRetentionHours int
	MaxDeletions      int
}

// DefaultOptions returns the spec's default safety parameters.
func DefaultOptions() Options {
	return Options{MinRetentionHours: DefaultMinRetentionHours, MaxDeletions: DefaultMaxDeletions}
}

// Stats summarizes the outcome of a Cleanup call.
type Stats struct {
	FilesDeleted int
	MBFreed      float64
}

type entityKey struct {
	asset    string
	index    int
	category model.Category
}

// Cleanup deletes the oldest files in candidates (FIFO by created time)
// until amountToDeleteMB has been freed, opts.MaxDeletions files have been
// removed, or no eligible candidates remain. A file is skipped (never an
// error) if it is newer than the retention cutoff, if deleting it would
// drop its entity's remaining count below the floor, or if the
// underlying delete fails (permission, locked, vanished). candidates is
// sorted in place.
func Cleanup(ctx context.Context, st store.Store, logger *slog.Logger, candidates []model.FileRecord, amountToDeleteMB float64, opts Options) (Stats, error) {
	var stats Stats
	if amountToDeleteMB <= 0 || len(candidates) == 0 {
		return stats, nil
	}

	cutoff := time.Now().Add(-time.Duration(opts.MinRetentionHours) * time.Hour)

	remaining := make(map[entityKey]int, len(candidates))
	for _, f := range candidates {
		remaining[entityOf(f)]++
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedTime.Before(candidates[j].CreatedTime)
	})

	for _, f := range candidates {
		if stats.MBFreed >= amountToDeleteMB || stats.FilesDeleted >= opts.MaxDeletions {
			break
		}
		if f.CreatedTime.After(cutoff) {
			continue
		}

		key := entityOf(f)
		if remaining[key] <= entityFloor {
			continue
		}

		if err := os.Remove(f.FullPath); err != nil {
			if logger != nil {
				logger.Debug("skipping file that could not be deleted", "path", f.FullPath, "error", err)
			}
			continue
		}

		rec := model.DeletionRecord{
			FilePath: f.FullPath,
			Asset:    f.Entity.Asset,
			SizeMB:   f.SizeMB,
			Reason:   "PREDICTIVE_CLEANUP",
		}
		if err := st.LogDeletion(ctx, rec); err != nil {
			return stats, fmt.Errorf("logging deletion for %s: %w", f.FullPath, err)
		}

		stats.MBFreed += f.SizeMB
		stats.FilesDeleted++
		remaining[key]--
	}

	if logger != nil {
		logger.Info("cleanup completed",
			"files_deleted", stats.FilesDeleted,
			"mb_freed", humanize.Bytes(uint64(stats.MBFreed*1024*1024)),
			"requested_mb", amountToDeleteMB,
		)
	}

	return stats, nil
}

func entityOf(f model.FileRecord) entityKey {
	return entityKey{asset: f.Entity.Asset, index: f.Entity.Index, category: f.Entity.Category}
}
