package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory store.Store double recording deletions.
type fakeStore struct {
	deletions []model.DeletionRecord
}

func (f *fakeStore) Close() error { return nil }
func (f *fakeStore) IsOpen() bool { return true }

func (f *fakeStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) error { return nil }

func (f *fakeStore) GetHistory(ctx context.Context, days int, filter model.HistoryFilter) ([]model.Snapshot, error) {
	return nil, nil
}

func (f *fakeStore) GetTotalCurrentMB(ctx context.Context) (float64, error) { return 0, nil }

func (f *fakeStore) GetAverageWeights(ctx context.Context, days int) ([]model.Weight, error) {
	return nil, nil
}

func (f *fakeStore) GetHistoryDayCount(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeStore) InsertForecast(ctx context.Context, forecastDate string, predictedMB float64) error {
	return nil
}

func (f *fakeStore) GetLatestForecast(ctx context.Context) (float64, error) { return 0, nil }

func (f *fakeStore) LogDeletion(ctx context.Context, rec model.DeletionRecord) error {
	f.deletions = append(f.deletions, rec)
	return nil
}

func (f *fakeStore) GetDeletionLogs(ctx context.Context, limit int) ([]model.DeletionRecord, error) {
	return f.deletions, nil
}

func (f *fakeStore) SetConfig(ctx context.Context, key, value string) error { return nil }

func (f *fakeStore) GetConfig(ctx context.Context, key, defaultVal string) (string, error) {
	return defaultVal, nil
}

func (f *fakeStore) GetSchedulerConfig(ctx context.Context) (model.SchedulerConfig, error) {
	return model.SchedulerConfig{}, nil
}

func (f *fakeStore) SetSchedulerConfig(ctx context.Context, cfg model.SchedulerConfig) error {
	return nil
}

// makeCandidates writes n real files under dir (so os.Remove has something
// to delete) for a single entity, aged from oldest (index 0) to newest.
func makeCandidates(t *testing.T, dir string, n int, ages []time.Duration) []model.FileRecord {
	t.Helper()
	require.Len(t, ages, n)
	now := time.Now()
	records := make([]model.FileRecord, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("file%03d.dat", i))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		records[i] = model.FileRecord{
			FullPath:    path,
			SizeMB:      1,
			CreatedTime: now.Add(-ages[i]),
			Entity:      model.Entity{Asset: "ASSET_01", Index: 1, Category: model.CategoryE},
		}
	}
	return records
}

// makeMultiEntityCandidates writes numEntities*perEntity real files across
// distinct entities, oldest-to-newest both within and across entities, so
// the per-entity floor binds independently per entity instead of over one
// shared pool.
func makeMultiEntityCandidates(t *testing.T, dir string, numEntities, perEntity int) []model.FileRecord {
	t.Helper()
	now := time.Now()
	total := numEntities * perEntity
	records := make([]model.FileRecord, 0, total)
	age := time.Duration(total) * 48 * time.Hour
	for e := 0; e < numEntities; e++ {
		for i := 0; i < perEntity; i++ {
			idx := e*perEntity + i
			path := filepath.Join(dir, fmt.Sprintf("file%04d.dat", idx))
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
			records = append(records, model.FileRecord{
				FullPath:    path,
				SizeMB:      1,
				CreatedTime: now.Add(-age),
				Entity:      model.Entity{Asset: fmt.Sprintf("ASSET_%02d", e+1), Index: 1, Category: model.CategoryE},
			})
			age -= 48 * time.Hour
		}
	}
	return records
}

func TestCleanupDeletesOldestFirstUntilTargetReached(t *testing.T) {
	dir := t.TempDir()
	candidates := makeMultiEntityCandidates(t, dir, 10, 30)

	st := &fakeStore{}
	stats, err := Cleanup(context.Background(), st, nil, candidates, 50, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 50, stats.FilesDeleted)
	assert.InDelta(t, 50, stats.MBFreed, 0.001)
	assert.Len(t, st.deletions, 50)
}

func TestCleanupRetentionCutoffProtectsRecentFiles(t *testing.T) {
	dir := t.TempDir()
	ages := []time.Duration{
		48 * time.Hour, 48 * time.Hour, 48 * time.Hour, 48 * time.Hour, 48 * time.Hour, 48 * time.Hour, // 6 old
		1 * time.Hour, 1 * time.Hour, 1 * time.Hour, 1 * time.Hour, // 4 new
	}
	candidates := makeCandidates(t, dir, 10, ages)

	st := &fakeStore{}
	stats, err := Cleanup(context.Background(), st, nil, candidates, 100, DefaultOptions())
	require.NoError(t, err)

	// Floor leaves 5 of the 10 total retained regardless of age; 5 of the
	// 6 cutoff-eligible old files are deleted before the floor binds on
	// the 6th, and the 4 recent files are never eligible at all.
	assert.Equal(t, 5, stats.FilesDeleted)
}

func TestCleanupMaxDeletionsCap(t *testing.T) {
	dir := t.TempDir()
	ages := make([]time.Duration, 600)
	for i := range ages {
		ages[i] = time.Duration(600-i) * 48 * time.Hour
	}
	candidates := makeCandidates(t, dir, 600, ages)

	st := &fakeStore{}
	opts := Options{MinRetentionHours: DefaultMinRetentionHours, MaxDeletions: 10}
	stats, err := Cleanup(context.Background(), st, nil, candidates, 1_000_000, opts)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.FilesDeleted)
}

func TestCleanupNoOpWhenAmountIsZero(t *testing.T) {
	dir := t.TempDir()
	candidates := makeCandidates(t, dir, 3, []time.Duration{48 * time.Hour, 48 * time.Hour, 48 * time.Hour})

	st := &fakeStore{}
	stats, err := Cleanup(context.Background(), st, nil, candidates, 0, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, stats.FilesDeleted)
	assert.Empty(t, st.deletions)
}
