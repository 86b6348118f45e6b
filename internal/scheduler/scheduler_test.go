package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fifoguard.db")
	pipeline := PipelineConfig{Root: t.TempDir(), Granularity: model.GranularityAsset, LimitMB: 1000}
	sched := Schedule{Mode: ModeInterval, IntervalMinutes: 1}

	s := New(dbPath, pipeline, sched, nil)
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	err := s.Start()
	assert.True(t, errors.Is(err, ErrBusy), "starting an already-running scheduler must report Busy")

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSchedulerStopIsResponsiveWithinTwoSeconds(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fifoguard.db")
	pipeline := PipelineConfig{Root: t.TempDir(), Granularity: model.GranularityAsset, LimitMB: 1000}
	sched := Schedule{Mode: ModeDaily, Hour: 3, Minute: 0}

	s := New(dbPath, pipeline, sched, nil)
	require.NoError(t, s.Start())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within 2s")
	}
}

func TestNextFireTimeDailyRollsToTomorrowWhenPassed(t *testing.T) {
	s := New("", PipelineConfig{}, Schedule{Mode: ModeDaily, Hour: 3, Minute: 0}, nil)
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

	next := s.nextFireTime(now)
	assert.Equal(t, 4, next.Day())
	assert.Equal(t, 3, next.Hour())
}

func TestNextFireTimeIntervalAddsMinutes(t *testing.T) {
	s := New("", PipelineConfig{}, Schedule{Mode: ModeInterval, IntervalMinutes: 15}, nil)
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

	next := s.nextFireTime(now)
	assert.Equal(t, now.Add(15*time.Minute), next)
}

func TestExecuteOnceRunsFullCycleAndRecordsLastRun(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fifoguard.db")
	root := t.TempDir()

	dir := filepath.Join(root, "ASSET_01", "1", "E", "2026", "07", "20")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.dat"), make([]byte, 1024*1024), 0o644))

	cfg := PipelineConfig{Root: root, Granularity: model.GranularityAsset, LimitMB: 1000}
	require.NoError(t, ExecuteOnce(ctx, dbPath, cfg))

	st, err := store.Open(ctx, dbPath)
	require.NoError(t, err)
	defer st.Close()

	lastRun, err := st.GetConfig(ctx, "last_run", "")
	require.NoError(t, err)
	assert.NotEmpty(t, lastRun)
}
