package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "fifoguard.db")
	st, err := store.Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, nil, nil)
}

func writeArchiveFile(t *testing.T, root string, size int) {
	t.Helper()
	dir := filepath.Join(root, "ASSET_01", "1", "E", "2026", "07", "20")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.dat"), make([]byte, size), 0o644))
}

func TestEngineScanEmptyTreeReturnsNoData(t *testing.T) {
	eng := newTestEngine(t)
	root := t.TempDir()

	_, err := eng.Scan(context.Background(), root, model.GranularityAsset)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestEngineExecuteFullAbortsOnEmptyScan(t *testing.T) {
	eng := newTestEngine(t)
	root := t.TempDir()

	_, err := eng.ExecuteFull(context.Background(), root, model.GranularityAsset, 100)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestEngineExecuteFullSafeActionBelowThreshold(t *testing.T) {
	eng := newTestEngine(t)
	root := t.TempDir()
	writeArchiveFile(t, root, 1024*1024) // 1 MB

	result, err := eng.ExecuteFull(context.Background(), root, model.GranularityAsset, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.ActionSafe, result.Action)
	assert.Zero(t, result.FilesDeleted)
}

func TestEngineExecuteFullRecordsLastRun(t *testing.T) {
	eng := newTestEngine(t)
	root := t.TempDir()
	writeArchiveFile(t, root, 1024*1024)

	_, err := eng.ExecuteFull(context.Background(), root, model.GranularityAsset, 1000)
	require.NoError(t, err)

	status, err := eng.Status(context.Background(), 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, status.LastRun)
}

func TestEngineFifoCleanupNoOpWhenUnderTarget(t *testing.T) {
	eng := newTestEngine(t)
	root := t.TempDir()
	writeArchiveFile(t, root, 1024*1024)

	_, err := eng.Scan(context.Background(), root, model.GranularityAsset)
	require.NoError(t, err)

	result, err := eng.FifoCleanup(context.Background(), 1000, 0.70)
	require.NoError(t, err)
	assert.Zero(t, result.FilesDeleted)
}

func TestEngineFifoCleanupWithoutPriorScanIsNoData(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.FifoCleanup(context.Background(), 100, 0.70)
	assert.True(t, errors.Is(err, ErrNoData))
}
