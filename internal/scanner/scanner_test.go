package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, parts []string, name string, size int) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestScanEmptyTreeYieldsZeroTotals(t *testing.T) {
	root := t.TempDir()
	result, err := Scan(root, model.GranularityAsset)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalFiles)
	assert.Zero(t, result.TotalMB)
	assert.Empty(t, result.Entries)
}

func TestScanAggregatesBySixLevelSchema(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"ASSET_01", "1", "E", "2026", "07", "20"}, "a.dat", 1024*1024)
	writeFile(t, root, []string{"ASSET_01", "1", "F", "2026", "07", "20"}, "b.dat", 2*1024*1024)
	writeFile(t, root, []string{"ASSET_01", "2", "E", "2026", "07", "21"}, "c.dat", 3*1024*1024)

	result, err := Scan(root, model.GranularityFull)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFiles)
	assert.InDelta(t, 6.0, result.TotalMB, 0.01)

	var sumEntries float64
	var filesEntries int
	for _, e := range result.Entries {
		sumEntries += e.SizeMB
		filesEntries += e.FileCount
	}
	assert.InDelta(t, result.TotalMB, sumEntries, 0.001, "sum of entries must equal scan total")
	assert.Equal(t, result.TotalFiles, filesEntries)
}

func TestScanGranularityProjection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"ASSET_01", "1", "E", "2026", "07", "20"}, "a.dat", 1024*1024)
	writeFile(t, root, []string{"ASSET_01", "2", "F", "2026", "07", "20"}, "b.dat", 1024*1024)

	assetResult, err := Scan(root, model.GranularityAsset)
	require.NoError(t, err)
	assert.Len(t, assetResult.Entries, 1, "asset granularity folds index and category away")

	fullResult, err := Scan(root, model.GranularityFull)
	require.NoError(t, err)
	assert.Len(t, fullResult.Entries, 2, "full granularity keeps each entity distinct")
}

func TestScanSkipsMalformedDirectoriesWithoutFailing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"ASSET_01", "1", "E", "2026", "07", "20"}, "a.dat", 1024)
	// Malformed: category is neither E nor F.
	writeFile(t, root, []string{"ASSET_01", "1", "X", "2026", "07", "20"}, "b.dat", 1024)
	// Malformed: index is not numeric.
	writeFile(t, root, []string{"ASSET_01", "abc", "E", "2026", "07", "20"}, "c.dat", 1024)

	result, err := Scan(root, model.GranularityFull)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFiles)
}
