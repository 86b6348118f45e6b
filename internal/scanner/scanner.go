// Package scanner walks the fixed six-level archive schema
// (asset/index/{E,F}/YYYY/MM/DD/*) and emits per-file records plus
// granularity-projected aggregated totals.
package scanner

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"go.uber.org/multierr"
)

// Result is the outcome of scanning a root directory: overall totals, the
// full per-file list (retained for the cleaner), and granularity-projected
// aggregated entries (what downstream history persists).
type Result struct {
	TotalMB    float64
	TotalFiles int
	Files      []model.FileRecord
	Entries    []model.Snapshot
}

// aggKey is the map key used to fold files into granularity-projected
// snapshot rows during a single scan.
type aggKey struct {
	asset    string
	index    int
	category model.Category
}

// Scan walks root following the asset/index/{E,F}/YYYY/MM/DD/<file> schema
// and aggregates at the given granularity. Entries whose shape doesn't
// match (non-directory, non-numeric where digits are required, wrong
// width for year/month/day, category other than E/F) are silently
// skipped, as are "." and "..". An empty tree yields a zero-valued Result.
//
// Scan never returns an error for structural skips (per spec, those are
// silent). If root itself cannot be stat'ed it returns a nil Result and
// that error; otherwise it returns a valid Result together with a combined
// (non-fatal) multierr of any directory or file reads that failed and were
// skipped (nil when none failed), so callers can log how much was skipped
// without aborting.
func Scan(root string, granularity model.Granularity) (*Result, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	result := &Result{}
	agg := make(map[aggKey]*model.Snapshot)
	var skipped error

	today := time.Now().Format(model.DateForm)

	assetEntries, err := readDirs(root)
	if err != nil {
		skipped = multierr.Append(skipped, err)
	}

	for _, assetEntry := range assetEntries {
		if !assetEntry.IsDir() {
			continue
		}
		asset := assetEntry.Name()
		assetPath := filepath.Join(root, asset)

		indexEntries, err := readDirs(assetPath)
		if err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		for _, indexEntry := range indexEntries {
			if !indexEntry.IsDir() || !isAllDigits(indexEntry.Name()) {
				continue
			}
			indexVal, err := strconv.Atoi(indexEntry.Name())
			if err != nil {
				continue
			}
			indexPath := filepath.Join(assetPath, indexEntry.Name())

			catEntries, err := readDirs(indexPath)
			if err != nil {
				skipped = multierr.Append(skipped, err)
				continue
			}
			for _, catEntry := range catEntries {
				if !catEntry.IsDir() {
					continue
				}
				catName := catEntry.Name()
				if catName != "E" && catName != "F" {
					continue
				}
				category := model.Category(catName)
				catPath := filepath.Join(indexPath, catName)

				yearEntries, err := readDirs(catPath)
				if err != nil {
					skipped = multierr.Append(skipped, err)
					continue
				}
				for _, yearEntry := range yearEntries {
					if !yearEntry.IsDir() || !isAllDigits(yearEntry.Name()) || len(yearEntry.Name()) != 4 {
						continue
					}
					yearPath := filepath.Join(catPath, yearEntry.Name())

					monthEntries, err := readDirs(yearPath)
					if err != nil {
						skipped = multierr.Append(skipped, err)
						continue
					}
					for _, monthEntry := range monthEntries {
						if !monthEntry.IsDir() || !isAllDigits(monthEntry.Name()) || len(monthEntry.Name()) != 2 {
							continue
						}
						monthPath := filepath.Join(yearPath, monthEntry.Name())

						dayEntries, err := readDirs(monthPath)
						if err != nil {
							skipped = multierr.Append(skipped, err)
							continue
						}
						for _, dayEntry := range dayEntries {
							if !dayEntry.IsDir() || !isAllDigits(dayEntry.Name()) || len(dayEntry.Name()) != 2 {
								continue
							}
							dayPath := filepath.Join(monthPath, dayEntry.Name())
							date := yearEntry.Name() + "-" + monthEntry.Name() + "-" + dayEntry.Name()

							fileEntries, err := os.ReadDir(dayPath)
							if err != nil {
								skipped = multierr.Append(skipped, err)
								continue
							}
							for _, fileEntry := range fileEntries {
								if fileEntry.IsDir() {
									continue
								}
								info, err := fileEntry.Info()
								if err != nil {
									skipped = multierr.Append(skipped, err)
									continue
								}

								sizeMB := float64(info.Size()) / (1024.0 * 1024.0)
								entity := model.Entity{Asset: asset, Index: indexVal, Category: category}

								result.Files = append(result.Files, model.FileRecord{
									FullPath:    filepath.Join(dayPath, fileEntry.Name()),
									SizeMB:      sizeMB,
									CreatedTime: info.ModTime(),
									Entity:      entity,
									Date:        date,
								})
								result.TotalMB += sizeMB
								result.TotalFiles++

								key := projectKey(entity, granularity)
								snap, ok := agg[key]
								if !ok {
									snap = &model.Snapshot{
										Entity:          model.Entity{Asset: key.asset, Index: key.index, Category: key.category},
										MeasurementDate: today,
									}
									agg[key] = snap
								}
								snap.SizeMB += sizeMB
								snap.FileCount++
							}
						}
					}
				}
			}
		}
	}

	for _, snap := range agg {
		result.Entries = append(result.Entries, *snap)
	}

	return result, skipped
}

// projectKey folds an entity down to the fields the given granularity
// keeps concrete, sentinel-filling the rest.
func projectKey(e model.Entity, g model.Granularity) aggKey {
	key := aggKey{asset: e.Asset, index: -1, category: model.CategoryWildcard}
	if g >= model.GranularityAssetIndex {
		key.index = e.Index
	}
	if g >= model.GranularityFull {
		key.category = e.Category
	}
	return key
}

func readDirs(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
