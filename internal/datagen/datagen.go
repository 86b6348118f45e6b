// Package datagen synthesizes a six-level ASSET/Index/{E,F}/YYYY/MM/DD
// archive tree with files summing to a requested total size, for exercising
// scan/forecast/cleanup without a real archive present. It is a
// development/ops convenience, not part of the governance core.
package datagen

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
)

var assets = []string{"ASSET_01", "ASSET_02", "ASSET_03"}

const (
	numIndices = 5
	numDays    = 14
	minBytesPerFile = 1024
)

var categories = []model.Category{model.CategoryE, model.CategoryF}

// ProgressFunc receives a 0-100 percent-complete value and a short status
// message as generation proceeds.
type ProgressFunc func(percent int, message string)

// Generate synthesizes 14 days of history across 3 assets x 5 indices x 2
// categories, with a linear day-over-day growth ramp (day 1 at 70% of the
// per-folder average, day 14 at 130%), totaling approximately sizeGB, and
// persists a matching per-day snapshot row for each folder so the result
// is immediately usable as forecast history.
func Generate(ctx context.Context, st store.Store, root string, sizeGB float64, progress ProgressFunc) error {
	totalFolders := len(assets) * numIndices * len(categories) * numDays
	totalBytes := int64(sizeGB * 1024 * 1024 * 1024)
	bytesPerFile := totalBytes / int64(totalFolders)
	if bytesPerFile < minBytesPerFile {
		bytesPerFile = minBytesPerFile
	}

	now := time.Now()
	folderIdx := 0

	for _, asset := range assets {
		for idx := 1; idx <= numIndices; idx++ {
			for _, category := range categories {
				for d := 0; d < numDays; d++ {
					dayTime := now.AddDate(0, 0, -(numDays - 1 - d))
					growth := 0.7 + (0.6 * float64(d) / float64(numDays-1))
					fileBytes := int64(float64(bytesPerFile) * growth)

					if err := writeOneFolder(root, asset, idx, category, dayTime, fileBytes); err != nil {
						return fmt.Errorf("generating %s/%d/%s day %d: %w", asset, idx, category, d, err)
					}

					folderIdx++
					if progress != nil {
						pct := (folderIdx * 100) / totalFolders
						progress(pct, fmt.Sprintf("generating %s/%d/%s day %d/%d", asset, idx, category, d+1, numDays))
					}

					fileMB := float64(fileBytes) / (1024.0 * 1024.0)
					snap := model.Snapshot{
						Entity:          model.Entity{Asset: asset, Index: idx, Category: category},
						MeasurementDate: dayTime.Format(model.DateForm),
						SizeMB:          fileMB,
						FileCount:       1,
					}
					if err := st.InsertSnapshot(ctx, snap); err != nil {
						return fmt.Errorf("recording snapshot for %s/%d/%s: %w", asset, idx, category, err)
					}
				}
			}
		}
	}

	if progress != nil {
		progress(100, "test data generation complete")
	}
	return nil
}

// GenerateOneDay synthesizes a single day's worth of files (dayOffset days
// from today, negative for the past) across every asset/index/category
// combination, totaling approximately dayTotalMB, with +/-20% random
// variation per entity.
func GenerateOneDay(ctx context.Context, st store.Store, root string, dayTotalMB float64, dayOffset int, progress ProgressFunc) error {
	totalEntities := len(assets) * numIndices * len(categories)
	totalBytes := int64(dayTotalMB * 1024 * 1024)
	bytesPerFile := totalBytes / int64(totalEntities)
	if bytesPerFile < minBytesPerFile {
		bytesPerFile = minBytesPerFile
	}

	dayTime := time.Now().AddDate(0, 0, dayOffset)
	entityIdx := 0

	for _, asset := range assets {
		for idx := 1; idx <= numIndices; idx++ {
			for _, category := range categories {
				variation := 0.8 + randFraction()*0.4
				fileBytes := int64(float64(bytesPerFile) * variation)

				if err := writeOneFolder(root, asset, idx, category, dayTime, fileBytes); err != nil {
					return fmt.Errorf("generating %s/%d/%s: %w", asset, idx, category, err)
				}

				fileMB := float64(fileBytes) / (1024.0 * 1024.0)
				snap := model.Snapshot{
					Entity:          model.Entity{Asset: asset, Index: idx, Category: category},
					MeasurementDate: dayTime.Format(model.DateForm),
					SizeMB:          fileMB,
					FileCount:       1,
				}
				if err := st.InsertSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("recording snapshot for %s/%d/%s: %w", asset, idx, category, err)
				}

				entityIdx++
				if progress != nil {
					pct := (entityIdx * 100) / totalEntities
					progress(pct, fmt.Sprintf("day %s: %s/%d/%s", dayTime.Format(model.DateForm), asset, idx, category))
				}
			}
		}
	}

	if progress != nil {
		progress(100, "one day of data generated")
	}
	return nil
}

func writeOneFolder(root, asset string, idx int, category model.Category, day time.Time, fileBytes int64) error {
	dirPath := filepath.Join(root, asset, fmt.Sprint(idx), string(category),
		day.Format("2006"), day.Format("01"), day.Format("02"))
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return err
	}

	fileName := fmt.Sprintf("%s_%d_%s_%s.dat", asset, idx, category, day.Format(model.DateForm))
	return writeRandomFile(filepath.Join(dirPath, fileName), fileBytes)
}

func writeRandomFile(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const chunkSize = 8192
	buf := make([]byte, chunkSize)
	var written int64
	for written < size {
		n := int64(chunkSize)
		if remaining := size - written; remaining < n {
			n = remaining
		}
		if _, err := rand.Read(buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		written += n
	}
	return nil
}

// randFraction returns a pseudo-random value in [0, 1), using crypto/rand
// since the package already imports it for file content and this avoids
// taking on math/rand's global seed state for a cosmetic variation factor.
func randFraction() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return float64(v%10000) / 10000.0
}
