package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite via the pure-Go modernc.org
// driver.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (or attaches to) the SQLite database at path, enables WAL
// mode and foreign keys, and creates the schema with IF NOT EXISTS
// semantics, seeding the scheduler-config singleton row.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting synchronous mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS storage_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset TEXT NOT NULL,
			index_val INTEGER NOT NULL DEFAULT -1,
			category TEXT NOT NULL DEFAULT '*',
			measurement_date TEXT NOT NULL,
			size_mb REAL NOT NULL,
			file_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT (datetime('now','localtime'))
		);

		CREATE TABLE IF NOT EXISTS storage_forecast (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			forecast_date TEXT NOT NULL,
			predicted_mb REAL NOT NULL,
			created_at TEXT DEFAULT (datetime('now','localtime'))
		);

		CREATE TABLE IF NOT EXISTS deletion_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL,
			asset TEXT NOT NULL,
			size_mb REAL NOT NULL,
			reason TEXT NOT NULL DEFAULT 'PREDICTIVE_CLEANUP',
			deleted_at TEXT DEFAULT (datetime('now','localtime'))
		);

		CREATE TABLE IF NOT EXISTS scheduler_config (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			schedule_hour INTEGER NOT NULL DEFAULT 3,
			schedule_minute INTEGER NOT NULL DEFAULT 0,
			last_run TEXT,
			is_enabled INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hist_date ON storage_history(measurement_date);
		CREATE INDEX IF NOT EXISTS idx_hist_asset ON storage_history(asset, index_val, category);
		CREATE INDEX IF NOT EXISTS idx_del_date ON deletion_log(deleted_at);

		INSERT OR IGNORE INTO scheduler_config(id, schedule_hour, schedule_minute, is_enabled)
			VALUES(1, 3, 0, 0);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IsOpen reports whether the store has a live connection.
func (s *SQLiteStore) IsOpen() bool {
	return s.db != nil && s.db.Ping() == nil
}

// InsertSnapshot appends one aggregated usage row. Snapshots are
// append-only; repeated same-day scans for the same entity produce
// duplicate rows by design.
func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO storage_history(asset, index_val, category, measurement_date, size_mb, file_count)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		snap.Entity.Asset, snap.Entity.Index, string(snap.Entity.Category),
		snap.MeasurementDate, snap.SizeMB, snap.FileCount,
	)
	return wrapf(err, "inserting snapshot")
}

// GetHistory returns rows within the last `days` local days, narrowed by
// filter, ordered ascending by date.
func (s *SQLiteStore) GetHistory(ctx context.Context, days int, filter model.HistoryFilter) ([]model.Snapshot, error) {
	query := `SELECT asset, index_val, category, measurement_date, size_mb, file_count, created_at
	          FROM storage_history
	          WHERE measurement_date >= date('now', 'localtime', ?)`
	args := []interface{}{fmt.Sprintf("-%d days", days)}

	if filter.Asset != "" {
		query += " AND asset = ?"
		args = append(args, filter.Asset)
	}
	if filter.Index >= 0 {
		query += " AND index_val = ?"
		args = append(args, filter.Index)
	}
	if filter.Category != "" && filter.Category != model.CategoryWildcard {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	query += " ORDER BY measurement_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapf(err, "querying history")
	}
	defer rows.Close()

	var result []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var category string
		var createdAt string
		if err := rows.Scan(&snap.Entity.Asset, &snap.Entity.Index, &category,
			&snap.MeasurementDate, &snap.SizeMB, &snap.FileCount, &createdAt); err != nil {
			return nil, wrapf(err, "scanning history row")
		}
		snap.Entity.Category = model.Category(category)
		snap.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "iterating history rows")
	}
	return result, nil
}

// GetTotalCurrentMB sums today's snapshot rows across all entities.
func (s *SQLiteStore) GetTotalCurrentMB(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size_mb), 0) FROM storage_history
		 WHERE measurement_date = date('now', 'localtime')`,
	).Scan(&total)
	if err != nil {
		return 0, wrapf(err, "summing current usage")
	}
	return total, nil
}

// GetAverageWeights groups storage_history rows over the last `days` days
// by entity, returning avg/total MB and distinct contributing day count.
func (s *SQLiteStore) GetAverageWeights(ctx context.Context, days int) ([]model.Weight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset, index_val, category,
		        AVG(size_mb) AS avg_mb,
		        SUM(size_mb) AS total_mb,
		        COUNT(DISTINCT measurement_date) AS day_count
		 FROM storage_history
		 WHERE measurement_date >= date('now', 'localtime', ?)
		 GROUP BY asset, index_val, category
		 ORDER BY asset, index_val, category`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return nil, wrapf(err, "querying average weights")
	}
	defer rows.Close()

	var result []model.Weight
	for rows.Next() {
		var w model.Weight
		var category string
		if err := rows.Scan(&w.Entity.Asset, &w.Entity.Index, &category,
			&w.AvgMB, &w.TotalMB, &w.DayCount); err != nil {
			return nil, wrapf(err, "scanning weight row")
		}
		w.Entity.Category = model.Category(category)
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "iterating weight rows")
	}
	return result, nil
}

// GetHistoryDayCount counts distinct measurement_date values across all of
// storage_history (not windowed).
func (s *SQLiteStore) GetHistoryDayCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT measurement_date) FROM storage_history`,
	).Scan(&count)
	if err != nil {
		return 0, wrapf(err, "counting history days")
	}
	return count, nil
}

// InsertForecast appends a new forecast row.
func (s *SQLiteStore) InsertForecast(ctx context.Context, forecastDate string, predictedMB float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO storage_forecast(forecast_date, predicted_mb) VALUES(?, ?)`,
		forecastDate, predictedMB,
	)
	return wrapf(err, "inserting forecast")
}

// GetLatestForecast returns the most recently inserted forecast's
// predicted_mb, or 0 if none exists.
func (s *SQLiteStore) GetLatestForecast(ctx context.Context) (float64, error) {
	var predicted float64
	err := s.db.QueryRowContext(ctx,
		`SELECT predicted_mb FROM storage_forecast ORDER BY id DESC LIMIT 1`,
	).Scan(&predicted)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, wrapf(err, "querying latest forecast")
	}
	return predicted, nil
}

// LogDeletion appends one immutable deletion-ledger entry.
func (s *SQLiteStore) LogDeletion(ctx context.Context, rec model.DeletionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deletion_log(file_path, asset, size_mb, reason) VALUES(?, ?, ?, ?)`,
		rec.FilePath, rec.Asset, rec.SizeMB, rec.Reason,
	)
	return wrapf(err, "logging deletion")
}

// GetDeletionLogs returns the most recent deletion-ledger entries, newest
// first, capped at limit.
func (s *SQLiteStore) GetDeletionLogs(ctx context.Context, limit int) ([]model.DeletionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, asset, size_mb, reason, deleted_at FROM deletion_log
		 ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, wrapf(err, "querying deletion logs")
	}
	defer rows.Close()

	var result []model.DeletionRecord
	for rows.Next() {
		var rec model.DeletionRecord
		var deletedAt string
		if err := rows.Scan(&rec.FilePath, &rec.Asset, &rec.SizeMB, &rec.Reason, &deletedAt); err != nil {
			return nil, wrapf(err, "scanning deletion log row")
		}
		rec.DeletedAt, _ = time.Parse("2006-01-02 15:04:05", deletedAt)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "iterating deletion log rows")
	}
	return result, nil
}

// SetConfig upserts a key/value configuration row.
func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO configuration(key, value) VALUES(?, ?)`,
		key, value,
	)
	return wrapf(err, "setting config %q", key)
}

// GetConfig returns the value for key, or defaultVal if unset.
func (s *SQLiteStore) GetConfig(ctx context.Context, key, defaultVal string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM configuration WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultVal, nil
	}
	if err != nil {
		return defaultVal, wrapf(err, "getting config %q", key)
	}
	return value, nil
}

// GetSchedulerConfig reads the singleton scheduler_config row.
func (s *SQLiteStore) GetSchedulerConfig(ctx context.Context) (model.SchedulerConfig, error) {
	var cfg model.SchedulerConfig
	var lastRun sql.NullString
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT schedule_hour, schedule_minute, last_run, is_enabled FROM scheduler_config WHERE id = 1`,
	).Scan(&cfg.ScheduleHour, &cfg.ScheduleMinute, &lastRun, &enabled)
	if err != nil {
		return cfg, wrapf(err, "getting scheduler config")
	}
	cfg.LastRun = lastRun.String
	cfg.IsEnabled = enabled != 0
	return cfg, nil
}

// SetSchedulerConfig updates the singleton scheduler_config row.
func (s *SQLiteStore) SetSchedulerConfig(ctx context.Context, cfg model.SchedulerConfig) error {
	enabled := 0
	if cfg.IsEnabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduler_config SET schedule_hour = ?, schedule_minute = ?, last_run = ?, is_enabled = ? WHERE id = 1`,
		cfg.ScheduleHour, cfg.ScheduleMinute, cfg.LastRun, enabled,
	)
	return wrapf(err, "setting scheduler config")
}

var _ Store = (*SQLiteStore)(nil)
