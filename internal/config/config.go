// Package config loads fifoguard's configuration from a YAML file (with
// environment overrides and defaults) via viper, mirroring the teacher's
// config package structure.
package config

import (
	"fmt"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// DatabaseConfig holds database-related settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScanConfig holds the default archive root, projection granularity, and
// capacity parameters a governance cycle evaluates against.
type ScanConfig struct {
	Root        string  `mapstructure:"root"`
	Granularity string  `mapstructure:"granularity"`
	LimitMB     float64 `mapstructure:"limit_mb"`
	TargetPct   float64 `mapstructure:"target_pct"`
}

// SchedulerConfig holds the default background timetable.
type SchedulerConfig struct {
	Mode            string `mapstructure:"mode"`
	Hour            int    `mapstructure:"hour"`
	Minute          int    `mapstructure:"minute"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
}

// GranularityValue parses ScanConfig.Granularity into model.Granularity,
// defaulting to GranularityAsset on an unrecognized or empty value.
func (s ScanConfig) GranularityValue() model.Granularity {
	switch s.Granularity {
	case "asset_index":
		return model.GranularityAssetIndex
	case "full":
		return model.GranularityFull
	default:
		return model.GranularityAsset
	}
}

// Load reads configuration from the specified file path. When configPath
// is empty it searches the standard locations and uses built-in defaults
// if no file is found there; an explicit configPath that cannot be read is
// returned as an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "/var/lib/fifoguard/fifoguard.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("scan.root", "/data/archive")
	v.SetDefault("scan.granularity", "asset")
	v.SetDefault("scan.limit_mb", 0.0)
	v.SetDefault("scan.target_pct", 0.70)
	v.SetDefault("scheduler.mode", "daily")
	v.SetDefault("scheduler.hour", 3)
	v.SetDefault("scheduler.minute", 0)
	v.SetDefault("scheduler.interval_minutes", 60)

	v.SetEnvPrefix("fifoguard")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fifoguard")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/fifoguard")
		v.AddConfigPath("$HOME/.config/fifoguard")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK if using defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Scan.Root == "" {
		return fmt.Errorf("scan.root is required")
	}

	if c.Scan.TargetPct <= 0 || c.Scan.TargetPct > 1 {
		return fmt.Errorf("scan.target_pct must be in (0, 1]")
	}

	switch c.Scheduler.Mode {
	case "daily":
		if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
			return fmt.Errorf("scheduler.hour must be in [0, 23]")
		}
		if c.Scheduler.Minute < 0 || c.Scheduler.Minute > 59 {
			return fmt.Errorf("scheduler.minute must be in [0, 59]")
		}
	case "interval":
		if c.Scheduler.IntervalMinutes < 1 {
			return fmt.Errorf("scheduler.interval_minutes must be at least 1")
		}
	default:
		return fmt.Errorf("scheduler.mode must be %q or %q", "daily", "interval")
	}

	return nil
}

// Default returns a default configuration suitable for testing or initial
// setup.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "/var/lib/fifoguard/fifoguard.db"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Scan: ScanConfig{
			Root:        "/data/archive",
			Granularity: "asset",
			LimitMB:     0,
			TargetPct:   0.70,
		},
		Scheduler: SchedulerConfig{
			Mode:            "daily",
			Hour:            3,
			Minute:          0,
			IntervalMinutes: 60,
		},
	}
}

// SchedulerInterval returns the scheduler's interval as a time.Duration.
func (s SchedulerConfig) SchedulerInterval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}
