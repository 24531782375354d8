// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile enables rotating file output when set; empty logs to stdout only.
	LogFile string `koanf:"log_file"`

	// Rotation bounds for LogFile.
	LogFileMaxSizeMB  int `koanf:"log_file_max_size_mb"`
	LogFileMaxBackups int `koanf:"log_file_max_backups"`
	LogFileMaxAgeDays int `koanf:"log_file_max_age_days"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TaskQueueSize bounds the in-memory recompute task queue.
	TaskQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the ingestion fingerprint cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BaselineWindowDays sets the trailing baseline window length.
	BaselineWindowDays int `koanf:"baseline_window_days"`

	// BaselineMinCoverage sets the minimum sampled days for a usable baseline.
	BaselineMinCoverage int `koanf:"baseline_min_coverage"`

	// MemoryCacheCapacity bounds the in-memory score cache.
	MemoryCacheCapacity int `koanf:"memory_cache_capacity"`

	// DurablePath locates the SQLite score database.
	DurablePath string `koanf:"durable_path"`

	// Durable write retry policy.
	DurableWriteRetries   int `koanf:"durable_write_retries"`
	DurableWriteBackoffMS int `koanf:"durable_write_backoff_ms"`

	// FreshnessWindowMin is how long a publish counts as recently updated.
	FreshnessWindowMin int `koanf:"freshness_window_min"`

	// Morning sync window, local hours [from, to).
	MorningSyncFromHour int `koanf:"morning_sync_from_hour"`
	MorningSyncToHour   int `koanf:"morning_sync_to_hour"`

	// Growth curve gains around the baseline anchor.
	CurveUpGain   float64 `koanf:"curve_up_gain"`
	CurveDownGain float64 `koanf:"curve_down_gain"`

	// MaxHistoryLimit caps GET /v1/scores/{kind}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFileMaxSizeMB:      100,
		LogFileMaxBackups:     3,
		LogFileMaxAgeDays:     28,
		Addr:                  ":9080",
		TaskQueueSize:         4096,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            50_000,
		BaselineWindowDays:    14,
		BaselineMinCoverage:   7,
		MemoryCacheCapacity:   100,
		DurablePath:           "soma.db",
		DurableWriteRetries:   5,
		DurableWriteBackoffMS: 100,
		FreshnessWindowMin:    30,
		MorningSyncFromHour:   5,
		MorningSyncToHour:     11,
		CurveUpGain:           125,
		CurveDownGain:         150,
		MaxHistoryLimit:       90,
	}
}
