// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Default limits.
const (
	defaultMaxUploadBytes = 5 << 20 // roster exports are small; 5 MiB is generous
	defaultMaxQueryLimit  = 200
	defaultFetchTimeoutS  = 30
	defaultFetchRetries   = 3
	defaultFetchWorkers   = 3
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SnapshotDir points at the reference snapshot directory. Empty means
	// the embedded default snapshot is used.
	SnapshotDir string `koanf:"snapshot_dir"`

	// MaxUploadBytes caps the size of an uploaded roster document.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// MaxQueryLimit caps GET /stratagems?limit.
	MaxQueryLimit int `koanf:"max_query_limit"`

	// FetchBaseURL is the upstream reference-data provider.
	FetchBaseURL string `koanf:"fetch_base_url"`

	// FetchTimeoutS bounds a single snapshot file download, in seconds.
	FetchTimeoutS int `koanf:"fetch_timeout_s"`

	// FetchRetries sets per-file download attempts.
	FetchRetries int `koanf:"fetch_retries"`

	// FetchConcurrency sets the number of parallel snapshot downloads.
	FetchConcurrency int `koanf:"fetch_concurrency"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use (e.g.,
// loading from env/files) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		SnapshotDir:      "",
		MaxUploadBytes:   defaultMaxUploadBytes,
		MaxQueryLimit:    defaultMaxQueryLimit,
		FetchBaseURL:     "https://wahapedia.ru/wh40k10ed/",
		FetchTimeoutS:    defaultFetchTimeoutS,
		FetchRetries:     defaultFetchRetries,
		FetchConcurrency: defaultFetchWorkers,
	}
	return c
}
