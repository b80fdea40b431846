package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/muster/internal/adapters/fetch"
	"github.com/okian/muster/internal/config"
	"github.com/okian/muster/pkg/logger"
)

// Default configuration constants.
const (
	defaultDir        = "./snapshot"
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	// Layered config (defaults, MUSTER_CONFIG file, MUSTER_* env) seeds the
	// flag defaults; explicit flags win.
	cfg, err := config.Load(context.Background())
	if err != nil {
		os.Stderr.WriteString("config load failed, using defaults: " + err.Error() + "\n")
		cfg = config.New(context.Background())
	}
	dirDefault := cfg.SnapshotDir
	if dirDefault == "" {
		dirDefault = defaultDir
	}

	var (
		dir         = flag.String("dir", dirDefault, "Directory to write snapshot files into")
		baseURL     = flag.String("url", cfg.FetchBaseURL, "Base URL of the reference data provider")
		timeout     = flag.Duration("timeout", time.Duration(cfg.FetchTimeoutS)*time.Second, "HTTP request timeout")
		retries     = flag.Int("retries", cfg.FetchRetries, "Attempts per file before giving up")
		concurrency = flag.Int("concurrency", cfg.FetchConcurrency, "Number of parallel downloads")
		force       = flag.Bool("force", false, "Fetch everything even when the upstream version is unchanged")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()
	_ = logger.SetLevelString(cfg.LogLevel)
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	log := logger.Get().Named("snapshot-fetch")

	// Root context with cancel on SIGINT/SIGTERM and an overall deadline so
	// a wedged download cannot hang a cron job forever.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	f := fetch.New(
		fetch.WithBaseURL(*baseURL),
		fetch.WithTimeout(*timeout),
		fetch.WithRetries(*retries),
		fetch.WithConcurrency(*concurrency),
		fetch.WithLogger(log),
	)

	if *force {
		if _, err := f.Fetch(ctx, *dir); err != nil {
			os.Stderr.WriteString("fetch failed: " + err.Error() + "\n")
			return
		}
		return
	}

	fetched, m, err := f.Refresh(ctx, *dir)
	if err != nil {
		os.Stderr.WriteString("refresh failed: " + err.Error() + "\n")
		return
	}
	if !fetched {
		log.Info(ctx, "snapshot already current", logger.String("version", m.Version))
	}
}
