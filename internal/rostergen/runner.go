package rostergen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/muster/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	rosterPermission    = 0600
)

// Run executes a complete generation run: health check, generation,
// optional save, submission, verification.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting muster roster run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("rosters", config.NumRosters),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("outputDir", config.OutputDir),
		logger.Any("zipped", config.Zipped),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate rosters
	rosters, err := generateRosters(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("roster generation failed: %w", err)
	}

	// Step 3: Save rosters before submission so failures stay reproducible
	if config.OutputDir != "" {
		if err := saveRostersToDir(ctx, config, rosters); err != nil {
			logger.Get().Warn(ctx, "failed to save rosters", logger.Error(err))
		}
	}

	// Step 4: Submit rosters concurrently
	if err := submitRosters(ctx, config, rosters, stats); err != nil {
		return fmt.Errorf("roster submission failed: %w", err)
	}

	// Step 5: Verify service state
	if err := verifyService(ctx, config, stats); err != nil {
		return fmt.Errorf("service verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveRostersToDir writes the generated exports into the output directory.
func saveRostersToDir(ctx context.Context, config *Config, rosters []Roster) error {
	if len(rosters) == 0 {
		return fmt.Errorf("no rosters to save")
	}

	if err := os.MkdirAll(config.OutputDir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, roster := range rosters {
		path := filepath.Join(config.OutputDir, roster.Filename)
		if err := os.WriteFile(path, roster.Data, rosterPermission); err != nil {
			return fmt.Errorf("failed to write %s: %w", roster.Filename, err)
		}
	}

	logger.Get().Info(ctx, "rosters saved",
		logger.String("dir", config.OutputDir),
		logger.Int("count", len(rosters)))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, rostersPerSecond, matchesPerRoster float64

	if stats.RostersSubmitted > 0 {
		successRate = float64(stats.RostersSuccessful) / float64(stats.RostersSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		rostersPerSecond = float64(stats.RostersSubmitted) / stats.Duration.Seconds()
	}

	if stats.RostersSuccessful > 0 {
		matchesPerRoster = float64(stats.StratagemsMatched) / float64(stats.RostersSuccessful)
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("rostersGenerated", stats.RostersGenerated),
		logger.Int("rostersSubmitted", stats.RostersSubmitted),
		logger.Int("rostersSuccessful", stats.RostersSuccessful),
		logger.Int("rostersRejected", stats.RostersRejected),
		logger.Int("rostersFailed", stats.RostersFailed),
		logger.Int("stratagemsMatched", stats.StratagemsMatched),
		logger.Int("unresolvedFactions", stats.UnresolvedFactions),
		logger.Int("unitsWithoutKeywords", stats.UnitsWithoutKeyword),
		logger.String("snapshotVersion", stats.SnapshotVersion),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("rostersPerSecond", rostersPerSecond),
		logger.Float64("matchesPerRoster", matchesPerRoster))
}
