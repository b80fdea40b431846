package rostergen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/muster/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "rostergen_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the roster generator tool.
func ShowHelp() {
	os.Stdout.WriteString(`Muster Roster Generator
=======================

A concurrent tool for generating synthetic BattleScribe exports and
exercising the Muster evaluation service.

Usage:
  go run cmd/roster-gen/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rosters int
        Number of rosters to generate and submit (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Directory to save generated exports (default: none, in-memory only)
  -log string
        Log file for run output (default: rostergen_TIMESTAMP.log)
  -zip
        Package exports as .rosz archives instead of raw .ros XML
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/roster-gen/main.go

  # Run with custom parameters
  go run cmd/roster-gen/main.go -rosters 1000 -workers 16 -url http://localhost:8080

  # Keep the generated exports for inspection
  go run cmd/roster-gen/main.go -rosters 50 -output ./exports -zip

  # Run with verbose output
  go run cmd/roster-gen/main.go -verbose -rosters 500
`)
}
