package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/muster/internal/rostergen"
)

// Default configuration constants.
const (
	defaultNumRosters = 200
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numRosters = flag.Int("rosters", defaultNumRosters, "Number of rosters to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputDir  = flag.String("output", "", "Directory to save generated exports (default: none)")
		logFile    = flag.String("log", "", "Log file for run output (default: rostergen_TIMESTAMP.log)")
		zipped     = flag.Bool("zip", false, "Package exports as .rosz archives")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		rostergen.ShowHelp()
		return
	}

	// Setup logging
	if err := rostergen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create run configuration
	config := &rostergen.Config{
		BaseURL:    *baseURL,
		NumRosters: *numRosters,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputDir:  *outputDir,
		LogFile:    *logFile,
		Zipped:     *zipped,
		Verbose:    *verbose,
	}

	// Run the generator
	if err := rostergen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		return
	}
}
