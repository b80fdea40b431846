package rostergen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// PostRoster performs a multipart POST with the roster bytes as the form
// file named "roster"
func (c *HTTPClient) PostRoster(ctx context.Context, url, filename string, data []byte) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("roster", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submissionOutcome is the per-roster result of one upload.
type submissionOutcome struct {
	result          string // success, rejected or failed
	stratagems      int
	unresolved      int
	withoutKeywords int
	snapshotVersion string
}

// submitRosters uploads rosters concurrently using a worker pool
func submitRosters(ctx context.Context, config *Config, rosters []Roster, stats *Stats) error {
	log.Printf("📤 Submitting %d rosters with %d workers...", len(rosters), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/evaluate"

	// Counters for statistics
	var (
		successful      int64
		rejected        int64
		failed          int64
		submitted       int64
		stratagems      int64
		unresolved      int64
		withoutKeywords int64
	)

	// Snapshot version consensus across responses
	var versionMu sync.Mutex
	versions := make(map[string]int)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	rosterChan := make(chan Roster, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for roster := range rosterChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcome := submitSingleRoster(ctx, client, url, roster)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch outcome.result {
					case "success":
						atomic.AddInt64(&successful, 1)
						atomic.AddInt64(&stratagems, int64(outcome.stratagems))
						atomic.AddInt64(&unresolved, int64(outcome.unresolved))
						atomic.AddInt64(&withoutKeywords, int64(outcome.withoutKeywords))
						if outcome.snapshotVersion != "" {
							versionMu.Lock()
							versions[outcome.snapshotVersion]++
							versionMu.Unlock()
						}
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, rejected: %d, failed: %d)",
								total, len(rosters), succ, rej, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, rejected: %d, failed: %d)",
								total, len(rosters), succ, rej, fail)
						}
					}
				}
			}
		}()
	}

	// Send rosters to workers
	go func() {
		defer close(rosterChan)
		for _, roster := range rosters {
			select {
			case <-ctx.Done():
				return
			case rosterChan <- roster:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.RostersSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RostersSuccessful = int(atomic.LoadInt64(&successful))
	stats.RostersRejected = int(atomic.LoadInt64(&rejected))
	stats.RostersFailed = int(atomic.LoadInt64(&failed))
	stats.StratagemsMatched = int(atomic.LoadInt64(&stratagems))
	stats.UnresolvedFactions = int(atomic.LoadInt64(&unresolved))
	stats.UnitsWithoutKeyword = int(atomic.LoadInt64(&withoutKeywords))
	stats.SnapshotVersion = dominantVersion(versions)

	log.Printf(`✅ Roster submission completed:
   Successful: %d
   Rejected: %d
   Failed: %d
   Stratagems matched: %d
`, stats.RostersSuccessful, stats.RostersRejected, stats.RostersFailed, stats.StratagemsMatched)

	return nil
}

// submitSingleRoster uploads one roster and classifies the outcome
func submitSingleRoster(ctx context.Context, client *HTTPClient, url string, roster Roster) submissionOutcome {
	resp, err := client.PostRoster(ctx, url, roster.Filename, roster.Data)
	if err != nil {
		return submissionOutcome{result: "failed"}
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return submissionOutcome{result: "failed"}
	}

	switch {
	case resp.StatusCode == StatusOK:
		var ev evaluationResponse
		if err := json.Unmarshal(body, &ev); err != nil {
			return submissionOutcome{result: "failed"}
		}
		return submissionOutcome{
			result:          "success",
			stratagems:      len(ev.Stratagems),
			unresolved:      len(ev.Diagnostics.UnresolvedFactions),
			withoutKeywords: len(ev.Diagnostics.UnitsWithoutKeywords),
			snapshotVersion: ev.SnapshotVersion,
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The service refused the roster; generated exports should never
		// trigger this, so surface it in the rejected bucket.
		var body400 errorBody
		_ = json.Unmarshal(body, &body400)
		log.Printf("⚠️  roster %s rejected: %s (%s)", roster.Filename, body400.Code, body400.Message)
		return submissionOutcome{result: "rejected"}
	default:
		return submissionOutcome{result: "failed"}
	}
}

// dominantVersion returns the snapshot version most responses agreed on.
func dominantVersion(versions map[string]int) string {
	best := ""
	bestCount := 0
	for v, count := range versions {
		if count > bestCount {
			best, bestCount = v, count
		}
	}
	return best
}
