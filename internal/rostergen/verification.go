package rostergen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// verifyService cross-checks the run against the service's own view of the
// snapshot: every successful evaluation must have been answered from the
// version /snapshot reports, and the reference listing must be serving.
func verifyService(ctx context.Context, config *Config, stats *Stats) error {
	log.Println("🔍 Verifying service state...")

	client := newHTTPClient(config.Timeout)

	snapshot, err := fetchSnapshot(ctx, client, config.BaseURL)
	if err != nil {
		return fmt.Errorf("snapshot check failed: %w", err)
	}

	if stats.SnapshotVersion != "" && stats.SnapshotVersion != snapshot.Version {
		log.Printf("⚠️  Snapshot version drift: responses reported %q, /snapshot reports %q",
			stats.SnapshotVersion, snapshot.Version)
	} else {
		log.Printf("✅ Snapshot version consistent: %s", snapshot.Version)
	}

	if err := checkStratagemListing(ctx, client, config.BaseURL); err != nil {
		log.Printf("⚠️  Stratagem listing warning: %v", err)
	} else {
		log.Println("✅ Stratagem listing verified")
	}

	if config.Verbose {
		log.Printf(`📊 Snapshot statistics:
   Version: %s
   Stratagems: %d
   Factions: %d
`, snapshot.Version, snapshot.Stratagems, snapshot.Factions)
	}

	log.Println("✅ Service verification completed")
	return nil
}

// fetchSnapshot retrieves /snapshot.
func fetchSnapshot(ctx context.Context, client *HTTPClient, baseURL string) (snapshotBody, error) {
	resp, err := client.Get(ctx, baseURL+"/snapshot")
	if err != nil {
		return snapshotBody{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return snapshotBody{}, fmt.Errorf("failed to read snapshot response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return snapshotBody{}, fmt.Errorf("snapshot request failed with status: %d", resp.StatusCode)
	}

	var snapshot snapshotBody
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return snapshotBody{}, fmt.Errorf("failed to decode snapshot response: %w", err)
	}
	return snapshot, nil
}

// checkStratagemListing spot-checks the reference listing endpoint.
func checkStratagemListing(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/stratagems?limit=5")
	if err != nil {
		return fmt.Errorf("failed to fetch stratagems: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read stratagems response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("stratagems request failed with status: %d", resp.StatusCode)
	}

	var listing struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return fmt.Errorf("failed to decode stratagems response: %w", err)
	}
	if listing.Count == 0 {
		return fmt.Errorf("stratagem listing is empty")
	}
	return nil
}
