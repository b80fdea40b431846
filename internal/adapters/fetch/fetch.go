// Package fetch downloads reference CSV exports from the upstream data
// provider into a snapshot directory. It is an operator-side tool: the
// server never fetches during evaluation, it only reads the directory at
// startup.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/muster/internal/adapters/snapshot"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// DefaultBaseURL is the upstream export root.
const DefaultBaseURL = "https://wahapedia.ru/wh40k10ed/"

// Default download configuration constants.
const (
	defaultTimeout        = 30 * time.Second
	defaultRetries        = 5
	defaultConcurrency    = 3
	defaultRetryDelay     = 3 * time.Second
	defaultRateLimitDelay = 5 * time.Second

	// Bodies under this size that look like HTML are the provider's
	// throttling page, not data.
	minCSVSize = 2048

	manifestName = "_manifest.json"
)

// DefaultFiles is the upstream file set a snapshot needs. The condition and
// alias tables are curated locally, not downloaded.
var DefaultFiles = []string{
	snapshot.FileFactions,
	snapshot.FileStratagems,
	snapshot.FileDatasheets,
	snapshot.FileVersion,
}

// FileResult records one downloaded file.
type FileResult struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Manifest describes one completed fetch. It is also written to the
// snapshot directory as _manifest.json.
type Manifest struct {
	BaseURL   string       `json:"base_url"`
	Version   string       `json:"version,omitempty"`
	FetchedAt time.Time    `json:"fetched_at"`
	Files     []FileResult `json:"files"`
}

// Fetcher downloads snapshot files with bounded concurrency, per-file
// retries, and rate-limit backoff.
type Fetcher struct {
	baseURL        string
	client         *http.Client
	timeout        time.Duration
	retries        int
	concurrency    int
	retryDelay     time.Duration
	rateLimitDelay time.Duration
	files          []string
	log            logger.Logger
}

// New creates a Fetcher with configuration options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:        DefaultBaseURL,
		timeout:        defaultTimeout,
		retries:        defaultRetries,
		concurrency:    defaultConcurrency,
		retryDelay:     defaultRetryDelay,
		rateLimitDelay: defaultRateLimitDelay,
		files:          DefaultFiles,
		log:            logger.Get().Named("fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Fetch downloads the full file set into dir and writes a manifest.
// Workers pull file names off a shared channel; any file failing after all
// retries fails the fetch as a whole.
func (f *Fetcher) Fetch(ctx context.Context, dir string) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, err
	}
	start := time.Now()

	jobs := make(chan string)
	var (
		mu      sync.Mutex
		results []FileResult
		errs    []error
	)
	var wg sync.WaitGroup
	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				res, err := f.downloadFile(ctx, dir, name)
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					results = append(results, res)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, name := range f.files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- name:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}
	if len(errs) > 0 {
		return Manifest{}, errors.Join(errs...)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	m := Manifest{
		BaseURL:   f.baseURL,
		Version:   readVersionFile(dir),
		FetchedAt: start.UTC(),
		Files:     results,
	}
	if err := f.writeManifest(dir, m); err != nil {
		return Manifest{}, err
	}

	f.log.Info(ctx, "snapshot fetched",
		logger.String("dir", dir),
		logger.String("version", m.Version),
		logger.Int("files", len(m.Files)),
		logger.Duration("took", time.Since(start)),
	)
	return m, nil
}

// Refresh downloads the version marker first and only fetches the full set
// when the upstream version differs from what dir already holds. The bool
// reports whether a full fetch ran.
func (f *Fetcher) Refresh(ctx context.Context, dir string) (bool, Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, Manifest{}, err
	}

	before := readVersionFile(dir)
	if before == "" {
		f.log.Info(ctx, "no local version marker, fetching everything")
		m, err := f.Fetch(ctx, dir)
		return err == nil, m, err
	}

	if _, err := f.downloadFile(ctx, dir, snapshot.FileVersion); err != nil {
		return false, Manifest{}, err
	}
	after := readVersionFile(dir)
	if after == before {
		f.log.Info(ctx, "snapshot is current", logger.String("version", before))
		return false, Manifest{BaseURL: f.baseURL, Version: before}, nil
	}

	f.log.Info(ctx, "upstream version changed",
		logger.String("from", before),
		logger.String("to", after),
	)
	m, err := f.Fetch(ctx, dir)
	return err == nil, m, err
}

// downloadFile fetches one file with retries, writing atomically via a
// temp file so a partially written download never replaces good data.
func (f *Fetcher) downloadFile(ctx context.Context, dir, name string) (FileResult, error) {
	start := time.Now()
	url := f.baseURL + name

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		body, err := f.get(ctx, url)
		if err == nil {
			if err := writeAtomic(dir, name, body); err != nil {
				return FileResult{}, err
			}
			metrics.RecordFetchDownload(name, "success")
			metrics.RecordFetchFileDuration(float64(time.Since(start).Milliseconds()))
			f.log.Debug(ctx, "downloaded",
				logger.String("file", name),
				logger.Int("bytes", len(body)),
				logger.Int("attempt", attempt),
			)
			return FileResult{Name: name, Size: int64(len(body)), FetchedAt: time.Now().UTC()}, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == f.retries {
			break
		}

		metrics.RecordFetchRetry()
		delay := f.retryDelay
		if errors.Is(err, ErrRateLimited) {
			metrics.RecordFetchRateLimited()
			delay = f.rateLimitDelay
			f.log.Warn(ctx, "rate limited, backing off",
				logger.String("file", name),
				logger.Duration("delay", delay),
			)
		}
		select {
		case <-ctx.Done():
			return FileResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	metrics.RecordFetchDownload(name, "failure")
	return FileResult{}, fmt.Errorf("%w: %s after %d attempts: %w", ErrDownloadFailed, name, f.retries, lastErr)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if looksRateLimited(body) {
		return nil, ErrRateLimited
	}
	return body, nil
}

// looksRateLimited flags the provider's throttling page: a small HTML
// document served where CSV bytes were expected.
func looksRateLimited(body []byte) bool {
	if len(body) >= minCSVSize {
		return false
	}
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<!doctype html"))
}

func (f *Fetcher) writeManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, manifestName, data)
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// readVersionFile returns the version string from dir's marker file,
// empty when the file is absent or unreadable.
func readVersionFile(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, snapshot.FileVersion))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}
