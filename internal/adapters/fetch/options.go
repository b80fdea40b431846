package fetch

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/muster/pkg/logger"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL overrides the upstream export root. A trailing slash is
// appended when missing so file names can be joined directly.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) {
		if u == "" {
			return
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		f.baseURL = u
	}
}

// WithTimeout sets the per-request timeout. Ignored when WithClient
// supplies a custom client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRetries sets how many attempts each file gets before the fetch is
// declared failed.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.retries = n
		}
	}
}

// WithConcurrency sets how many files download in parallel.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithRetryDelay sets the pause between ordinary retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryDelay = d
		}
	}
}

// WithRateLimitDelay sets the longer pause used after the provider serves
// its throttling page.
func WithRateLimitDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.rateLimitDelay = d
		}
	}
}

// WithClient replaces the HTTP client, typically for tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFiles overrides the file set to download.
func WithFiles(files ...string) Option {
	return func(f *Fetcher) {
		if len(files) > 0 {
			f.files = files
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}
