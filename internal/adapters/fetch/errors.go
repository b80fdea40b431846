package fetch

import "errors"

var (
	// ErrDownloadFailed wraps the last error after all attempts for a
	// file are exhausted.
	ErrDownloadFailed = errors.New("download failed")
	// ErrRateLimited marks a response identified as the provider's
	// throttling page rather than data.
	ErrRateLimited = errors.New("rate limited")
)
