// Package site serves the embedded roster upload page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// ErrServe reports a failure while serving the embedded site.
var ErrServe = errors.New("site serve failed")

// Register attaches the embedded upload page routes to mux. The page is
// served at / so the evaluator works from a browser with no extra tooling.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("/", files)
}
