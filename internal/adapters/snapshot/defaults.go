package snapshot

import (
	"embed"
	"io/fs"
)

//go:embed data
var embeddedFS embed.FS

// defaultTablesFS exposes the curated alias/rename tables shipped in the
// binary, rooted so the table file names resolve directly.
var defaultTablesFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(embeddedFS, "data")
	if err != nil {
		return embeddedFS
	}
	return sub
}()

// defaultSnapshotFS is the miniature but complete snapshot used when no
// snapshot directory is configured.
var defaultSnapshotFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(embeddedFS, "data/default")
	if err != nil {
		return embeddedFS
	}
	return sub
}()

// DefaultFS returns the embedded snapshot. It keeps the server bootable
// with no snapshot directory configured, for demos and tests.
func DefaultFS() fs.FS {
	return defaultSnapshotFS
}
