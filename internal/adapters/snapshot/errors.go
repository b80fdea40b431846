package snapshot

import "errors"

var (
	// ErrMissingFile marks a snapshot directory that lacks a required
	// file (Factions.csv or Stratagems.csv).
	ErrMissingFile = errors.New("missing snapshot file")
	// ErrBadSnapshot marks a snapshot file that could not be parsed at
	// all, as opposed to individual rows being malformed.
	ErrBadSnapshot = errors.New("unreadable snapshot")
)
