package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotStarted marks calls made before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrUnknownFaction marks a listing query for a faction absent from
	// the snapshot.
	ErrUnknownFaction = errors.New("unknown faction")

	// ErrUnknownPhase marks a listing query with an unrecognized phase.
	ErrUnknownPhase = errors.New("unknown phase")
)
