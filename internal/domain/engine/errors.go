package engine

import "errors"

// ErrNilRoster is returned when Evaluate is called without a roster.
var ErrNilRoster = errors.New("nil roster")
