package eligibility

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrBadCondition = errors.New("bad condition expression")
)
