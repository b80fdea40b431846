package roster

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrMalformedDocument marks input that is not a readable roster export:
	// broken XML, a wrong root element, or an archive without a .ros member.
	ErrMalformedDocument = errors.New("malformed roster document")

	// ErrUnsupportedSchema marks a well-formed roster from an export version
	// outside the supported family.
	ErrUnsupportedSchema = errors.New("unsupported roster schema")
)

// SchemaError carries the detected and supported export versions. It unwraps
// to ErrUnsupportedSchema.
type SchemaError struct {
	Detected  string
	Supported string
}

func (e *SchemaError) Error() string {
	if e.Detected == "" {
		return fmt.Sprintf("unsupported roster schema: version missing (supported %s)", e.Supported)
	}
	return fmt.Sprintf("unsupported roster schema %q (supported %s)", e.Detected, e.Supported)
}

func (e *SchemaError) Unwrap() error { return ErrUnsupportedSchema }
