package ned

import (
	"errors"
	"fmt"
)

// ErrEmptyStream is returned when the reference mode is "first" but the
// position stream has no samples to take the reference from.
var ErrEmptyStream = errors.New("position stream is empty")

// InvalidSampleError reports a sample whose coordinate is non-numeric or
// not finite. One bad sample fails the whole batch: downstream consumers
// expect 1:1 row correspondence between input and output.
type InvalidSampleError struct {
	Index  int    // row index in the input stream
	Field  string // coordinate field, e.g. "lat"
	Reason string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("sample %d: invalid %s: %s", e.Index, e.Field, e.Reason)
}

// ConfigError reports a reference specification that is neither "first"
// nor a complete, finite explicit triple. Raised before any computation.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "reference configuration: " + e.Reason
}
