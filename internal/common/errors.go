package common

import (
	"errors"
)

// Fatal conditions shared by both pipelines. Callers wrap these with context
// and the CLI maps them to distinct exit statuses.
var (
	// ErrInputMissing means a required input file does not exist.
	ErrInputMissing = errors.New("input missing")
	// ErrInputEmpty means the input exists but yielded no usable records.
	ErrInputEmpty = errors.New("input empty")
	// ErrMappingFailure means no load step could be placed inside the trace.
	ErrMappingFailure = errors.New("no step could be mapped onto the trace")
	// ErrNoSustainable means analysis completed but no step met both thresholds.
	ErrNoSustainable = errors.New("no sustainable step")
)

// Exit statuses
const (
	ExitOK             = 0
	ExitError          = 1
	ExitNoSustainable  = 2
	ExitInputMissing   = 3
	ExitInputEmpty     = 4
	ExitMappingFailure = 5
)

// ExitCode returns the process status for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoSustainable):
		return ExitNoSustainable
	case errors.Is(err, ErrInputMissing):
		return ExitInputMissing
	case errors.Is(err, ErrInputEmpty):
		return ExitInputEmpty
	case errors.Is(err, ErrMappingFailure):
		return ExitMappingFailure
	default:
		return ExitError
	}
}
