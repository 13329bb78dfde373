package models

import (
	"errors"
	"fmt"
)

// Process exit codes, matching the pipeline's published contract.
const (
	ExitOK        = 0
	ExitException = 1
	ExitInvalid   = 2
	ExitFailed    = 3
)

// InvalidError reports bad or missing configuration, or an unsatisfiable
// precondition (k <= 0, unknown directive name, empty post-filter matrix).
// Fatal: aborts the run before or during computation.
type InvalidError struct {
	Message string
}

func (e *InvalidError) Error() string { return e.Message }

// Invalidf formats a new InvalidError.
func Invalidf(format string, args ...interface{}) *InvalidError {
	return &InvalidError{Message: fmt.Sprintf(format, args...)}
}

// FailedError reports an environment violation outside the engine's control,
// such as an unusable output location. Fatal: aborts the run.
type FailedError struct {
	Message string
	Err     error
}

func (e *FailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FailedError) Unwrap() error { return e.Err }

// Failedf formats a new FailedError wrapping err (err may be nil).
func Failedf(err error, format string, args ...interface{}) *FailedError {
	return &FailedError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ExitCodeFor maps an error to the pipeline exit code contract.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var invalid *InvalidError
	if errors.As(err, &invalid) {
		return ExitInvalid
	}
	var failed *FailedError
	if errors.As(err, &failed) {
		return ExitFailed
	}
	return ExitException
}

// Warning types for recoverable per-entity anomalies.
const (
	WarnFlatShape  = "flat_shape"
	WarnNoPhases   = "no_phases"
	WarnNoMetadata = "no_metadata"
)

// Warning is a recoverable per-meter anomaly. The affected meter is handled
// via a documented fallback and the run continues; every warning is reported
// to the caller, never swallowed.
type Warning struct {
	Type    string
	MeterID string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Type, w.MeterID, w.Message)
}
