package domain

import "fmt"

// ValidationError reports a malformed inbound request. It is the only error
// class that aborts a request before the pipeline runs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// NewValidationError builds a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// StageCallError reports an unreachable stage service, a non-2xx status, a
// timeout, or an error-shaped response body. Stage-level errors never abort
// the pipeline; the scheduler degrades around them.
type StageCallError struct {
	Stage  string
	Status int
	Reason string
	Err    error
}

func (e *StageCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("stage %s returned %d: %s", e.Stage, e.Status, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("stage %s call failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s call failed: %s", e.Stage, e.Reason)
}

func (e *StageCallError) Unwrap() error {
	return e.Err
}

// ShapeError reports a stage response that matched none of the recognized
// shapes. Treated as an empty result for that stage.
type ShapeError struct {
	Stage  string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("stage %s returned unrecognized shape: %s", e.Stage, e.Detail)
}
