package errors

import (
	stderrors "errors"
	"fmt"
)

// Error type constants
const (
	ValidationError       = "VALIDATION_ERROR"
	PreconditionFailed    = "PRECONDITION_FAILED"
	FatalOperationFailure = "FATAL_OPERATION_FAILURE"
)

// RunError is a structured error for CLI, HTTP and agent consumption.
type RunError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Task    string `json:"task,omitempty"`
	Hint    string `json:"hint,omitempty"`

	cause error
}

func (e *RunError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("[%s] task %s: %s", e.Type, e.Task, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the error reported by the application, if any.
func (e *RunError) Unwrap() error {
	return e.cause
}

func NewValidationError(msg, hint string) *RunError {
	return &RunError{Type: ValidationError, Message: msg, Hint: hint}
}

func NewPreconditionError(task, msg, hint string) *RunError {
	return &RunError{Type: PreconditionFailed, Task: task, Message: msg, Hint: hint}
}

// NewOperationFailure wraps an application failure for the named task. It is
// the only error kind a run produces once tasks start executing.
func NewOperationFailure(task string, cause error) *RunError {
	msg := "operation failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &RunError{
		Type:    FatalOperationFailure,
		Task:    task,
		Message: msg,
		Hint:    "Fix the cause and re-run the plan from the start",
		cause:   cause,
	}
}

// IsFatal reports whether err is, or wraps, a fatal operation failure.
func IsFatal(err error) bool {
	var re *RunError
	return stderrors.As(err, &re) && re.Type == FatalOperationFailure
}
