// Package apperrors provides structured application errors for pattern runs.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrPatternNotFound  = errors.New("pattern not found")
	ErrAuthentication   = errors.New("authentication error")
	ErrDeployment       = errors.New("deployment error")
	ErrExecution        = errors.New("execution error")
	ErrTimeout          = errors.New("timeout exceeded")
	ErrInterrupted      = errors.New("interrupted")
	ErrParamsNotFound   = errors.New("params block not found")
	ErrUnsafeExpression = errors.New("unsafe expression")
	ErrParamsParse      = errors.New("params parse error")
)

// Error provides a structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Pattern  string // Pattern id the error belongs to, if any
	Op       string // Operation that failed (e.g., "ogc.deploy")
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// PatternNotFound creates an error for an unknown pattern id.
func PatternNotFound(patternID string) error {
	return &Error{
		Sentinel: ErrPatternNotFound,
		Message:  fmt.Sprintf("pattern %s not found in pattern store", patternID),
		Pattern:  patternID,
	}
}

// Authentication creates an error for rejected or missing credentials.
func Authentication(op string, statusCode int) error {
	return &Error{
		Sentinel: ErrAuthentication,
		Message:  fmt.Sprintf("%s: credentials rejected (HTTP %d)", op, statusCode),
		Op:       op,
	}
}

// Deployment creates an error for a failed deploy call.
func Deployment(patternID string, cause error) error {
	return &Error{
		Sentinel: ErrDeployment,
		Message:  fmt.Sprintf("deployment of %s failed: %v", patternID, cause),
		Pattern:  patternID,
		Op:       "ogc.deploy",
		Cause:    cause,
	}
}

// Execution creates an error for a failed execute call.
func Execution(patternID string, cause error) error {
	return &Error{
		Sentinel: ErrExecution,
		Message:  fmt.Sprintf("execution of %s failed: %v", patternID, cause),
		Pattern:  patternID,
		Op:       "ogc.execute",
		Cause:    cause,
	}
}

// Timeout creates an error for a monitoring loop that exceeded its bound.
func Timeout(patternID, jobID string) error {
	return &Error{
		Sentinel: ErrTimeout,
		Message:  fmt.Sprintf("monitoring of job %s timed out; the job may still be running on the server", jobID),
		Pattern:  patternID,
		Op:       "runner.monitor",
	}
}

// Interrupted creates an error for an observed cancellation.
func Interrupted(patternID string) error {
	return &Error{
		Sentinel: ErrInterrupted,
		Message:  fmt.Sprintf("run of %s interrupted before completion", patternID),
		Pattern:  patternID,
	}
}

// ParamsNotFound creates an error for a notebook without a params assignment.
func ParamsNotFound(patternID string) error {
	return &Error{
		Sentinel: ErrParamsNotFound,
		Message:  fmt.Sprintf("no params assignment found in any code cell of %s", patternID),
		Pattern:  patternID,
		Op:       "notebook.extract",
	}
}

// UnsafeExpression creates an error for a params expression containing
// non-literal syntax. Snippet is the offending source fragment.
func UnsafeExpression(snippet string) error {
	return &Error{
		Sentinel: ErrUnsafeExpression,
		Message:  fmt.Sprintf("params expression is not a pure literal: %s", snippet),
		Op:       "notebook.extract",
	}
}

// ParamsParse creates an error for a params block that neither the strict
// parser nor the fallback grammar could read.
func ParamsParse(snippet string, cause error) error {
	return &Error{
		Sentinel: ErrParamsParse,
		Message:  fmt.Sprintf("cannot parse params block %s: %v", snippet, cause),
		Op:       "notebook.extract",
		Cause:    cause,
	}
}
