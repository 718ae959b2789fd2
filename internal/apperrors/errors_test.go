package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"pattern not found", PatternNotFound("pattern-99"), ErrPatternNotFound},
		{"authentication", Authentication("ogc.deploy", 401), ErrAuthentication},
		{"deployment", Deployment("pattern-1", errors.New("boom")), ErrDeployment},
		{"execution", Execution("pattern-1", errors.New("boom")), ErrExecution},
		{"timeout", Timeout("pattern-1", "job-1"), ErrTimeout},
		{"interrupted", Interrupted("pattern-1"), ErrInterrupted},
		{"params not found", ParamsNotFound("pattern-1"), ErrParamsNotFound},
		{"unsafe expression", UnsafeExpression("compute_defaults()"), ErrUnsafeExpression},
		{"params parse", ParamsParse("{bad", errors.New("syntax")), ErrParamsParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
			}
			// Each error must classify as exactly one sentinel.
			for _, other := range tests {
				if other.sentinel == tt.sentinel {
					continue
				}
				if errors.Is(tt.err, other.sentinel) {
					t.Errorf("errors.Is(%v, %v) = true, want false", tt.err, other.sentinel)
				}
			}
		})
	}
}

func TestErrorCarriesPatternAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Deployment("pattern-3", cause)

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *Error")
	}
	if appErr.Pattern != "pattern-3" {
		t.Errorf("Pattern = %q, want %q", appErr.Pattern, "pattern-3")
	}
	if appErr.Cause != cause {
		t.Errorf("Cause = %v, want %v", appErr.Cause, cause)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("message %q should contain cause detail", err.Error())
	}
}

func TestErrorMessageIsHumanReadable(t *testing.T) {
	t.Parallel()

	err := Timeout("pattern-2", "job-42")
	if !strings.Contains(err.Error(), "job-42") {
		t.Errorf("message %q should name the job", err.Error())
	}
	if got := fmt.Sprintf("%v", err); got != err.Error() {
		t.Errorf("formatted error = %q, want %q", got, err.Error())
	}
}
