package pipeline

import (
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures for routing and reporting.
type ErrorKind string

const (
	// ErrKindParse covers source read and decode failures.
	ErrKindParse ErrorKind = "parse"
	// ErrKindDrift marks enforced schema drift failures.
	ErrKindDrift ErrorKind = "drift"
	// ErrKindContract marks validation contract violations.
	ErrKindContract ErrorKind = "contract"
	// ErrKindOutput covers failures while writing results.
	ErrKindOutput ErrorKind = "output"
)

// FieldFailure is one per-column validation finding.
type FieldFailure struct {
	Column  string
	Failure string
}

func (f FieldFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Column, f.Failure)
}

// Error is the typed pipeline failure. Kind drives outcome routing, Step
// names the stage that failed, and Failures carries per-column detail for
// contract violations.
type Error struct {
	Kind     ErrorKind
	Step     string
	Message  string
	Failures []FieldFailure
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Kind, e.Step, e.Message)
	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = f.String()
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, "; "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// FailureDetail renders the per-column findings, one per line, for the
// quarantine error log.
func (e *Error) FailureDetail() string {
	if len(e.Failures) == 0 {
		return e.Message
	}
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

func newParseError(step, msg string, cause error) *Error {
	return &Error{Kind: ErrKindParse, Step: step, Message: msg, Cause: cause}
}

func newDriftError(missing, extra []string) *Error {
	return &Error{
		Kind:    ErrKindDrift,
		Step:    "drift",
		Message: fmt.Sprintf("Missing: %v | Extra: %v", missing, extra),
	}
}

func newContractError(msg string, failures []FieldFailure) *Error {
	return &Error{Kind: ErrKindContract, Step: "validate", Message: msg, Failures: failures}
}

func newOutputError(msg string, cause error) *Error {
	return &Error{Kind: ErrKindOutput, Step: "load", Message: msg, Cause: cause}
}
