// Package errors implements the taxonomy of failure modes the extraction
// pipeline can raise. Every component-level error is wrapped in a CodeError
// so callers can branch on Code without string matching, while Unwrap keeps
// the underlying cause in the chain for errors.Is/errors.As.
package errors

import "fmt"

// Code is a stable identifier for a class of failure.
type Code string

const (
	// IoFailure covers file read/write errors.
	IoFailure Code = "IO_FAILURE"
	// ParseFailure covers tree-sitter or manifest parse errors; always
	// recoverable, never aborts a run.
	ParseFailure Code = "PARSE_FAILURE"
	// InferenceFailure covers a non-2xx LLM HTTP response.
	InferenceFailure Code = "INFERENCE_FAILURE"
	// InferenceTimeout covers an LLM call exceeding its deadline.
	InferenceTimeout Code = "INFERENCE_TIMEOUT"
	// MalformedResponse covers an LLM response with no usable text field.
	MalformedResponse Code = "MALFORMED_RESPONSE"
	// BudgetExceeded covers a prompt that cannot be built under its token
	// cap even after reduction; non-fatal, the caller proceeds with a
	// truncated prompt.
	BudgetExceeded Code = "BUDGET_EXCEEDED"
	// InvalidState covers an FSM event delivered in a state that does not
	// accept it.
	InvalidState Code = "INVALID_STATE"
)

// CodeError pairs a stable Code with a human message and an optional cause.
type CodeError struct {
	Code    Code
	Message string
	Status  int   // HTTP status, when Code is InferenceFailure
	cause   error // underlying error, not surfaced by Error()
}

// Error implements the error interface.
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New creates a CodeError with no underlying cause.
func New(code Code, message string) *CodeError {
	return &CodeError{Code: code, Message: message}
}

// Wrap creates a CodeError that preserves cause in its chain.
func Wrap(code Code, message string, cause error) *CodeError {
	return &CodeError{Code: code, Message: message, cause: cause}
}

// NewInferenceFailure builds an InferenceFailure with the HTTP status and
// response body captured by the LLM gateway.
func NewInferenceFailure(status int, body string) *CodeError {
	return &CodeError{
		Code:    InferenceFailure,
		Message: fmt.Sprintf("LLM backend returned status %d", status),
		Status:  status,
		cause:   fmt.Errorf("response body: %s", body),
	}
}

// IsTerminal reports whether an error of this code should halt the current
// run (crate- or project-level LLM failures) as opposed to being isolated
// to a single file.
func IsTerminal(code Code) bool {
	switch code {
	case InferenceFailure, InferenceTimeout, MalformedResponse:
		return true
	default:
		return false
	}
}
