package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeUnknownFunction   = "UNKNOWN_FUNCTION"
	ErrCodeUnknownTargetType = "UNKNOWN_TARGET_TYPE"
	ErrCodeUnknownSourceType = "UNKNOWN_SOURCE_TYPE"
	ErrCodeUnexpectedType    = "UNEXPECTED_TYPE"
	ErrCodeLookupNotFound    = "LOOKUP_NOT_FOUND"
	ErrCodeNodeRequired      = "NODE_REQUIRED"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeEvaluation        = "EVALUATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeStore             = "STORE_ERROR"
)

// ExprError is the structured error type for all formexpr operations.
// Evaluation-time failures carry the expression path and the identifier of
// the component the expression is attached to, so callers can surface
// actionable diagnostics.
type ExprError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Path        string         `json:"path,omitempty"`
	ComponentID string         `json:"component_id,omitempty"`
	Cause       error          `json:"-"`
}

func (e *ExprError) Error() string {
	switch {
	case e.Path != "" && e.ComponentID != "":
		return fmt.Sprintf("[%s] %s at %s in component %s", e.Code, e.Message, e.Path, e.ComponentID)
	case e.Path != "":
		return fmt.Sprintf("[%s] %s at %s", e.Code, e.Message, e.Path)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func (e *ExprError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ExprError.
func NewError(code, message string) *ExprError {
	return &ExprError{Code: code, Message: message}
}

// NewErrorf creates a new ExprError with a formatted message.
func NewErrorf(code, format string, args ...any) *ExprError {
	return &ExprError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches the expression path to the error.
func (e *ExprError) WithPath(path string) *ExprError {
	e.Path = path
	return e
}

// WithComponent attaches a component ID to the error.
func (e *ExprError) WithComponent(id string) *ExprError {
	e.ComponentID = id
	return e
}

// WithCause attaches an underlying cause.
func (e *ExprError) WithCause(err error) *ExprError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *ExprError) WithDetails(details map[string]any) *ExprError {
	e.Details = details
	return e
}
