package dom

import (
	"errors"
	"fmt"
)

// ErrorCode classifies dom errors for programmatic handling.
type ErrorCode string

const (
	// ErrCodeHierarchy marks tree mutations that would violate the
	// containment rules.
	ErrCodeHierarchy ErrorCode = "HIERARCHY"
	// ErrCodeBoundary marks isolation boundary violations, such as
	// attaching a second boundary to a host.
	ErrCodeBoundary ErrorCode = "BOUNDARY"
	// ErrCodeSelector marks selector expressions that fail to parse.
	ErrCodeSelector ErrorCode = "SELECTOR"
	// ErrCodeRegistry marks invalid custom element registrations and
	// controller bindings.
	ErrCodeRegistry ErrorCode = "REGISTRY"
	// ErrCodeParse marks markup that cannot be parsed.
	ErrCodeParse ErrorCode = "PARSE"
	// ErrCodeResource marks invalid shared resource installations.
	ErrCodeResource ErrorCode = "RESOURCE"
)

// Error is the structured error for tree, boundary, registry, and
// selector operations. Code is stable and machine-readable; Op records
// the operation that failed and Kind the node kind involved, when one
// was.
type Error struct {
	Code    ErrorCode
	Op      string
	Kind    NodeKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("dom: %s: %s", e.Op, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause attaches a cause and returns the error for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Is matches another dom Error by code, and by op when the target
// specifies one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Op == "" || t.Op == e.Op)
}

// NewHierarchyError builds a containment rule violation error.
func NewHierarchyError(msg string, kind NodeKind, op string) *Error {
	return &Error{Code: ErrCodeHierarchy, Op: op, Kind: kind, Message: msg}
}

// NewBoundaryError builds an isolation boundary violation error.
func NewBoundaryError(msg string, kind NodeKind, op string) *Error {
	return &Error{Code: ErrCodeBoundary, Op: op, Kind: kind, Message: msg}
}

// NewSelectorError builds a selector parse error for the given
// expression.
func NewSelectorError(expr, msg string) *Error {
	return &Error{Code: ErrCodeSelector, Op: "selector", Message: fmt.Sprintf("%s in %q", msg, expr)}
}

// NewRegistryError builds a registration error for the given tag name.
func NewRegistryError(name, msg string) *Error {
	return &Error{Code: ErrCodeRegistry, Op: "define", Message: fmt.Sprintf("%s: %s", name, msg)}
}

// NewParseError wraps a markup parsing failure.
func NewParseError(msg string, cause error) *Error {
	return &Error{Code: ErrCodeParse, Op: "parse", Message: msg, Cause: cause}
}

// NewResourceError builds a shared resource installation error.
func NewResourceError(msg string) *Error {
	return &Error{Code: ErrCodeResource, Op: "ensure-resource", Message: msg}
}

// IsCode reports whether err, or any error it wraps, is a dom Error
// carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
