package mount

import (
	"errors"
	"fmt"
)

// ErrDetached reports root resolution on a node outside any live tree.
// Callers placing overlays for such nodes should treat the anchor as
// gone rather than fall back to a guessed container.
var ErrDetached = errors.New("mount: node is not in a live tree")

// ErrorEvent is dispatched from the host element when a mount, refresh,
// or unmount fails. The event bubbles and is composed, and its Detail
// carries the *MountError, so page-level listeners observe fragment
// failures without reaching into any boundary.
const ErrorEvent = "umbra:error"

// ConfigurationError reports an invalid host configuration: a template
// that does not parse, or a mount selector that fails to compile or
// matches nothing in the template. Construction fails before the
// element is touched, so a host that returns one has no boundary and no
// controller.
type ConfigurationError struct {
	Tag      string
	Selector string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := "mount: invalid configuration"
	if e.Tag != "" {
		msg += " for <" + e.Tag + ">"
	}
	msg += ": " + e.Message
	if e.Selector != "" {
		msg += fmt.Sprintf(" (selector %q)", e.Selector)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// MountError reports a failed mount, refresh, or unmount. It reaches
// the document's error sink rather than a return value when the failing
// work runs inside a lifecycle reaction.
type MountError struct {
	Tag   string
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *MountError) Error() string {
	return fmt.Sprintf("mount: %s <%s>: %v", e.Op, e.Tag, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *MountError) Unwrap() error { return e.Cause }
