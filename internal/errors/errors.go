// Package errors collects fragment render failures for the composition
// server and turns them into a development error overlay.
package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/umbralabs/umbra/dom"
	"github.com/umbralabs/umbra/mount"
)

// RenderError represents one failed fragment operation
type RenderError struct {
	Fragment  string
	Op        string
	Message   string
	Severity  Severity
	Timestamp time.Time
}

// Severity represents the severity of an error
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (re *RenderError) Error() string {
	if re.Fragment == "" {
		return fmt.Sprintf("%s: %s: %s", re.Severity, re.Op, re.Message)
	}
	return fmt.Sprintf("%s: %s <%s>: %s", re.Severity, re.Op, re.Fragment, re.Message)
}

// Collector collects render errors across requests. It is safe for
// concurrent use; documents report from request goroutines while the
// overlay reads from others.
type Collector struct {
	mu   sync.RWMutex
	errs []RenderError
}

// NewCollector creates a new error collector
func NewCollector() *Collector {
	return &Collector{errs: make([]RenderError, 0)}
}

// Add adds a render error to the collector, stamping it with the
// current time.
func (c *Collector) Add(err RenderError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err.Timestamp = time.Now()
	c.errs = append(c.errs, err)
}

// Collect adapts the collector to the error handler signature documents
// take. Mount and tree errors are classified into render errors; other
// errors are kept with their message.
func (c *Collector) Collect(err error) {
	if err == nil {
		return
	}
	c.Add(Classify(err))
}

// Classify maps an error from the document error sink to a RenderError.
func Classify(err error) RenderError {
	var me *mount.MountError
	if stderrors.As(err, &me) {
		return RenderError{Fragment: me.Tag, Op: me.Op, Message: err.Error(), Severity: SeverityError}
	}
	var ce *mount.ConfigurationError
	if stderrors.As(err, &ce) {
		return RenderError{Fragment: ce.Tag, Op: "configure", Message: err.Error(), Severity: SeverityError}
	}
	var de *dom.Error
	if stderrors.As(err, &de) {
		return RenderError{Op: de.Op, Message: err.Error(), Severity: SeverityError}
	}
	return RenderError{Op: "render", Message: err.Error(), Severity: SeverityError}
}

// Errors returns a copy of all collected errors.
func (c *Collector) Errors() []RenderError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]RenderError, len(c.errs))
	copy(result, c.errs)
	return result
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.errs) > 0
}

// Merge appends every error from src, preserving timestamps. Merging
// a collector into itself is a no-op.
func (c *Collector) Merge(src *Collector) {
	if src == nil || src == c {
		return
	}
	entries := src.Errors()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, entries...)
}

// Clear clears all errors
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = c.errs[:0]
}

// ByFragment returns errors for a specific fragment tag.
func (c *Collector) ByFragment(fragment string) []RenderError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []RenderError
	for _, e := range c.errs {
		if e.Fragment == fragment {
			out = append(out, e)
		}
	}
	return out
}
