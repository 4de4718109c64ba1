// Package dberrors provides a structured error type for the external
// collaborator boundary (disk I/O, configuration). The core's hot-path
// operations keep a plain boolean/nil return contract; DBError exists
// for the callers one layer out that need more than a boolean to decide
// what to do next.
package dberrors

import (
	"fmt"
	"runtime"
	"strings"
)

// Category classifies an error by the handling strategy it implies.
type Category int

const (
	// CategoryUser covers invalid caller input (bad page id, nil transaction).
	CategoryUser Category = iota
	// CategoryTransient covers errors that may succeed on retry (lock timeout).
	CategoryTransient
	// CategorySystem covers errors needing operator attention (disk full, bad path).
	CategorySystem
	// CategoryData covers corruption or integrity failures (short read, bad checksum).
	CategoryData
	// CategoryConcurrency covers lock conflicts and deadlock/wound-wait aborts.
	CategoryConcurrency
)

// DBError is a structured error carrying enough context to route and log
// a failure without string-matching Error().
type DBError struct {
	Code      string
	Category  Category
	Message   string
	Detail    string
	Operation string
	Component string
	Cause     error
	Stack     []uintptr
}

// New creates a DBError with no underlying cause.
func New(category Category, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Wrap attaches operation/component context to err. If err is already a
// DBError, the existing fields are filled in only where empty; otherwise a
// new CategorySystem DBError is built around it.
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	if dbErr, ok := err.(*DBError); ok {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  CategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error formats as "[CODE] Message: Detail (operation: Op, component: Comp) caused by: cause".
func (e *DBError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap enables errors.Is/errors.As traversal to the underlying cause.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack renders the captured call stack for debugging.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)
	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("  %s\n    %s:%d\n", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}
	return b.String()
}
