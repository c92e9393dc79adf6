package session

import (
	"errors"
	"fmt"
)

// Kind classifies a DataAccessError.
type Kind int

const (
	// KindUsage marks caller mistakes: writes against a manual-flush
	// session, unknown filter or query names, nil callbacks. These fail
	// before the store is touched.
	KindUsage Kind = iota
	// KindResource marks failures originating in the underlying store or
	// driver, surfaced through the unified hierarchy so callers never
	// depend on driver error types.
	KindResource
)

func (k Kind) String() string {
	if k == KindUsage {
		return "usage"
	}
	return "resource"
}

// DataAccessError is the unified error the template and session
// implementations surface for anything that is not plain application logic.
type DataAccessError struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *DataAccessError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.msg)
}

func (e *DataAccessError) Unwrap() error { return e.cause }

// NewUsageError builds a usage-kind error.
func NewUsageError(format string, args ...any) *DataAccessError {
	return &DataAccessError{Kind: KindUsage, msg: fmt.Sprintf(format, args...)}
}

// WrapResource wraps a store or driver failure into the unified hierarchy.
// It returns nil for a nil cause and leaves errors that already carry a
// DataAccessError untouched.
func WrapResource(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	if _, ok := AsDataAccess(cause); ok {
		return cause
	}
	return &DataAccessError{Kind: KindResource, msg: fmt.Sprintf(format, args...), cause: cause}
}

// AsDataAccess extracts a DataAccessError from err's chain.
func AsDataAccess(err error) (*DataAccessError, bool) {
	var dae *DataAccessError
	ok := errors.As(err, &dae)
	return dae, ok
}

// IsUsage reports whether err is a usage-kind DataAccessError.
func IsUsage(err error) bool {
	dae, ok := AsDataAccess(err)
	return ok && dae.Kind == KindUsage
}

// IsResource reports whether err is a resource-kind DataAccessError.
func IsResource(err error) bool {
	dae, ok := AsDataAccess(err)
	return ok && dae.Kind == KindResource
}

// ErrorTranslator maps a raw store error to the unified hierarchy. It
// returns nil when the error is not a resource-layer failure, in which case
// the error propagates unchanged as application logic.
type ErrorTranslator func(err error) error
