package loader

import (
	"errors"
	"fmt"
)

// Kind classifies loader failures. A Kind is itself an error so it can be
// used as a sentinel with errors.Is.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindValidation
	KindNotFound
	KindNotLoaded
	KindImport
	KindReentrancy
)

// Sentinels for errors.Is.
var (
	ErrConfiguration error = KindConfiguration
	ErrValidation    error = KindValidation
	ErrNotFound      error = KindNotFound
	ErrNotLoaded     error = KindNotLoaded
	ErrImport        error = KindImport
	ErrReentrancy    error = KindReentrancy
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	case KindNotLoaded:
		return "NotLoadedError"
	case KindImport:
		return "ImportError"
	case KindReentrancy:
		return "ReentrancyError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error implements the error interface so a Kind can act as a sentinel.
func (k Kind) Error() string {
	return k.String()
}

// Error is the error type returned by every Loader operation.
type Error struct {
	Kind   Kind
	Module string
	Path   string
	Err    error
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: module %q: %v", e.Kind, e.Module, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of a loader error, or 0 for anything else.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

func newError(kind Kind, module, path string, err error) *Error {
	return &Error{Kind: kind, Module: module, Path: path, Err: err}
}
