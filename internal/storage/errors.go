package storage

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is matched by every NotImplementedError.
var ErrNotImplemented = errors.New("not implemented")

// NotImplementedError is returned for a write type with no configured backend,
// or for an operation a backend does not support.
type NotImplementedError struct {
	Kind WriteType
	Op   string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("storage: %s backend does not implement %s", e.Kind, e.Op)
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// BackendUnavailableError reports that the destination could not be reached or created.
type BackendUnavailableError struct {
	Kind     WriteType
	Location string
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("storage: %s backend unavailable for %s: %v", e.Kind, e.Location, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// ReservedColumnError reports a data column whose name a backend uses for its own bookkeeping.
type ReservedColumnError struct {
	Column string
}

func (e *ReservedColumnError) Error() string {
	return fmt.Sprintf("storage: column name %q is reserved", e.Column)
}

// InvalidPathError reports a prefix or path that would resolve outside the storage root.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("storage: path %q is outside the storage root", e.Path)
}
