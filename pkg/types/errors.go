package types

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotResolved means no source document backs a synthetic path.
	ErrPathNotResolved = errors.New("path not resolved")
	// ErrReadOnly is matched by every ReadOnlyViolationError.
	ErrReadOnly = errors.New("read-only filesystem")
	// ErrNotADirectory is matched by every NotADirectoryError.
	ErrNotADirectory = errors.New("not a directory")
)

// UnsupportedFormatError reports a source document whose extension has no loader.
type UnsupportedFormatError struct {
	Source    string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported email format %q: %s", e.Extension, e.Source)
}

// FormatError reports a source document that a loader could not parse.
type FormatError struct {
	Source string
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to parse %s document %s: %v", e.Format, e.Source, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Reasons an attachment is left out of a projection.
const (
	ReasonMissingName   = "missing name"
	ReasonDuplicateName = "duplicate name"
	ReasonInvalidName   = "name is not a single path element"
	ReasonReservedName  = "name collides with the index document"
)

// AttachmentNamingViolation describes an attachment that was dropped while
// building an Email. It is reported, the document still loads.
type AttachmentNamingViolation struct {
	Index  int
	Name   string
	Reason string
}

func (e *AttachmentNamingViolation) Error() string {
	return fmt.Sprintf("attachment %d (%q) skipped: %s", e.Index, e.Name, e.Reason)
}

// ReadOnlyViolationError is returned by every mutating operation.
type ReadOnlyViolationError struct {
	Op  string
	URI string
}

func (e *ReadOnlyViolationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, ErrReadOnly)
}

func (e *ReadOnlyViolationError) Is(target error) bool {
	return target == ErrReadOnly
}

// NotADirectoryError is returned when listing anything but a projection root.
type NotADirectoryError struct {
	URI string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.URI, ErrNotADirectory)
}

func (e *NotADirectoryError) Is(target error) bool {
	return target == ErrNotADirectory
}
