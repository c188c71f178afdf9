package ptypes

import (
	"errors"
	"fmt"

	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/provider"
)

var (
	// ErrShortRead indicates that a provider could not satisfy a full read.
	ErrShortRead = provider.ErrShortRead

	// ErrShortWrite indicates that a provider could not satisfy a full write.
	ErrShortWrite = provider.ErrShortWrite

	// ErrRange indicates a bit or byte position out of bounds.
	ErrRange = bitmap.ErrRange

	// ErrNotFound indicates a missing registry key, field or element.
	ErrNotFound = errors.New("ptypes: not found")

	// ErrTypeMismatch indicates that a shape function did not produce a
	// usable shape, or that an operation does not apply to a shape.
	ErrTypeMismatch = errors.New("ptypes: type mismatch")

	// ErrChecksum indicates a decoded value whose checksum does not match.
	ErrChecksum = errors.New("ptypes: checksum mismatch")

	// ErrNoSource indicates an I/O operation on an instance without a provider.
	ErrNoSource = errors.New("ptypes: instance has no source")

	// ErrTrailingData is returned by Unmarshal when non-zero bytes are found
	// after the end of the decoded structure.
	ErrTrailingData = errors.New("ptypes: non-zero trailing data found after decoding")

	// ErrUninitialized indicates a read of a value that was never loaded or allocated.
	ErrUninitialized = errors.New("ptypes: instance is not initialized")
)

// LoadError wraps a failure to load an instance with its location.
type LoadError struct {
	Path   string
	Shape  string
	Offset int64
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("ptypes: load %s (%s) at %#x: %v", e.Path, e.Shape, e.Offset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CommitError wraps a failure to store an instance with its location.
type CommitError struct {
	Path   string
	Shape  string
	Offset int64
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("ptypes: commit %s (%s) at %#x: %v", e.Path, e.Shape, e.Offset, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// TypeMismatchError reports a shape function returning something unusable.
type TypeMismatchError struct {
	Path string
	Want string
	Got  any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s: want %s, got %T", ErrTypeMismatch, e.Path, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// ChecksumError records a checksum mismatch found while decoding. It is
// attached to the instance as an issue rather than returned.
type ChecksumError struct {
	Path     string
	Offset   int64
	Stored   uint64
	Computed uint64
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: %s at %#x: stored %#x, computed %#x", ErrChecksum, e.Path, e.Offset, e.Stored, e.Computed)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksum }

// OverflowError records a container whose children extend past its
// declared blocksize. It is attached as an issue, never returned.
type OverflowError struct {
	Path      string
	Size      int
	Blocksize int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("ptypes: %s: children span %d bytes, past blocksize %d", e.Path, e.Size, e.Blocksize)
}

// DuplicateFieldError records a renamed duplicate structure field.
type DuplicateFieldError struct {
	Path    string
	Name    string
	Renamed string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("ptypes: %s: duplicate field %q renamed to %q", e.Path, e.Name, e.Renamed)
}
