package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrShortRead indicates that a provider returned fewer bytes than requested.
	ErrShortRead = errors.New("provider: short read")

	// ErrShortWrite indicates that a provider stored fewer bytes than given.
	ErrShortWrite = errors.New("provider: short write")

	// ErrNilIO indicates that a constructor was called with a nil reader/writer.
	ErrNilIO = errors.New("provider: called with a nil io.Reader/io.Writer")

	// ErrInvalidSeek indicates a seek was attempted to an invalid position.
	ErrInvalidSeek = errors.New("provider: seek to an invalid position")

	// ErrUnsupportedNegativeSeek indicates a backward seek was attempted on a forward-only provider.
	ErrUnsupportedNegativeSeek = errors.New("provider: unsupported negative offset for forward-only provider")

	// ErrReadOnly indicates a Store on a provider without a writable backend.
	ErrReadOnly = errors.New("provider: read-only")

	// ErrUnsupported indicates that the provider is not available on this platform.
	ErrUnsupported = errors.New("provider: unsupported on this platform")

	// ErrInvalidCount indicates a negative byte count.
	ErrInvalidCount = errors.New("provider: negative byte count")
)

// ShortReadError reports a Consume that could not be fully satisfied.
type ShortReadError struct {
	Offset int64
	Want   int
	Got    int
	Err    error // underlying cause, may be nil
}

func (e *ShortReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: wanted %d bytes at %#x, got %d: %v", ErrShortRead, e.Want, e.Offset, e.Got, e.Err)
	}
	return fmt.Sprintf("%v: wanted %d bytes at %#x, got %d", ErrShortRead, e.Want, e.Offset, e.Got)
}

func (e *ShortReadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrShortRead}
	}
	return []error{ErrShortRead, e.Err}
}

// ShortWriteError reports a Store that could not be fully satisfied.
type ShortWriteError struct {
	Offset int64
	Want   int
	Got    int
	Err    error
}

func (e *ShortWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: wanted %d bytes at %#x, wrote %d: %v", ErrShortWrite, e.Want, e.Offset, e.Got, e.Err)
	}
	return fmt.Sprintf("%v: wanted %d bytes at %#x, wrote %d", ErrShortWrite, e.Want, e.Offset, e.Got)
}

func (e *ShortWriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrShortWrite}
	}
	return []error{ErrShortWrite, e.Err}
}
