package ptypes

import (
	"fmt"
	"io"

	"github.com/oy3o/ptypes/provider"
)

// Unmarshal decodes data as s. It adds a check for unexpected trailing
// data: bytes past the end of the decoded instance must be zero.
func Unmarshal(s Shape, data []byte, opts ...Option) (*Instance, error) {
	i := New(s, append([]Option{WithSource(provider.NewBuffer(data))}, opts...)...)
	if err := i.Load(); err != nil {
		return i, err
	}
	if end := i.offset + int64(i.Size()); end >= 0 && end < int64(len(data)) {
		if err := CheckTrailingNotZeros(data[end:]); err != nil {
			return i, err
		}
	}
	return i, nil
}

// Marshal serializes i and verifies that it holds its whole blocksize.
func Marshal(i *Instance) ([]byte, error) {
	b, err := i.Serialize()
	if err != nil {
		return nil, err
	}
	expected, err := i.Blocksize()
	if err != nil {
		return nil, err
	}
	if len(b) < expected {
		return nil, fmt.Errorf("%w: %s: expected at least %d bytes, but have %d", ErrUninitialized, i.Path(), expected, len(b))
	}
	return b, nil
}

// MarshalTo serializes i into p.
func MarshalTo(i *Instance, p []byte) (int, error) {
	b, err := Marshal(i)
	if err != nil {
		return 0, err
	}
	if len(p) < len(b) {
		return 0, io.ErrShortBuffer
	}
	return copy(p, b), nil
}

// WriteTo streams the serialized instance to w.
func WriteTo(i *Instance, w io.Writer) (int64, error) {
	b, err := Marshal(i)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n < len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}
