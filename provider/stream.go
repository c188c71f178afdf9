package provider

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Stream is a provider over a plain io.Reader such as a pipe or stdin.
// It only supports forward seeks, simulated by reading and discarding data,
// and it is read-only.
type Stream struct {
	r   *bufio.Reader
	c   io.Closer
	off int64
	err error // first hard error encountered
}

var _ Provider = (*Stream)(nil)

// NewStream wraps r. If r is already buffered its buffer is reused.
func NewStream(r io.Reader) (*Stream, error) {
	if r == nil {
		return nil, ErrNilIO
	}
	s := &Stream{}
	if c, ok := r.(io.Closer); ok {
		s.c = c
	}
	if br, ok := r.(*bufio.Reader); ok {
		s.r = br
	} else {
		s.r = bufio.NewReader(r)
	}
	return s, nil
}

// SeekTo provides forward-only seeking.
func (s *Stream) SeekTo(offset int64) (int64, error) {
	prev := s.off
	if s.err != nil {
		return prev, s.err
	}
	if offset < s.off {
		return prev, fmt.Errorf("%w: cannot seek to %#x (current: %#x)", ErrUnsupportedNegativeSeek, offset, s.off)
	}
	skipped, err := Discard(s.r, offset-s.off)
	s.off += skipped
	if err != nil {
		if errors.Is(err, io.EOF) {
			return prev, &ShortReadError{Offset: offset, Err: err}
		}
		s.setError(err)
		return prev, err
	}
	return prev, nil
}

// Offset returns the cursor.
func (s *Stream) Offset() int64 { return s.off }

// Consume implements [Provider].
func (s *Stream) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	if s.err != nil {
		return nil, s.err
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.r, buf)
	off := s.off
	s.off += int64(got)
	if got < n {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		} else {
			s.setError(err)
		}
		return buf[:got], &ShortReadError{Offset: off, Want: n, Got: got, Err: err}
	}
	return buf, nil
}

// Store always fails: a stream is read-only.
func (s *Stream) Store(p []byte) (int, error) {
	return 0, &ShortWriteError{Offset: s.off, Want: len(p), Err: ErrReadOnly}
}

// Close closes the underlying reader if it implements io.Closer.
func (s *Stream) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// Err returns the first hard error encountered.
func (s *Stream) Err() error { return s.err }

func (s *Stream) setError(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}
