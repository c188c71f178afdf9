package provider

import (
	"errors"
	"io"
)

const bufferSize = 4096

var discard [bufferSize]byte

// Discard reads and drops n bytes from r.
func Discard(r io.Reader, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrInvalidCount
	}
	if n <= bufferSize {
		skip, err := io.ReadFull(r, discard[:n])
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return int64(skip), err
	}
	return io.CopyN(io.Discard, r, n)
}

type byteReader struct {
	p Provider
}

// ByteReader adapts a provider, positioned at its cursor, to io.ByteReader.
// A short read is reported as io.EOF.
func ByteReader(p Provider) io.ByteReader {
	if br, ok := p.(io.ByteReader); ok {
		return br
	}
	return &byteReader{p: p}
}

func (r *byteReader) ReadByte() (byte, error) {
	b, err := r.p.Consume(1)
	if err != nil {
		if errors.Is(err, ErrShortRead) {
			return 0, io.EOF
		}
		return 0, err
	}
	return b[0], nil
}
