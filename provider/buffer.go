package provider

import "io"

// Buffer is an in-memory provider. Stores past the end grow the slice;
// reads past the end are short.
type Buffer struct {
	B []byte // backing slice
	N int64  // cursor
}

var (
	_ Provider      = (*Buffer)(nil)
	_ io.ReadWriter = (*Buffer)(nil)
	_ io.ByteReader = (*Buffer)(nil)
)

// NewBuffer creates a Buffer over b. The slice is used in place.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{B: b}
}

// SeekTo implements [Provider].
func (b *Buffer) SeekTo(offset int64) (int64, error) {
	if offset < 0 {
		return b.N, ErrInvalidSeek
	}
	prev := b.N
	b.N = offset
	return prev, nil
}

// Offset returns the cursor.
func (b *Buffer) Offset() int64 { return b.N }

// Consume implements [Provider]. The returned slice is a copy.
func (b *Buffer) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	out := make([]byte, n)
	got := 0
	if b.N < int64(len(b.B)) {
		got = copy(out, b.B[b.N:])
	}
	off := b.N
	b.N += int64(got)
	if got < n {
		return out[:got], &ShortReadError{Offset: off, Want: n, Got: got}
	}
	return out, nil
}

// Store implements [Provider], growing the backing slice as needed.
func (b *Buffer) Store(p []byte) (int, error) {
	end := b.N + int64(len(p))
	if end > int64(len(b.B)) {
		if end > int64(cap(b.B)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.B))))
			copy(grown, b.B)
			b.B = grown
		} else {
			b.B = b.B[:end]
		}
	}
	n := copy(b.B[b.N:], p)
	b.N += int64(n)
	return n, nil
}

// Read implements the [io.Reader] interface.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.N >= int64(len(b.B)) {
		return 0, io.EOF
	}
	n := copy(p, b.B[b.N:])
	b.N += int64(n)
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (b *Buffer) ReadByte() (byte, error) {
	if b.N >= int64(len(b.B)) {
		return 0, io.EOF
	}
	c := b.B[b.N]
	b.N++
	return c, nil
}

// Write implements the [io.Writer] interface.
func (b *Buffer) Write(p []byte) (int, error) { return b.Store(p) }

// Len returns the size of the backing slice.
func (b *Buffer) Len() int { return len(b.B) }

// Available returns the number of bytes after the cursor.
func (b *Buffer) Available() int {
	if n := int64(len(b.B)) - b.N; n > 0 {
		return int(n)
	}
	return 0
}

// Bytes returns the backing slice.
func (b *Buffer) Bytes() []byte { return b.B }
