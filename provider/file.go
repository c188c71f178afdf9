package provider

import (
	"errors"
	"io"
	"os"
)

// File is a provider over positional I/O, typically an *os.File holding a
// memory dump.
type File struct {
	r   io.ReaderAt
	w   io.WriterAt // nil when read-only
	c   io.Closer
	off int64
}

var _ Provider = (*File)(nil)

// NewFile wraps an open file for reading and writing.
func NewFile(f *os.File) *File {
	return &File{r: f, w: f, c: f}
}

// NewReaderAt wraps any io.ReaderAt. Stores fail with ErrReadOnly unless r
// also implements io.WriterAt.
func NewReaderAt(r io.ReaderAt) *File {
	if r == nil {
		panic("provider: NewReaderAt called with a nil io.ReaderAt")
	}
	f := &File{r: r}
	if w, ok := r.(io.WriterAt); ok {
		f.w = w
	}
	if c, ok := r.(io.Closer); ok {
		f.c = c
	}
	return f
}

// OpenFile opens path read-only or read-write.
func OpenFile(path string, writable bool) (*File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	p := NewFile(f)
	if !writable {
		p.w = nil
	}
	return p, nil
}

// SeekTo implements [Provider].
func (f *File) SeekTo(offset int64) (int64, error) {
	if offset < 0 {
		return f.off, ErrInvalidSeek
	}
	prev := f.off
	f.off = offset
	return prev, nil
}

// Offset returns the cursor.
func (f *File) Offset() int64 { return f.off }

// Consume implements [Provider].
func (f *File) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	buf := make([]byte, n)
	got, err := f.r.ReadAt(buf, f.off)
	off := f.off
	f.off += int64(got)
	if got < n {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return buf[:got], &ShortReadError{Offset: off, Want: n, Got: got, Err: err}
	}
	return buf, nil
}

// Store implements [Provider].
func (f *File) Store(p []byte) (int, error) {
	if f.w == nil {
		return 0, &ShortWriteError{Offset: f.off, Want: len(p), Err: ErrReadOnly}
	}
	got, err := f.w.WriteAt(p, f.off)
	off := f.off
	f.off += int64(got)
	if got < len(p) || err != nil {
		return got, &ShortWriteError{Offset: off, Want: len(p), Got: got, Err: err}
	}
	return got, nil
}

// Close closes the underlying file if it implements io.Closer.
func (f *File) Close() error {
	if f.c == nil {
		return nil
	}
	return f.c.Close()
}
