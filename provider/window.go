package provider

// Window rebases another provider: offset o maps to o-Base in P, and
// nothing at or beyond Base+Limit can be read or written. A negative Limit
// removes the upper bound.
//
// It lets a raw dump taken at some virtual address be addressed with the
// original addresses.
type Window struct {
	P     Provider
	Base  int64
	Limit int64
	off   int64
}

var _ Provider = (*Window)(nil)

// NewWindow returns a Window over p.
func NewWindow(p Provider, base, limit int64) *Window {
	if p == nil {
		panic("provider: NewWindow called with a nil Provider")
	}
	return &Window{P: p, Base: base, Limit: limit, off: base}
}

// SeekTo implements [Provider].
func (w *Window) SeekTo(offset int64) (int64, error) {
	if offset < w.Base {
		return w.off, ErrInvalidSeek
	}
	if _, err := w.P.SeekTo(offset - w.Base); err != nil {
		return w.off, err
	}
	prev := w.off
	w.off = offset
	return prev, nil
}

// Offset returns the cursor.
func (w *Window) Offset() int64 { return w.off }

func (w *Window) remaining(n int) int {
	if w.Limit < 0 {
		return n
	}
	left := w.Base + w.Limit - w.off
	if left < 0 {
		return 0
	}
	return int(min(int64(n), left))
}

// Consume implements [Provider].
func (w *Window) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	want := w.remaining(n)
	buf, err := w.P.Consume(want)
	off := w.off
	w.off += int64(len(buf))
	if err != nil {
		return buf, err
	}
	if want < n {
		return buf, &ShortReadError{Offset: off, Want: n, Got: len(buf)}
	}
	return buf, nil
}

// Store implements [Provider].
func (w *Window) Store(p []byte) (int, error) {
	want := w.remaining(len(p))
	got, err := w.P.Store(p[:want])
	off := w.off
	w.off += int64(got)
	if err != nil {
		return got, err
	}
	if want < len(p) {
		return got, &ShortWriteError{Offset: off, Want: len(p), Got: got}
	}
	return got, nil
}
