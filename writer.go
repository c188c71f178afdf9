package ptypes

import "bytes"

// writer accumulates serialized instances. It tracks the first error that
// occurs; after an error all subsequent writes become no-ops.
type writer struct {
	buf bytes.Buffer
	err error
}

func newWriter() *writer { return new(writer) }

// setError records the first non-nil error.
func (w *writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// WriteFrom appends the serialized bytes of i.
func (w *writer) WriteFrom(i *Instance) {
	if i == nil || w.err != nil {
		return
	}
	b, err := i.Serialize()
	w.setError(err)
	w.WriteBytes(b)
}

// WriteBytes appends a byte slice.
func (w *writer) WriteBytes(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

// Result returns the accumulated bytes and the first error.
func (w *writer) Result() ([]byte, error) {
	return w.buf.Bytes(), w.err
}
