package provider

// Backing is a live object whose serialized bytes a Proxy exposes.
type Backing interface {
	// Serialize returns the object's current bytes.
	Serialize() ([]byte, error)

	// WriteBack replaces the bytes at offset (relative to the object)
	// with p and updates the object accordingly.
	WriteBack(offset int64, p []byte) error
}

// Proxy is a provider backed by another decoded object. Offsets are relative
// to the start of that object. The proxy holds the backing object for as long
// as the proxy itself is reachable.
type Proxy struct {
	b   Backing
	off int64
}

var _ Provider = (*Proxy)(nil)

// NewProxy returns a proxy over b.
func NewProxy(b Backing) *Proxy {
	if b == nil {
		panic("provider: NewProxy called with a nil Backing")
	}
	return &Proxy{b: b}
}

// Backing returns the object behind the proxy.
func (p *Proxy) Backing() Backing { return p.b }

// SeekTo implements [Provider].
func (p *Proxy) SeekTo(offset int64) (int64, error) {
	if offset < 0 {
		return p.off, ErrInvalidSeek
	}
	prev := p.off
	p.off = offset
	return prev, nil
}

// Offset returns the cursor.
func (p *Proxy) Offset() int64 { return p.off }

// Consume implements [Provider].
func (p *Proxy) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	data, err := p.b.Serialize()
	if err != nil {
		return nil, &ShortReadError{Offset: p.off, Want: n, Err: err}
	}
	out := make([]byte, n)
	got := 0
	if p.off < int64(len(data)) {
		got = copy(out, data[p.off:])
	}
	off := p.off
	p.off += int64(got)
	if got < n {
		return out[:got], &ShortReadError{Offset: off, Want: n, Got: got}
	}
	return out, nil
}

// Store implements [Provider] by writing through to the backing object.
func (p *Proxy) Store(b []byte) (int, error) {
	if err := p.b.WriteBack(p.off, b); err != nil {
		return 0, &ShortWriteError{Offset: p.off, Want: len(b), Err: err}
	}
	p.off += int64(len(b))
	return len(b), nil
}
