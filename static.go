package ptypes

import "sync"

// staticMemo is a size computed once per shape. Shapes are immutable once
// built, so it never goes stale, and it is collected with its shape.
type staticMemo struct {
	once sync.Once
	n    int
	ok   bool
}

type sizeMemo struct {
	bytes, bits staticMemo
}

var sizesMu sync.Mutex

func sizesOf(s Shape) *sizeMemo {
	c := s.base()
	sizesMu.Lock()
	defer sizesMu.Unlock()
	if c.sizes == nil {
		c.sizes = new(sizeMemo)
	}
	return c.sizes
}

// StaticSize returns the byte size of s when it does not depend on data,
// attributes or configuration.
func StaticSize(s Shape) (int, bool) {
	return sizesOf(s).bytes.get(s, staticSize)
}

// StaticBits is StaticSize for bit shapes, in bits.
func StaticBits(s Shape) (int, bool) {
	return sizesOf(s).bits.get(s, staticBits)
}

func (m *staticMemo) get(s Shape, measure func(Shape) (int, bool)) (int, bool) {
	m.once.Do(func() { m.n, m.ok = measure(s) })
	return m.n, m.ok
}

func staticSize(s Shape) (int, bool) {
	if s.base().blocksize != nil {
		return 0, false
	}
	switch s := s.(type) {
	case *Atom:
		return s.length, s.lengthFn == nil
	case *Struct:
		total := 0
		for _, f := range s.fields {
			n, ok := StaticSize(f.Shape)
			if !ok {
				return 0, false
			}
			total += n
		}
		return total, true
	case *Array:
		if s.policy != ArrayFixed || s.countFn != nil {
			return 0, false
		}
		n, ok := StaticSize(s.elem)
		return n * s.count, ok
	case *Union:
		if s.size > 0 {
			return s.size, true
		}
		m := 0
		for _, v := range s.views {
			n, ok := StaticSize(v.Shape)
			if !ok {
				return 0, false
			}
			m = max(m, n)
		}
		return m, true
	case *Partial:
		n, ok := StaticBits(s.payload)
		return ceilDiv(n, 8), ok
	case *Encoded:
		return StaticSize(s.raw)
	case *Pointer:
		return s.width, s.width > 0
	case *Bits, *BitStruct, *BitArray:
		n, ok := StaticBits(s)
		return ceilDiv(n, 8), ok
	}
	return 0, false
}

func staticBits(s Shape) (int, bool) {
	switch s := s.(type) {
	case *Bits:
		return s.width, s.widthFn == nil
	case *BitStruct:
		total := 0
		for _, f := range s.fields {
			n, ok := StaticBits(f.Shape)
			if !ok {
				return 0, false
			}
			total += n
		}
		return total, true
	case *BitArray:
		if s.countFn != nil {
			return 0, false
		}
		n, ok := StaticBits(s.elem)
		return n * s.count, ok
	}
	return 0, false
}
