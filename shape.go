package ptypes

import (
	"encoding/binary"
	"fmt"
	"maps"
)

// Kind classifies a Shape.
type Kind int

const (
	KindAtomic Kind = iota
	KindContainer
	KindBitAtomic
	KindBitContainer
	KindPointer
	KindEncoded
	KindDeferred
)

var kindNames = [...]string{"atomic", "container", "bit-atomic", "bit-container", "pointer", "encoded", "deferred"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Shape is an immutable description of a binary layout. The set of shapes
// is closed: Atom, Struct, Array, Union, Bits, BitStruct, BitArray, Partial,
// Encoded, Pointer and Deferred.
type Shape interface {
	Kind() Kind
	Name() string
	base() *common
	clone() Shape
}

// Statically assert that every shape implements Shape.
var (
	_ Shape = (*Atom)(nil)
	_ Shape = (*Struct)(nil)
	_ Shape = (*Array)(nil)
	_ Shape = (*Union)(nil)
	_ Shape = (*Bits)(nil)
	_ Shape = (*BitStruct)(nil)
	_ Shape = (*BitArray)(nil)
	_ Shape = (*Partial)(nil)
	_ Shape = (*Encoded)(nil)
	_ Shape = (*Pointer)(nil)
	_ Shape = (*Deferred)(nil)
)

// SizeFunc computes a byte or bit count from the instance being built.
type SizeFunc func(*Instance) (int, error)

// SummaryFunc renders a one-line description of a loaded instance.
type SummaryFunc func(*Instance) string

type common struct {
	name      string
	meta      map[string]any
	recurse   map[string]any
	blocksize SizeFunc
	summary   SummaryFunc
	sizes     *sizeMemo
}

func (c *common) Name() string  { return c.name }
func (c *common) base() *common { return c }

func (c common) copy() common {
	c.meta = maps.Clone(c.meta)
	c.recurse = maps.Clone(c.recurse)
	c.sizes = nil
	return c
}

// ShapeMeta returns metadata attached to s with Meta.
func ShapeMeta(s Shape, key string) (any, bool) {
	v, ok := s.base().meta[key]
	return v, ok
}

// Override adjusts a copy of a shape. See Clone.
type Override func(Shape)

// Clone returns a copy of s with the overrides applied. The original is
// never modified.
func Clone(s Shape, overrides ...Override) Shape {
	c := s.clone()
	for _, o := range overrides {
		o(c)
	}
	return c
}

// Named sets the type name.
func Named(name string) Override {
	return func(s Shape) { s.base().name = name }
}

// Meta attaches a metadata value.
func Meta(key string, value any) Override {
	return func(s Shape) {
		b := s.base()
		if b.meta == nil {
			b.meta = map[string]any{}
		}
		b.meta[key] = value
	}
}

// Recurse attaches an attribute that every instance of the shape, and every
// descendant of those instances, can read with Attr.
func Recurse(key string, value any) Override {
	return func(s Shape) {
		b := s.base()
		if b.recurse == nil {
			b.recurse = map[string]any{}
		}
		b.recurse[key] = value
	}
}

// Blocksized replaces the shape's size rule. On arrays it selects the
// block-bounded policy.
func Blocksized(fn SizeFunc) Override {
	return func(s Shape) {
		s.base().blocksize = fn
		if a, ok := s.(*Array); ok {
			a.policy = ArrayBlock
		}
	}
}

// Summarized replaces the one-line rendering of instances.
func Summarized(fn SummaryFunc) Override {
	return func(s Shape) { s.base().summary = fn }
}

// Length sets the byte length of an atom, the element count of an array,
// the bit width of a bit atom, or the byte width of a pointer.
func Length(n int) Override {
	return func(s Shape) {
		switch s := s.(type) {
		case *Atom:
			s.length, s.lengthFn = n, nil
		case *Array:
			s.count, s.countFn, s.policy = n, nil, ArrayFixed
		case *BitArray:
			s.count, s.countFn = n, nil
		case *Bits:
			s.width, s.widthFn = n, nil
		case *Pointer:
			s.width = n
		}
	}
}

// Order sets the byte order of atoms and pointers.
func Order(order binary.ByteOrder) Override {
	return func(s Shape) {
		switch s := s.(type) {
		case *Atom:
			s.order = order
		case *Pointer:
			s.order = order
		}
	}
}

// Deferred is a shape chosen while decoding. Fn receives the instance that
// owns the slot being filled: the structure for a field, the array for an
// element, the pointer for its target.
type Deferred struct {
	common
	Fn func(owner *Instance) (Shape, error)
}

// Defer wraps fn as a Shape.
func Defer(fn func(owner *Instance) (Shape, error)) *Deferred {
	return &Deferred{common: common{name: "deferred"}, Fn: fn}
}

func (d *Deferred) Kind() Kind { return KindDeferred }
func (d *Deferred) clone() Shape {
	c := *d
	c.common = d.common.copy()
	return &c
}

// Resolve evaluates deferred shapes against owner until a concrete shape is
// reached.
func Resolve(s Shape, owner *Instance) (Shape, error) {
	for depth := 0; ; depth++ {
		d, ok := s.(*Deferred)
		if !ok {
			if s == nil {
				return nil, &TypeMismatchError{Path: owner.Path(), Want: "shape", Got: s}
			}
			return s, nil
		}
		if depth > 64 {
			return nil, &TypeMismatchError{Path: owner.Path(), Want: "concrete shape", Got: s}
		}
		next, err := d.Fn(owner)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, &TypeMismatchError{Path: owner.Path(), Want: "shape", Got: next}
		}
		s = next
	}
}

// isBitShape reports whether s lives in the bit domain.
func isBitShape(s Shape) bool {
	k := s.Kind()
	return k == KindBitAtomic || k == KindBitContainer
}

// byteShape wraps bit shapes placed in a byte context in a Partial.
func byteShape(s Shape, order BitOrder) Shape {
	if isBitShape(s) {
		return &Partial{common: common{name: s.Name()}, payload: s, order: order}
	}
	return s
}
