package ptypes

import (
	"errors"
	"fmt"
	"strconv"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/provider"
)

// Bits is a run of bits, optionally signed.
type Bits struct {
	common
	width   int
	widthFn SizeFunc
	signed  bool
}

func (b *Bits) Kind() Kind { return KindBitAtomic }

func (b *Bits) clone() Shape {
	c := *b
	c.common = b.common.copy()
	return &c
}

// NewBits is an unsigned run of n bits.
func NewBits(n int) *Bits {
	return &Bits{common: common{name: fmt.Sprintf("bits%d", n)}, width: n}
}

// SignedBits is a two's complement run of n bits.
func SignedBits(n int) *Bits {
	return &Bits{common: common{name: fmt.Sprintf("sbits%d", n)}, width: n, signed: true}
}

// BitsFunc is a run whose width is computed from the bit node itself,
// typically from a sibling read through Parent.
func BitsFunc(fn SizeFunc) *Bits {
	return &Bits{common: common{name: "bits"}, widthFn: fn}
}

// BitStruct is a sequence of named bit fields.
type BitStruct struct {
	common
	fields []Field
	flags  bool
}

func (b *BitStruct) Kind() Kind { return KindBitContainer }

func (b *BitStruct) clone() Shape {
	c := *b
	c.common = b.common.copy()
	c.fields = append([]Field(nil), b.fields...)
	return &c
}

// Fields returns the declared fields.
func (b *BitStruct) Fields() []Field { return b.fields }

// NewBitStruct returns a bit structure; the first field occupies the most
// significant bits.
func NewBitStruct(name string, fields ...Field) *BitStruct {
	return &BitStruct{common: common{name: name}, fields: fields}
}

// NewFlags is a bit structure summarized by the names of its set one-bit
// fields.
func NewFlags(name string, fields ...Field) *BitStruct {
	return &BitStruct{common: common{name: name}, fields: fields, flags: true}
}

// BitArray is a homogeneous sequence of bit shapes.
type BitArray struct {
	common
	elem    Shape
	count   int
	countFn SizeFunc
}

func (b *BitArray) Kind() Kind { return KindBitContainer }

func (b *BitArray) clone() Shape {
	c := *b
	c.common = b.common.copy()
	return &c
}

// BitArrayOf is a fixed bit array.
func BitArrayOf(elem Shape, n int) *BitArray {
	return &BitArray{common: common{name: fmt.Sprintf("%s[%d]", elem.Name(), n)}, elem: elem, count: n}
}

// BitArrayFunc is a bit array whose count is computed from the array node.
func BitArrayFunc(elem Shape, fn SizeFunc) *BitArray {
	return &BitArray{common: common{name: elem.Name() + "[]"}, elem: elem, countFn: fn}
}

// BitSize is the number of bits a bit node currently holds.
func (i *Instance) BitSize() int {
	switch i.shape.(type) {
	case *Bits:
		return i.bits.Width()
	case *Partial:
		if len(i.items) == 0 {
			return 0
		}
		return i.items[0].BitSize()
	}
	n := 0
	for _, c := range i.items {
		n += c.BitSize()
	}
	return n
}

// BitBlocksize is the number of bits a bit node's shape declares.
func (i *Instance) BitBlocksize() (int, error) {
	switch s := i.shape.(type) {
	case *Bits:
		if s.widthFn == nil {
			return s.width, nil
		}
		n, err := s.widthFn(i)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("%w: %s: negative width %d", ErrRange, i.Path(), n)
		}
		return n, nil
	case *BitStruct, *BitArray:
		if i.state == StateInitialized {
			total := 0
			for _, c := range i.items {
				n, err := c.BitBlocksize()
				if err != nil {
					return 0, err
				}
				total += n
			}
			return total, nil
		}
		if n, ok := StaticBits(s); ok {
			return n, nil
		}
		return i.skeletonBlocksize()
	case *Partial:
		return i.payloadBitBlocksize(s)
	}
	n, err := i.Blocksize()
	return n * 8, err
}

func (i *Instance) holdsBits() bool {
	if i == nil {
		return false
	}
	_, ok := i.shape.(*Partial)
	return ok || i.inBitDomain()
}

func (i *Instance) bitChild(s Shape, name string, pos int) (*Instance, error) {
	rs, err := Resolve(s, i)
	if err != nil {
		return nil, err
	}
	if !isBitShape(rs) {
		return nil, &TypeMismatchError{Path: i.Path(), Want: "bit shape", Got: rs}
	}
	c := i.newChild(rs, name, i.offset)
	c.bitpos = pos
	return c, nil
}

func (i *Instance) bitCount(s *BitArray) (int, error) {
	if s.countFn == nil {
		return s.count, nil
	}
	return s.countFn(i)
}

func (i *Instance) loadBits(c *bitmap.Consumer) error {
	if err := i.resolveSelf(); err != nil {
		i.state = StateFailed
		return err
	}
	i.state = StateLoading
	err := i.consumeBits(c)
	switch {
	case err == nil:
		i.state = StateInitialized
	case errors.Is(err, ErrShortRead):
		i.state = StatePartial
	default:
		i.state = StateFailed
	}
	return err
}

func (i *Instance) consumeBits(c *bitmap.Consumer) error {
	switch s := i.shape.(type) {
	case *Bits:
		w, err := i.BitBlocksize()
		if err != nil {
			return err
		}
		v, err := c.Consume(w)
		if err != nil {
			return &provider.ShortReadError{Offset: i.Offset(), Want: ceilDiv(w, 8), Err: err}
		}
		if s.signed {
			v = v.AsSigned()
		}
		i.bits = v
		return nil
	case *BitStruct:
		i.reset()
		pos := i.bitpos
		for _, f := range s.fields {
			child, err := i.bitChild(f.Shape, i.fieldName(f.Name, int64(pos)), pos)
			if err != nil {
				return err
			}
			i.addChild(child)
			if err := child.loadBits(c); err != nil {
				return err
			}
			pos += child.BitSize()
		}
		return nil
	case *BitArray:
		i.reset()
		n, err := i.bitCount(s)
		if err != nil {
			return err
		}
		pos := i.bitpos
		for k := range n {
			child, err := i.bitChild(s.elem, strconv.Itoa(k), pos)
			if err != nil {
				return err
			}
			i.addChild(child)
			if err := child.loadBits(c); err != nil {
				return err
			}
			pos += child.BitSize()
		}
		return nil
	}
	return &TypeMismatchError{Path: i.Path(), Want: "bit shape", Got: i.shape}
}

func (i *Instance) allocBits(inits []Init) error {
	switch s := i.shape.(type) {
	case *Bits:
		w, err := i.BitBlocksize()
		if err != nil {
			return err
		}
		if s.signed {
			w = -w
		}
		i.bits = bitmap.New(0, w)
		return nil
	case *BitStruct:
		names := make([]string, len(s.fields))
		for k, f := range s.fields {
			names[k] = f.Name
		}
		if err := checkInits(i.Path(), inits, names); err != nil {
			return err
		}
		pos := i.bitpos
		for _, f := range s.fields {
			child, err := i.bitChild(f.Shape, i.fieldName(f.Name, int64(pos)), pos)
			if err != nil {
				return err
			}
			i.addChild(child)
			if err := child.alloc(splitInits(inits, f.Name)); err != nil {
				return err
			}
			pos += child.BitSize()
		}
		return nil
	case *BitArray:
		n, err := i.bitCount(s)
		if err != nil {
			return err
		}
		pos := i.bitpos
		for k := range n {
			child, err := i.bitChild(s.elem, strconv.Itoa(k), pos)
			if err != nil {
				return err
			}
			i.addChild(child)
			if err := child.alloc(splitInits(inits, child.name)); err != nil {
				return err
			}
			pos += child.BitSize()
		}
		return nil
	}
	return &TypeMismatchError{Path: i.Path(), Want: "bit shape", Got: i.shape}
}

// setBits replaces the bits of a bit node. Containers redistribute v over
// their fields.
func (i *Instance) setBits(v bitmap.Bitmap) error {
	switch s := i.shape.(type) {
	case *Bits:
		w := i.bits.Width()
		if i.bits.Empty() {
			n, err := i.BitBlocksize()
			if err != nil {
				return err
			}
			w = n
		}
		if s.signed {
			w = -w
		}
		i.bits = bitmap.NewBig(v.Big(), w)
		i.state = StateInitialized
	default:
		if err := i.loadBits(bitmap.ConsumerOf(v)); err != nil {
			return err
		}
	}
	return i.changed()
}

func (i *Instance) castBits(s Shape) (*Instance, error) {
	res := i.arena.add(&Instance{parent: i.parent, pgen: i.pgen, shape: s, name: i.name, offset: i.offset, bitpos: i.bitpos})
	res.inherit()
	if err := res.loadBits(bitmap.ConsumerOf(i.Bitmap())); err != nil {
		log.Debugf(i.ctx(), "ptypes: cast of %s to %s: %v", i.Path(), s.Name(), err)
	}
	return res, nil
}

// SetFlag sets or clears a one-bit field of a flags structure by name.
func (i *Instance) SetFlag(name string, on bool) error {
	f, err := i.Field(name)
	if err != nil {
		return err
	}
	return f.Set(on)
}

// Flags returns the names of the set one-bit fields, in declaration order.
func (i *Instance) Flags() []string {
	n := i
	if _, ok := i.shape.(*Partial); ok && len(i.items) > 0 {
		n = i.items[0]
	}
	var out []string
	for _, c := range n.items {
		if _, ok := c.shape.(*Bits); ok && c.bits.Width() == 1 && c.bits.Uint64() == 1 {
			out = append(out, c.name)
		}
	}
	return out
}
