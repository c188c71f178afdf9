package ptypes

import (
	"encoding/binary"
	"fmt"

	"github.com/oy3o/ptypes/provider"
)

type addrMode int

const (
	addrAbsolute addrMode = iota
	addrRelative
	addrComputed
)

// Pointer is an integer that locates a target shape. The stored integer may
// be transformed by a codec, and the decoded value turned into an address
// by a located object or a function.
type Pointer struct {
	common
	target  Shape
	width   int
	order   binary.ByteOrder
	codec   Codec
	mode    addrMode
	locate  func(p *Instance) (*Instance, error)
	calc    func(p *Instance, v uint64) (uint64, error)
	inverse func(p *Instance, addr uint64) (uint64, error)
}

func (p *Pointer) Kind() Kind { return KindPointer }

func (p *Pointer) clone() Shape {
	c := *p
	c.common = p.common.copy()
	return &c
}

// Target returns the shape found at the address.
func (p *Pointer) Target() Shape { return p.target }

// PointerTo is an absolute pointer of width bytes. A width of zero uses the
// arena's pointer size.
func PointerTo(target Shape, width int) *Pointer {
	return &Pointer{common: common{name: "*" + target.Name()}, target: target, width: width, codec: Identity}
}

// RelativePointer adds its value to the offset of the instance returned by
// locate.
func RelativePointer(target Shape, width int, locate func(p *Instance) (*Instance, error)) *Pointer {
	p := PointerTo(target, width)
	p.mode, p.locate = addrRelative, locate
	return p
}

// ComputedPointer maps its value to an address with calc. inverse maps an
// address back for SetAddress; a nil inverse stores the address unchanged.
func ComputedPointer(target Shape, width int, calc func(p *Instance, v uint64) (uint64, error), inverse func(p *Instance, addr uint64) (uint64, error)) *Pointer {
	p := PointerTo(target, width)
	p.mode, p.calc, p.inverse = addrComputed, calc, inverse
	return p
}

func (i *Instance) pointerWidth(s *Pointer) int {
	if s.width > 0 {
		return s.width
	}
	return i.cfg().PointerSize
}

func (i *Instance) pointerRaw(s *Pointer) *Atom {
	return &Atom{common: common{name: fmt.Sprintf("uint%d", i.pointerWidth(s)*8)}, length: i.pointerWidth(s), format: formatUint, order: s.order}
}

func (i *Instance) loadPointer(src provider.Provider, s *Pointer) error {
	i.reset()
	c := i.newChild(i.pointerRaw(s), "value", i.offset)
	i.addChild(c)
	return c.load(src)
}

func (i *Instance) allocPointer(s *Pointer) error {
	c := i.newChild(i.pointerRaw(s), "value", i.offset)
	i.addChild(c)
	return c.alloc(nil)
}

func (i *Instance) pointer() (*Pointer, error) {
	s, ok := i.shape.(*Pointer)
	if !ok {
		return nil, &TypeMismatchError{Path: i.Path(), Want: "pointer", Got: i.shape}
	}
	if len(i.items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUninitialized, i.Path())
	}
	return s, nil
}

// Decode returns the pointer's integer after its codec is applied.
func (i *Instance) Decode() (uint64, error) {
	s, err := i.pointer()
	if err != nil {
		return 0, err
	}
	raw, err := i.items[0].Serialize()
	if err != nil {
		return 0, err
	}
	b, err := s.codec.Decode(i, raw)
	if err != nil {
		return 0, fmt.Errorf("ptypes: decode %s: %w", i.Path(), err)
	}
	return decodeUint(b, i.ByteOrder()), nil
}

// Address returns the address the pointer refers to.
func (i *Instance) Address() (int64, error) {
	s, err := i.pointer()
	if err != nil {
		return 0, err
	}
	v, err := i.Decode()
	if err != nil {
		return 0, err
	}
	switch s.mode {
	case addrRelative:
		b, err := s.locate(i)
		if err != nil {
			return 0, err
		}
		return b.Offset() + int64(v), nil
	case addrComputed:
		a, err := s.calc(i, v)
		return int64(a), err
	}
	return int64(v), nil
}

// SetAddress stores addr, inverting the address mode and encoding it.
func (i *Instance) SetAddress(addr int64) error {
	s, ok := i.shape.(*Pointer)
	if !ok {
		return &TypeMismatchError{Path: i.Path(), Want: "pointer", Got: i.shape}
	}
	if len(i.items) == 0 {
		if err := i.alloc(nil); err != nil {
			return err
		}
	}
	v := uint64(addr)
	switch s.mode {
	case addrRelative:
		b, err := s.locate(i)
		if err != nil {
			return err
		}
		v = uint64(addr - b.Offset())
	case addrComputed:
		if s.inverse != nil {
			var err error
			if v, err = s.inverse(i, uint64(addr)); err != nil {
				return err
			}
		}
	}
	raw, err := s.codec.Encode(i, encodeUint(v, i.pointerWidth(s), i.ByteOrder()))
	if err != nil {
		return fmt.Errorf("ptypes: encode %s: %w", i.Path(), err)
	}
	return i.items[0].SetBytes(raw)
}

// Reference points the pointer at target. Only the stored value changes;
// nothing is written to a provider until Commit.
func (i *Instance) Reference(target *Instance) error {
	return i.SetAddress(target.Offset())
}

// Dereference returns an unloaded instance of the target shape at the
// pointer's address. It navigates back to the pointer through Parent and
// reads from the pointer's source unless options say otherwise.
func (i *Instance) Dereference(opts ...Option) (*Instance, error) {
	s, err := i.pointer()
	if err != nil {
		return nil, err
	}
	addr, err := i.Address()
	if err != nil {
		return nil, err
	}
	target, err := Resolve(s.target, i)
	if err != nil {
		return nil, err
	}
	base := []Option{WithArena(i.arena), WithParent(i), WithOffset(addr), WithName("*" + i.name)}
	return New(target, append(base, opts...)...), nil
}

// Follow dereferences and loads the target.
func (i *Instance) Follow(opts ...Option) (*Instance, error) {
	d, err := i.Dereference(opts...)
	if err != nil {
		return nil, err
	}
	return d, d.Load()
}
