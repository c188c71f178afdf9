package ptypes

import (
	"encoding/binary"
	"fmt"

	"github.com/oy3o/ptypes/provider"
)

type atomFormat int

const (
	formatBytes atomFormat = iota
	formatUint
	formatInt
	formatChars
	formatUUID
	formatPadding
)

// Atom is a leaf of a fixed or computed number of bytes.
type Atom struct {
	common
	length   int
	lengthFn SizeFunc
	format   atomFormat
	order    binary.ByteOrder
}

func (a *Atom) Kind() Kind { return KindAtomic }

func (a *Atom) clone() Shape {
	c := *a
	c.common = a.common.copy()
	return &c
}

// Integer reports whether the atom decodes as a number.
func (a *Atom) Integer() bool { return a.format == formatUint || a.format == formatInt }

// Signed reports whether the atom decodes as a two's complement number.
func (a *Atom) Signed() bool { return a.format == formatInt }

// Uint returns an unsigned integer atom of n bytes in the arena's byte order.
func Uint(n int) *Atom {
	return &Atom{common: common{name: fmt.Sprintf("uint%d", n*8)}, length: n, format: formatUint}
}

// Int returns a signed integer atom of n bytes in the arena's byte order.
func Int(n int) *Atom {
	return &Atom{common: common{name: fmt.Sprintf("int%d", n*8)}, length: n, format: formatInt}
}

var (
	Uint8  = Uint(1)
	Uint16 = Uint(2)
	Uint32 = Uint(4)
	Uint64 = Uint(8)
	Int8   = Int(1)
	Int16  = Int(2)
	Int32  = Int(4)
	Int64  = Int(8)

	// GUID is a 16-byte identifier in RFC 4122 byte order.
	GUID = &Atom{common: common{name: "uuid"}, length: 16, format: formatUUID}
)

// BigEndian returns a copy of an atom or pointer shape using big-endian order.
func BigEndian(s Shape) Shape { return Clone(s, Order(BE)) }

// LittleEndian returns a copy of an atom or pointer shape using little-endian order.
func LittleEndian(s Shape) Shape { return Clone(s, Order(LE)) }

// Chars is a fixed-size character buffer rendered up to its first NUL.
func Chars(n int) *Atom {
	return &Atom{common: common{name: fmt.Sprintf("char[%d]", n)}, length: n, format: formatChars}
}

// Padding is n bytes whose content is ignored.
func Padding(n int) *Atom {
	return &Atom{common: common{name: "padding"}, length: n, format: formatPadding}
}

// Undefined is n bytes of unknown meaning.
func Undefined(n int) *Atom {
	return &Atom{common: common{name: "undefined"}, length: n}
}

func (i *Instance) atomLength(s *Atom) (int, error) {
	if s.lengthFn == nil {
		return s.length, nil
	}
	n, err := s.lengthFn(i)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s: negative length %d", ErrRange, i.Path(), n)
	}
	return n, nil
}

func (i *Instance) loadAtom(src provider.Provider, _ *Atom) error {
	n, err := i.Blocksize()
	if err != nil {
		return err
	}
	data, err := provider.ReadAt(src, i.offset, n)
	i.data = data
	return err
}

func (i *Instance) allocAtom() error {
	n, err := i.Blocksize()
	if err != nil {
		return err
	}
	i.data = make([]byte, n)
	return nil
}
