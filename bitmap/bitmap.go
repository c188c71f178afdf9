// Package bitmap implements an arbitrary-precision bit vector.
//
// A Bitmap is an immutable (value, width) pair. The magnitude of the width
// is the number of bits and its sign marks the value as signed. Every
// operation returns a new Bitmap and never aliases its operands.
package bitmap

import (
	"fmt"
	"math/big"
	"strings"
)

// Bitmap is an immutable bit vector. The zero value is the empty bitmap.
type Bitmap struct {
	v *big.Int // never mutated once stored; nil means 0
	w int
}

// Zero is the empty bitmap, the identity for Push, Insert and Join.
var Zero = Bitmap{}

var one = big.NewInt(1)

func mask(width int) *big.Int {
	m := new(big.Int).Lsh(one, uint(width))
	return m.Sub(m, one)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(signed bool) int {
	if signed {
		return -1
	}
	return 1
}

func build(v *big.Int, width int) Bitmap {
	if v.Sign() == 0 {
		return Bitmap{w: width}
	}
	return Bitmap{v: v, w: width}
}

// New masks value to |width| bits. A negative width denotes a signed bitmap.
func New(value uint64, width int) Bitmap {
	return NewBig(new(big.Int).SetUint64(value), width)
}

// NewInt stores value in two's complement form using |width| bits.
func NewInt(value int64, width int) Bitmap {
	return NewBig(big.NewInt(value), width)
}

// NewBig is New for values wider than 64 bits. Negative values are stored
// in two's complement form.
func NewBig(value *big.Int, width int) Bitmap {
	v := new(big.Int).And(value, mask(abs(width)))
	return build(v, width)
}

// FromBytes builds an unsigned bitmap from big-endian bytes.
func FromBytes(p []byte) Bitmap {
	return build(new(big.Int).SetBytes(p), len(p)*8)
}

func (b Bitmap) int() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return b.v
}

// Width returns the number of bits, ignoring signedness.
func (b Bitmap) Width() int { return abs(b.w) }

// SignedWidth returns the raw width: negative when signed.
func (b Bitmap) SignedWidth() int { return b.w }

// Signed reports whether the bitmap holds a signed value.
func (b Bitmap) Signed() bool { return b.w < 0 }

// Empty reports whether the bitmap has no bits.
func (b Bitmap) Empty() bool { return b.w == 0 }

// Big returns a copy of the raw unsigned value.
func (b Bitmap) Big() *big.Int { return new(big.Int).Set(b.int()) }

// Uint64 returns the low 64 bits of the raw value.
func (b Bitmap) Uint64() uint64 { return b.int().Uint64() }

// Value returns the logical value, sign-extended when the bitmap is signed.
func (b Bitmap) Value() *big.Int {
	n := b.Width()
	v := b.Big()
	if b.Signed() && n > 0 && v.Bit(n-1) == 1 {
		v.Sub(v, new(big.Int).Lsh(one, uint(n)))
	}
	return v
}

// Int64 returns the logical value truncated to 64 bits.
func (b Bitmap) Int64() int64 {
	v := b.Value()
	if v.IsInt64() {
		return v.Int64()
	}
	return int64(v.Uint64())
}

// AsSigned reinterprets the same bits as a signed bitmap.
func (b Bitmap) AsSigned() Bitmap { return Bitmap{v: b.v, w: -b.Width()} }

// AsUnsigned reinterprets the same bits as an unsigned bitmap.
func (b Bitmap) AsUnsigned() Bitmap { return Bitmap{v: b.v, w: b.Width()} }

// Equal reports whether both bitmaps have the same width, signedness and
// value.
func (b Bitmap) Equal(o Bitmap) bool {
	return b.w == o.w && b.int().Cmp(o.int()) == 0
}

// Bytes renders the bitmap as big-endian bytes. A width that is not a
// multiple of 8 is padded with zero bits on the least significant side.
func (b Bitmap) Bytes() []byte {
	n := b.Width()
	if r := n % 8; r > 0 {
		b = Push(b, New(0, 8-r))
		n += 8 - r
	}
	out := make([]byte, n/8)
	b.int().FillBytes(out)
	return out
}

// String renders the bits most significant first.
func (b Bitmap) String() string {
	n := b.Width()
	if n == 0 {
		return ""
	}
	s := b.int().Text(2)
	return strings.Repeat("0", n-len(s)) + s
}

// Hex renders the raw value with enough digits for the width.
func (b Bitmap) Hex() string {
	s := b.int().Text(16)
	if digits := (b.Width() + 3) / 4; len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return "0x" + s
}

// Format makes %v print "(0x.., width)".
func (b Bitmap) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, b.String())
	case 'x':
		fmt.Fprintf(f, "%x", b.int())
	default:
		fmt.Fprintf(f, "(%s, %d)", b.Hex(), b.w)
	}
}
