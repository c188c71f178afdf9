// Package codecs holds reusable transforms for Encoded and Pointer shapes.
package codecs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/bitmap"
)

// CookieAttr is the attribute PtrUnion reads the cookie from when it has no
// Cookie function.
const CookieAttr = "cookie"

// PtrUnion is the checksummed pointer encoding used by allocator free
// lists. The low ChecksumBits of an aligned pointer are replaced by a
// checksum of the pointer and a cookie, and the result is rotated right by
// Rotate bits:
//
//	stored = ror(ptr | sum(ptr ^ cookie), Rotate)
//
// Only pointers aligned to 1<<ChecksumBits survive an Encode and Decode
// unchanged. Encode clears the low bits of any other pointer and records an
// *AlignmentError on the owner. A mismatching checksum on decode is
// recorded on the owner as a *ptypes.ChecksumError and does not fail the
// decode.
type PtrUnion struct {
	Rotate       int // zero means 4
	ChecksumBits int // zero means 4

	// Cookie returns the cookie for owner. When nil, the "cookie"
	// attribute of the owner (or of an ancestor) is used.
	Cookie func(owner *ptypes.Instance) (uint64, error)
}

// Statically assert that PtrUnion implements ptypes.Codec.
var _ ptypes.Codec = PtrUnion{}

func (c PtrUnion) params() (rotate, bits int) {
	rotate, bits = c.Rotate, c.ChecksumBits
	if rotate == 0 {
		rotate = 4
	}
	if bits == 0 {
		bits = 4
	}
	return rotate, bits
}

func (c PtrUnion) cookie(owner *ptypes.Instance) (uint64, error) {
	if c.Cookie != nil {
		return c.Cookie(owner)
	}
	if owner == nil {
		return 0, nil
	}
	return owner.AttrUint(CookieAttr, 0), nil
}

// Checksum sums the bytes of v, width bytes wide, and keeps the low bits.
func Checksum(v uint64, width, bits int) uint64 {
	var sum uint64
	for _, b := range bitmap.Split(bitmap.New(v, width*8), 8) {
		sum += b.Uint64()
	}
	return sum & (1<<bits - 1)
}

// Decode implements ptypes.Codec.
func (c PtrUnion) Decode(owner *ptypes.Instance, raw []byte) ([]byte, error) {
	order := byteOrder(owner)
	v, err := load(raw, order)
	if err != nil {
		return nil, err
	}
	rotate, bits := c.params()
	width := len(raw) * 8

	t := bitmap.Rol(bitmap.New(v, width), rotate)
	rest, stored := bitmap.Consume(t, bits)
	ptr := bitmap.Push(rest, bitmap.New(0, bits)).Uint64()

	cookie, err := c.cookie(owner)
	if err != nil {
		return nil, fmt.Errorf("codecs: ptr_union cookie: %w", err)
	}
	if want := Checksum(ptr^cookie, len(raw), bits); want != stored.Uint64() && owner != nil {
		flagOnce(owner, &ptypes.ChecksumError{
			Path:     owner.Path(),
			Offset:   owner.Offset(),
			Stored:   stored.Uint64(),
			Computed: want,
		})
	}
	return store(ptr, len(raw), order), nil
}

// Encode implements ptypes.Codec.
func (c PtrUnion) Encode(owner *ptypes.Instance, object []byte) ([]byte, error) {
	order := byteOrder(owner)
	ptr, err := load(object, order)
	if err != nil {
		return nil, err
	}
	rotate, bits := c.params()
	cookie, err := c.cookie(owner)
	if err != nil {
		return nil, fmt.Errorf("codecs: ptr_union cookie: %w", err)
	}
	if low := ptr & (1<<bits - 1); low != 0 && owner != nil {
		owner.Flag(&AlignmentError{Path: owner.Path(), Pointer: ptr, Bits: bits})
		log.Warnf(owner.Arena().Context(), "codecs: %s: pointer %#x is not %d-bit aligned; low bits dropped", owner.Path(), ptr, bits)
	}
	ptr &^= 1<<bits - 1
	sum := Checksum(ptr^cookie, len(object), bits)
	stored := bitmap.Ror(bitmap.New(ptr|sum, len(object)*8), rotate).Uint64()
	if owner != nil {
		log.Debugf(owner.Arena().Context(), "codecs: %s: encoded pointer %#x with cookie %#x as %#x", owner.Path(), ptr, cookie, stored)
	}
	return store(stored, len(object), order), nil
}

// AlignmentError records a pointer whose low bits collide with the
// checksum and were cleared by Encode. It unwraps to ptypes.ErrRange.
type AlignmentError struct {
	Path    string
	Pointer uint64
	Bits    int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%v: codecs: %s: pointer %#x has non-zero low %d bits", ptypes.ErrRange, e.Path, e.Pointer, e.Bits)
}

func (e *AlignmentError) Unwrap() error { return ptypes.ErrRange }

// flagOnce records err unless an identical checksum problem is already
// recorded; pointers are decoded every time their address is read.
func flagOnce(owner *ptypes.Instance, err *ptypes.ChecksumError) {
	for _, e := range owner.Issues() {
		var ce *ptypes.ChecksumError
		if errors.As(e, &ce) && *ce == *err {
			return
		}
	}
	owner.Flag(err)
}

func byteOrder(owner *ptypes.Instance) binary.ByteOrder {
	if owner == nil {
		return ptypes.Default.ByteOrder
	}
	return owner.ByteOrder()
}

func load(p []byte, order binary.ByteOrder) (uint64, error) {
	if len(p) > 8 {
		return 0, fmt.Errorf("%w: codecs: %d byte pointer", ptypes.ErrRange, len(p))
	}
	var buf [8]byte
	if order == binary.BigEndian {
		copy(buf[8-len(p):], p)
		return binary.BigEndian.Uint64(buf[:]), nil
	}
	copy(buf[:], p)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func store(v uint64, n int, order binary.ByteOrder) []byte {
	var buf [8]byte
	if order == binary.BigEndian {
		binary.BigEndian.PutUint64(buf[:], v)
		return append([]byte(nil), buf[8-n:]...)
	}
	binary.LittleEndian.PutUint64(buf[:], v)
	return append([]byte(nil), buf[:n]...)
}
