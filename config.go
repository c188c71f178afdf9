package ptypes

import (
	"encoding/binary"
	"fmt"
	"strings"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
)

// BitOrder selects how a Partial maps its bytes onto a bit stream.
type BitOrder int

const (
	// BigBits consumes bytes in order, most significant bit first.
	BigBits BitOrder = iota
	// LittleBits reverses the bytes and then consumes them most
	// significant bit first.
	LittleBits
)

func (o BitOrder) String() string {
	if o == LittleBits {
		return "little"
	}
	return "big"
}

// DuplicatePolicy selects how repeated structure field names are renamed.
type DuplicatePolicy int

const (
	// DuplicateByOffset appends the field's byte offset: name_<hex>.
	DuplicateByOffset DuplicatePolicy = iota
	// DuplicateByIndex appends the field's position: name_<index>.
	DuplicateByIndex
)

// Config holds the defaults an arena applies to the shapes it decodes.
type Config struct {
	// ByteOrder is used by integer atoms and pointers without an explicit order.
	ByteOrder binary.ByteOrder
	// PointerSize is the width in bytes of pointers without an explicit width.
	PointerSize int
	// BitOrder is used when a bit shape appears inside a byte container.
	BitOrder BitOrder
	// Duplicates chooses the renaming rule for repeated field names.
	Duplicates DuplicatePolicy
	// MaxElements bounds unbounded arrays reading from providers that never
	// run dry (synthetic ones).
	MaxElements int
}

// Default is the configuration used by arenas created without one.
var Default = Config{
	ByteOrder:   LE,
	PointerSize: 8,
	BitOrder:    BigBits,
	Duplicates:  DuplicateByOffset,
	MaxElements: 1 << 16,
}

// ParseByteOrder accepts "little"/"le" and "big"/"be".
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "little", "le", "littleendian":
		return LE, nil
	case "big", "be", "bigendian":
		return BE, nil
	}
	return nil, fmt.Errorf("ptypes: unknown byte order %q", s)
}

// ParseBitOrder accepts "big" and "little".
func ParseBitOrder(s string) (BitOrder, error) {
	switch strings.ToLower(s) {
	case "big", "be", "msb":
		return BigBits, nil
	case "little", "le", "lsb":
		return LittleBits, nil
	}
	return BigBits, fmt.Errorf("ptypes: unknown bit order %q", s)
}
