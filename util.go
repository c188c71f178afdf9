package ptypes

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"

	"golang.org/x/exp/constraints"
)

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// ceilDiv rounds a bit count up to bytes.
func ceilDiv[T constraints.Integer](n, d T) T { return (n + d - 1) / d }

// MAX_PADDING is the largest trailing region CheckTrailingNotZeros inspects.
const MAX_PADDING = 1024

// CheckTrailingNotZeros verifies that data holds nothing but zero padding.
func CheckTrailingNotZeros(data []byte) error {
	if len(data) > MAX_PADDING {
		return fmt.Errorf("%w: exceeds maximum expected size of %d bytes", ErrTrailingData, MAX_PADDING)
	}
	for i, b := range data {
		if b != 0 {
			return fmt.Errorf("%w: found non-zero byte 0x%02x at offset %d", ErrTrailingData, b, i)
		}
	}
	return nil
}

// decodeBig interprets p as an unsigned integer in the given byte order.
func decodeBig(p []byte, order binary.ByteOrder) *big.Int {
	if order == binary.LittleEndian {
		p = slices.Clone(p)
		slices.Reverse(p)
	}
	return new(big.Int).SetBytes(p)
}

// encodeBig writes v into n bytes in the given byte order, truncating
// high bits.
func encodeBig(v *big.Int, n int, order binary.ByteOrder) []byte {
	m := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
	m.Sub(m, big.NewInt(1))
	out := make([]byte, n)
	new(big.Int).And(v, m).FillBytes(out)
	if order == binary.LittleEndian {
		slices.Reverse(out)
	}
	return out
}

func decodeUint(p []byte, order binary.ByteOrder) uint64 {
	if len(p) > 8 {
		return decodeBig(p, order).Uint64()
	}
	var buf [8]byte
	if order == binary.LittleEndian {
		copy(buf[:], p)
		return binary.LittleEndian.Uint64(buf[:])
	}
	copy(buf[8-len(p):], p)
	return binary.BigEndian.Uint64(buf[:])
}

func encodeUint(v uint64, n int, order binary.ByteOrder) []byte {
	return encodeBig(new(big.Int).SetUint64(v), n, order)
}

// signExtend interprets the low n bytes of v as a two's complement value.
func signExtend(v uint64, n int) int64 {
	if n <= 0 || n >= 8 {
		return int64(v)
	}
	shift := uint(64 - 8*n)
	return int64(v<<shift) >> shift
}
