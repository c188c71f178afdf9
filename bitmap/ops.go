package bitmap

import (
	"iter"
	"math/big"
	"math/bits"
)

func checkRange(b Bitmap, position, count int) error {
	if position < 0 || count < 0 || position+count > b.Width() {
		return &RangeError{Position: position, Count: count, Width: b.Width()}
	}
	return nil
}

// Get returns count bits starting at position, counted from the least
// significant bit. The result is unsigned.
func Get(b Bitmap, position, count int) (Bitmap, error) {
	if err := checkRange(b, position, count); err != nil {
		return Zero, err
	}
	return NewBig(new(big.Int).Rsh(b.int(), uint(position)), count), nil
}

// Set assigns value to count bits starting at position.
func Set(b Bitmap, position int, value bool, count int) (Bitmap, error) {
	if err := checkRange(b, position, count); err != nil {
		return Zero, err
	}
	m := new(big.Int).Lsh(mask(count), uint(position))
	v := new(big.Int)
	if value {
		v.Or(b.int(), m)
	} else {
		v.AndNot(b.int(), m)
	}
	return build(v, b.w), nil
}

// Scan returns the first position at or above position whose bit equals
// value, or the width when there is none.
func Scan(b Bitmap, value bool, position int) (int, error) {
	n := b.Width()
	if position < 0 || position > n {
		return 0, &RangeError{Position: position, Width: n}
	}
	var want uint
	if value {
		want = 1
	}
	v := b.int()
	for ; position < n; position++ {
		if v.Bit(position) == want {
			return position, nil
		}
	}
	return n, nil
}

// RunLength counts the consecutive bits equal to value starting at position.
func RunLength(b Bitmap, value bool, position int) (int, error) {
	end, err := Scan(b, !value, position)
	if err != nil {
		return 0, err
	}
	return end - position, nil
}

// Consume removes the n least significant bits. The extracted bitmap keeps
// the signedness of b; n is clamped to the width.
func Consume(b Bitmap, n int) (remaining, extracted Bitmap) {
	k := min(max(n, 0), b.Width())
	v := b.int()
	s := sign(b.Signed())
	low := new(big.Int).And(v, mask(k))
	rest := new(big.Int).Rsh(v, uint(k))
	return build(rest, s*(b.Width()-k)), build(low, s*k)
}

// Shift removes the n most significant bits, clamping n like Consume.
func Shift(b Bitmap, n int) (remaining, extracted Bitmap) {
	k := min(max(n, 0), b.Width())
	rem := b.Width() - k
	v := b.int()
	s := sign(b.Signed())
	high := new(big.Int).Rsh(v, uint(rem))
	rest := new(big.Int).And(v, mask(rem))
	return build(rest, s*rem), build(high, s*k)
}

// Push appends o as the new least significant bits of b.
func Push(b, o Bitmap) Bitmap {
	v := new(big.Int).Lsh(b.int(), uint(o.Width()))
	v.Or(v, o.int())
	return build(v, sign(b.Signed())*(b.Width()+o.Width()))
}

// Insert appends o as the new most significant bits of b.
func Insert(b, o Bitmap) Bitmap {
	v := new(big.Int).Lsh(o.int(), uint(b.Width()))
	v.Or(v, b.int())
	return build(v, sign(b.Signed())*(b.Width()+o.Width()))
}

// Split cuts b into unsigned chunks of n bits starting from the least
// significant end. The result is ordered most significant first, so the
// leftover chunk (if any) comes first.
func Split(b Bitmap, n int) []Bitmap {
	if n <= 0 {
		return []Bitmap{b}
	}
	var out []Bitmap
	b = b.AsUnsigned()
	for b.Width() >= n {
		var chunk Bitmap
		b, chunk = Consume(b, n)
		out = append(out, chunk)
	}
	if b.Width() > 0 {
		out = append(out, b)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Join pushes every bitmap onto an empty one in order.
func Join(bs ...Bitmap) Bitmap {
	res := Zero
	for _, b := range bs {
		res = Push(res, b)
	}
	return res
}

// Rol rotates b left by k bits within its width.
func Rol(b Bitmap, k int) Bitmap {
	n := b.Width()
	if n == 0 {
		return b
	}
	k = ((k % n) + n) % n
	if k == 0 {
		return b
	}
	v := new(big.Int).Lsh(b.int(), uint(k))
	v.Or(v, new(big.Int).Rsh(b.int(), uint(n-k)))
	return build(v.And(v, mask(n)), b.w)
}

// Ror rotates b right by k bits within its width.
func Ror(b Bitmap, k int) Bitmap {
	return Rol(b, -k)
}

// Grow appends k zero bits at the least significant end.
func Grow(b Bitmap, k int) Bitmap {
	if k < 0 {
		return Shrink(b, -k)
	}
	return Push(b, New(0, k))
}

// Shrink drops the k least significant bits.
func Shrink(b Bitmap, k int) Bitmap {
	if k < 0 {
		return Grow(b, -k)
	}
	rest, _ := Consume(b, k)
	return rest
}

// Reverse flips the bit order.
func Reverse(b Bitmap) Bitmap {
	s := sign(b.Signed())
	res := New(0, 0)
	for b.Width() > 0 {
		var bit Bitmap
		b, bit = Consume(b, 1)
		res = Push(res, bit.AsUnsigned())
	}
	return Bitmap{v: res.v, w: s * res.Width()}
}

// Weight is the number of set bits.
func Weight(b Bitmap) int {
	total := 0
	for _, w := range b.int().Bits() {
		total += bits.OnesCount(uint(w))
	}
	return total
}

// Count returns the number of bits equal to value.
func Count(b Bitmap, value bool) int {
	if value {
		return Weight(b)
	}
	return b.Width() - Weight(b)
}

// Iterate yields every bit, most significant first.
func Iterate(b Bitmap) iter.Seq[bool] {
	return func(yield func(bool) bool) {
		v := b.int()
		for i := b.Width() - 1; i >= 0; i-- {
			if !yield(v.Bit(i) == 1) {
				return
			}
		}
	}
}

func wrap(b Bitmap, v *big.Int) Bitmap {
	return NewBig(v, b.w)
}

// Add adds n, wrapping around within the width.
func Add(b Bitmap, n int64) Bitmap {
	return wrap(b, new(big.Int).Add(b.int(), big.NewInt(n)))
}

// Sub subtracts n, wrapping around within the width.
func Sub(b Bitmap, n int64) Bitmap {
	return wrap(b, new(big.Int).Sub(b.int(), big.NewInt(n)))
}

// Mul multiplies the logical value by n, wrapping around within the width.
func Mul(b Bitmap, n int64) Bitmap {
	return wrap(b, new(big.Int).Mul(b.Value(), big.NewInt(n)))
}

// Div divides the logical value by n, truncating toward zero.
func Div(b Bitmap, n int64) (Bitmap, error) {
	if n == 0 {
		return Zero, ErrDivideByZero
	}
	return wrap(b, new(big.Int).Quo(b.Value(), big.NewInt(n))), nil
}

// Mod takes the floored remainder of the logical value by n.
func Mod(b Bitmap, n int64) (Bitmap, error) {
	if n == 0 {
		return Zero, ErrDivideByZero
	}
	d := big.NewInt(n)
	r := new(big.Int).Rem(b.Value(), d)
	if r.Sign() != 0 && r.Sign() != d.Sign() {
		r.Add(r, d)
	}
	return wrap(b, r), nil
}
