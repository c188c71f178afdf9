//go:build test

package bitmap

import (
	"bytes"
	"math/big"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBitmap(r *rand.Rand, width int, signed bool) Bitmap {
	v := new(big.Int).Rand(r, new(big.Int).Lsh(big.NewInt(1), uint(width)))
	if signed {
		return NewBig(v, -width)
	}
	return NewBig(v, width)
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, signed := range []bool{false, true} {
		for aw := 0; aw <= 128; aw++ {
			// a signed bitmap needs at least one bit to carry its sign.
			if signed && aw == 0 {
				continue
			}
			for _, bw := range []int{0, 1, 7, 8, 31, 64, 65, aw, 128} {
				a := randomBitmap(r, aw, signed)
				b := randomBitmap(r, bw, signed)

				rest, got := Consume(Push(a, b), b.Width())
				assert.True(t, rest.Equal(a), "consume rest a=%v b=%v got %v", a, b, rest)
				assert.True(t, got.Equal(b), "consume value a=%v b=%v got %v", a, b, got)

				rest, got = Shift(Insert(a, b), b.Width())
				assert.True(t, rest.Equal(a), "shift rest a=%v b=%v got %v", a, b, rest)
				assert.True(t, got.Equal(b), "shift value a=%v b=%v got %v", a, b, got)
			}
		}
	}
}

func TestSignedWraparound(t *testing.T) {
	res := Add(New(255, -8), 1)
	assert.True(t, res.Equal(New(0, -8)))
	assert.EqualValues(t, 0, res.Int64())

	res = Add(New(254, -8), 1)
	assert.EqualValues(t, -1, res.Int64())
	assert.EqualValues(t, 0xff, res.Uint64())

	assert.EqualValues(t, 0xff, Sub(New(0, 8), 1).Uint64())
	assert.EqualValues(t, -4, Mul(NewInt(-2, -8), 2).Int64())

	q, err := Div(NewInt(-7, -8), 2)
	require.NoError(t, err)
	assert.EqualValues(t, -3, q.Int64())

	m, err := Mod(NewInt(-7, -8), 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Int64())

	_, err = Div(New(1, 8), 0)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestGetSet(t *testing.T) {
	b := New(0b1011_0010, 8)

	v, err := Get(b, 4, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 0b1011, v.Uint64())
	assert.Equal(t, 4, v.Width())

	b, err = Set(b, 0, true, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0b1011_0011, b.Uint64())

	_, err = Get(b, 6, 3)
	var rerr *RangeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 8, rerr.Width)
	assert.ErrorIs(t, err, ErrRange)

	_, err = Set(b, -1, true, 1)
	assert.ErrorIs(t, err, ErrRange)
}

func TestConsumeClampsAndSignExtends(t *testing.T) {
	rest, v := Consume(New(0xf, -4), 10)
	assert.True(t, rest.Empty())
	assert.EqualValues(t, -1, v.Int64())
	assert.Equal(t, 4, v.Width())

	rest, v = Shift(New(0b1100_0101, 8), 3)
	assert.EqualValues(t, 0b110, v.Uint64())
	assert.EqualValues(t, 0b0_0101, rest.Uint64())
	assert.Equal(t, 5, rest.Width())
}

func TestRunLength(t *testing.T) {
	// bits from the low end: 1 1 1 0 0 1
	b := New(0b100111, 6)

	n, err := RunLength(b, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = RunLength(b, false, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = RunLength(b, true, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = RunLength(b, true, 7)
	assert.ErrorIs(t, err, ErrRange)
}

func TestRotate(t *testing.T) {
	b := New(0x1122334455667788, 64)
	assert.EqualValues(t, uint64(0x1223344556677881), Rol(b, 4).Uint64())
	assert.EqualValues(t, uint64(0x8112233445566778), Ror(b, 4).Uint64())
	assert.True(t, Ror(Rol(b, 13), 13).Equal(b))
	assert.True(t, Rol(Zero, 3).Equal(Zero))
}

func TestSplitJoin(t *testing.T) {
	b := New(0x1_2345, 17)
	parts := Split(b, 8)
	got := make([]uint64, len(parts))
	for i, p := range parts {
		got[i] = p.Uint64()
	}
	if diff := cmp.Diff([]uint64{0x1, 0x23, 0x45}, got); diff != "" {
		t.Errorf("Split (-want +got):\n%s", diff)
	}
	assert.True(t, Join(parts...).Equal(b))
}

func TestIdentity(t *testing.T) {
	b := New(0xa5, 8)
	assert.True(t, Push(b, Zero).Equal(b))
	assert.True(t, Insert(b, Zero).Equal(b))
	assert.True(t, Add(Zero, 5).Equal(Zero))
	rest, v := Consume(Zero, 4)
	assert.True(t, rest.Empty())
	assert.True(t, v.Empty())
}

func TestRendering(t *testing.T) {
	b := New(0b101, 5)
	assert.Equal(t, "00101", b.String())
	assert.Equal(t, "0x05", b.Hex())
	assert.Equal(t, []byte{0b0010_1000}, b.Bytes())
	assert.True(t, FromBytes([]byte{0x12, 0x34}).Equal(New(0x1234, 16)))

	bits := slices.Collect(Iterate(New(0b10, 2)))
	assert.Equal(t, []bool{true, false}, bits)
	assert.Equal(t, 3, Weight(New(0b1011, 8)))
	assert.Equal(t, 5, Count(New(0b1011, 8), false))
	assert.True(t, Reverse(New(0b0001, 4)).Equal(New(0b1000, 4)))
}

func TestConsumer(t *testing.T) {
	c := NewConsumer(bytes.NewReader([]byte{0xab, 0xcd}))

	v, err := c.Consume(4)
	require.NoError(t, err)
	assert.EqualValues(t, 0xa, v.Uint64())

	v, err = c.Consume(8)
	require.NoError(t, err)
	assert.EqualValues(t, 0xbc, v.Uint64())
	assert.Equal(t, 2, c.BytesRead())

	_, err = c.Consume(8)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, 4, c.Pending())
}
