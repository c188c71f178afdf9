//go:build test

package ptypes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/ptypes/provider"
)

var nibbles = NewBitStruct("nibbles", F("a", NewBits(4)), F("b", NewBits(12)))

func TestPartialBigBits(t *testing.T) {
	i, err := Unmarshal(nibbles, []byte{0x12, 0x34})
	require.NoError(t, err)
	assert.IsType(t, &Partial{}, i.Shape())
	assert.Equal(t, 2, i.Size())
	assert.EqualValues(t, 1, field(t, i, "a").Uint())
	assert.EqualValues(t, 0x234, field(t, i, "b").Uint())
	assert.Equal(t, 4, field(t, i, "b").BitOffset())
}

func TestPartialLittleBits(t *testing.T) {
	i, err := Unmarshal(NewPartial(nibbles, LittleBits), []byte{0x34, 0x12})
	require.NoError(t, err)
	assert.EqualValues(t, 1, field(t, i, "a").Uint())
	assert.EqualValues(t, 0x234, field(t, i, "b").Uint())

	require.NoError(t, field(t, i, "b").SetUint(0x567))
	assert.Equal(t, []byte{0x67, 0x15}, i.Bytes())
}

func TestPartialKeepsUnusedBits(t *testing.T) {
	small := NewBitStruct("small", F("x", NewBits(3)), F("y", NewBits(2)))
	i, err := Unmarshal(small, []byte{0xBF})
	require.NoError(t, err)
	assert.EqualValues(t, 5, field(t, i, "x").Uint())
	assert.EqualValues(t, 3, field(t, i, "y").Uint())

	require.NoError(t, field(t, i, "x").SetUint(2))
	assert.Equal(t, []byte{0x5F}, i.Bytes())
}

func TestPartialInStruct(t *testing.T) {
	rec := NewStruct("rec",
		F("lead", Uint8),
		F("bits", NewBitStruct("bits", F("hi", NewBits(4)), F("lo", SignedBits(4)))),
		F("tail", Uint8),
	)
	i, err := Unmarshal(rec, []byte{7, 0x3F, 9})
	require.NoError(t, err)
	assert.EqualValues(t, 3, field(t, i, "bits.hi").Uint())
	assert.EqualValues(t, -1, field(t, i, "bits.lo").Int())
	assert.EqualValues(t, 1, field(t, i, "bits.lo").Offset())
	assert.EqualValues(t, 9, field(t, i, "tail").Uint())
	assert.Equal(t, 3, i.Size())
}

func TestBitsFromSibling(t *testing.T) {
	tagged := NewBitStruct("tagged",
		F("n", NewBits(4)),
		F("v", BitsFunc(func(i *Instance) (int, error) {
			n, err := i.Parent().Field("n")
			if err != nil {
				return 0, err
			}
			return int(n.Uint()), nil
		})),
	)
	i, err := Unmarshal(tagged, []byte{0x4A})
	require.NoError(t, err)
	assert.EqualValues(t, 0xA, field(t, i, "v").Uint())
	assert.Equal(t, 4, field(t, i, "v").BitSize())
}

func TestBitArray(t *testing.T) {
	i, err := Unmarshal(BitArrayOf(NewBits(2), 4), []byte{0b00_01_10_11})
	require.NoError(t, err)
	p := i.Items()[0]
	values := make([]uint64, 0, p.Len())
	for _, c := range p.Items() {
		values = append(values, c.Uint())
	}
	assert.Empty(t, cmp.Diff([]uint64{0, 1, 2, 3}, values))
	assert.Equal(t, "[0,1,2,3]", i.Summary())
}

func TestFlags(t *testing.T) {
	debug := NewFlags("debug",
		F("a", NewBits(1)),
		F("b", NewBits(1)),
		F("c", NewBits(1)),
		F("reserved", NewBits(5)),
	)
	i, err := Unmarshal(debug, []byte{0xA0})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]string{"a", "c"}, i.Flags()))
	assert.Equal(t, "{a|c}", i.Summary())

	require.NoError(t, i.SetFlag("b", true))
	assert.Equal(t, []byte{0xE0}, i.Bytes())

	assert.ErrorIs(t, i.SetFlag("z", true), ErrNotFound)
}

func TestBitsShortRead(t *testing.T) {
	i := New(nibbles, WithSource(provider.NewBuffer([]byte{0x12})))
	err := i.Load()
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, StatePartial, i.State())
	assert.EqualValues(t, 1, field(t, i, "a").Uint())
}

func TestBitCastPartial(t *testing.T) {
	narrow := NewBitStruct("narrow", F("v", NewBits(8)))
	wide := NewBitStruct("wide", F("hi", NewBits(4)), F("lo", NewBits(8)))

	i, err := Unmarshal(narrow, []byte{0xAB})
	require.NoError(t, err)
	payload := i.Items()[0]

	res, err := payload.Cast(wide)
	require.NoError(t, err)
	assert.Equal(t, StatePartial, res.State())
	assert.EqualValues(t, 0xA, field(t, res, "hi").Uint())
}

func TestAllocBits(t *testing.T) {
	i := New(nibbles)
	require.NoError(t, i.Alloc(Assign("a", 0xF), Assign("b", 0x001)))
	assert.Equal(t, []byte{0xF0, 0x01}, i.Bytes())

	bs, err := i.Blocksize()
	require.NoError(t, err)
	assert.Equal(t, 2, bs)
}
