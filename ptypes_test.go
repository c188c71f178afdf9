//go:build test

package ptypes

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"weak"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oy3o/ptypes/provider"
)

// --- Helpers ---

var header = NewStruct("header",
	F("magic", Uint32),
	F("count", Uint16),
	F("flags", Uint16),
)

func fixedSize(n int) SizeFunc {
	return func(*Instance) (int, error) { return n, nil }
}

func field(t *testing.T, i *Instance, path string) *Instance {
	t.Helper()
	f, err := i.Lookup(path)
	require.NoError(t, err)
	return f
}

func xorCodec(key byte) CodecFuncs {
	fn := func(_ *Instance, p []byte) ([]byte, error) {
		out := make([]byte, len(p))
		for k, b := range p {
			out[k] = b ^ key
		}
		return out, nil
	}
	return CodecFuncs{DecodeFunc: fn, EncodeFunc: fn}
}

// --- Struct Test Suite ---

type StructTestSuite struct {
	suite.Suite
	data []byte
}

func (s *StructTestSuite) SetupTest() {
	s.data = []byte{0x78, 0x56, 0x34, 0x12, 0x02, 0x00, 0x01, 0x80}
}

func (s *StructTestSuite) TestLoad() {
	i, err := Unmarshal(header, s.data)
	s.Require().NoError(err)

	s.Assert().Equal(StateInitialized, i.State())
	s.Assert().EqualValues(0x12345678, field(s.T(), i, "magic").Uint())
	s.Assert().EqualValues(2, field(s.T(), i, "count").Uint())
	s.Assert().EqualValues(0x8001, field(s.T(), i, "flags").Uint())
	s.Assert().Empty(cmp.Diff([]string{"magic", "count", "flags"}, i.Names()))

	bs, err := i.Blocksize()
	s.Require().NoError(err)
	s.Assert().Equal(8, bs)
	s.Assert().Equal(8, i.Size())
	s.Assert().Equal(s.data, i.Bytes())
	s.Assert().Equal("header.count", field(s.T(), i, "count").Path())
	s.Assert().EqualValues(4, field(s.T(), i, "count").Offset())
}

func (s *StructTestSuite) TestPartialRead() {
	i := New(header, WithSource(provider.NewBuffer(s.data[:6])))
	err := i.Load()

	var le *LoadError
	s.Require().ErrorAs(err, &le)
	s.Assert().ErrorIs(err, ErrShortRead)
	s.Assert().Equal("header.flags", le.Path)

	s.Assert().Equal(StatePartial, i.State())
	s.Assert().False(i.Initialized())
	s.Assert().Equal(3, i.Len())
	s.Assert().EqualValues(0x12345678, field(s.T(), i, "magic").Uint())
	s.Assert().Equal(StatePartial, field(s.T(), i, "flags").State())

	bs, err := i.Blocksize()
	s.Require().NoError(err)
	s.Assert().Equal(6, i.Size())
	s.Assert().Equal(8, bs)
}

func (s *StructTestSuite) TestNoSource() {
	i := New(header)
	err := i.Load()
	s.Assert().ErrorIs(err, ErrNoSource)
	s.Assert().Equal(StateFailed, i.State())
}

func (s *StructTestSuite) TestAllocAndMarshal() {
	i := New(header)
	s.Require().NoError(i.Alloc(Assign("magic", uint32(0xFEEDFACE)), Assign("count", 3)))

	b, err := Marshal(i)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0xCE, 0xFA, 0xED, 0xFE, 0x03, 0x00, 0x00, 0x00}, b)

	buf := make([]byte, 8)
	n, err := MarshalTo(i, buf)
	s.Require().NoError(err)
	s.Assert().Equal(8, n)
	s.Assert().Equal(b, buf)

	_, err = MarshalTo(i, make([]byte, 4))
	s.Assert().Error(err)

	var sb strings.Builder
	written, err := WriteTo(i, &sb)
	s.Require().NoError(err)
	s.Assert().EqualValues(8, written)
}

func (s *StructTestSuite) TestAllocUnknownField() {
	err := New(header).Alloc(Assign("nope", 1))
	s.Assert().ErrorIs(err, ErrNotFound)
}

func (s *StructTestSuite) TestAllocNested() {
	outer := NewStruct("outer", F("in", NewStruct("in", F("x", Uint8), F("y", Uint8))))
	i := New(outer)
	s.Require().NoError(i.Alloc(Assign("in.y", 9)))
	s.Assert().Equal([]byte{0, 9}, i.Bytes())
	s.Assert().EqualValues(9, field(s.T(), i, "in.y").Uint())
}

func (s *StructTestSuite) TestCommit() {
	buf := provider.NewBuffer(append([]byte(nil), s.data...))
	i := New(header, WithSource(buf))
	s.Require().NoError(i.Load())

	s.Require().NoError(field(s.T(), i, "count").SetUint(0x0102))
	s.Assert().Equal(byte(0x02), buf.Bytes()[4], "provider untouched before commit")

	s.Require().NoError(i.Commit())
	s.Assert().Equal([]byte{0x02, 0x01}, buf.Bytes()[4:6])
}

func (s *StructTestSuite) TestDuplicateNames() {
	dup := NewStruct("dup", F("x", Uint16), F("y", Uint8), F("x", Uint8))
	data := []byte{1, 0, 2, 3}

	i, err := Unmarshal(dup, data)
	s.Require().NoError(err)
	s.Assert().Empty(cmp.Diff([]string{"x", "y", "x_3"}, i.Names()))

	var de *DuplicateFieldError
	s.Require().Len(i.Issues(), 1)
	s.Assert().ErrorAs(i.Issues()[0], &de)
	s.Assert().Equal("x_3", de.Renamed)

	cfg := Default
	cfg.Duplicates = DuplicateByIndex
	i = New(dup, WithArena(NewArena(context.Background(), &cfg)), WithSource(provider.NewBuffer(data)))
	s.Require().NoError(i.Load())
	s.Assert().Empty(cmp.Diff([]string{"x", "y", "x_2"}, i.Names()))
	s.Assert().EqualValues(3, field(s.T(), i, "x_2").Uint())
}

func (s *StructTestSuite) TestOverflowIsRecorded() {
	named := Clone(NewStruct("named", F("name", CString)), Blocksized(fixedSize(2)))

	i, err := Unmarshal(named, []byte("abc\x00"))
	s.Require().NoError(err)
	s.Assert().Equal(4, i.Size())

	var oe *OverflowError
	s.Require().Len(i.Issues(), 1)
	s.Require().ErrorAs(i.Issues()[0], &oe)
	s.Assert().Equal(4, oe.Size)
	s.Assert().Equal(2, oe.Blocksize)
}

func (s *StructTestSuite) TestBlocksizedStopsAtLimit() {
	limited := Clone(NewStruct("limited", F("a", Uint32), F("b", Uint32)), Blocksized(fixedSize(6)))
	i := New(limited, WithSource(provider.NewBuffer(s.data)))
	s.Require().NoError(i.Load())
	s.Assert().Equal(1, i.Len())
}

func (s *StructTestSuite) TestAlign() {
	aligned := NewStruct("aligned", F("a", Uint8), F("pad", Align(4)), F("b", Uint32))
	i, err := Unmarshal(aligned, []byte{1, 0, 0, 0, 4, 3, 2, 1})
	s.Require().NoError(err)
	s.Assert().Equal(3, field(s.T(), i, "pad").Size())
	s.Assert().EqualValues(0x01020304, field(s.T(), i, "b").Uint())
	s.Assert().EqualValues(4, field(s.T(), i, "b").Offset())
}

func (s *StructTestSuite) TestSiblingLength() {
	blob := NewStruct("blob",
		F("n", Uint8),
		F("data", BlockFunc(Sibling("n", 2))),
		F("tail", ArrayFunc(Uint8, Sibling("n", 1))),
	)
	i, err := Unmarshal(blob, []byte{2, 'a', 'b', 'c', 'd', 7, 8})
	s.Require().NoError(err)
	s.Assert().Equal([]byte("abcd"), field(s.T(), i, "data").Bytes())
	s.Assert().Equal(2, field(s.T(), i, "tail").Len())
	s.Assert().Equal(7, i.Size())
}

func (s *StructTestSuite) TestDeferredField() {
	msg := NewStruct("msg",
		F("wide", Uint8),
		F("body", Defer(func(owner *Instance) (Shape, error) {
			w, err := owner.Field("wide")
			if err != nil {
				return nil, err
			}
			if w.Uint() != 0 {
				return Uint32, nil
			}
			return Uint16, nil
		})),
	)

	i, err := Unmarshal(msg, []byte{1, 4, 3, 2, 1})
	s.Require().NoError(err)
	s.Assert().Equal("uint32", field(s.T(), i, "body").TypeName())
	s.Assert().EqualValues(0x01020304, field(s.T(), i, "body").Uint())

	i, err = Unmarshal(msg, []byte{0, 2, 1})
	s.Require().NoError(err)
	s.Assert().EqualValues(0x0102, field(s.T(), i, "body").Uint())
}

func (s *StructTestSuite) TestUnmarshalTrailingData() {
	_, err := Unmarshal(Uint16, []byte{1, 0, 0, 0})
	s.Assert().NoError(err)

	_, err = Unmarshal(Uint16, []byte{1, 0, 0, 1})
	s.Assert().ErrorIs(err, ErrTrailingData)
}

func (s *StructTestSuite) TestSignedAndEndian() {
	pair := NewStruct("pair", F("i", Int16), F("be", BigEndian(Uint16)))
	i, err := Unmarshal(pair, []byte{0xFE, 0xFF, 0x12, 0x34})
	s.Require().NoError(err)
	s.Assert().EqualValues(-2, field(s.T(), i, "i").Int())
	s.Assert().EqualValues(0x1234, field(s.T(), i, "be").Uint())
}

func (s *StructTestSuite) TestCharsAndGUID() {
	rec := NewStruct("rec", F("name", Chars(8)), F("id", GUID))
	i := New(rec)
	s.Require().NoError(i.Alloc(Assign("name", "zone")))
	s.Assert().Equal("zone", field(s.T(), i, "name").Str())
	s.Assert().Equal(24, i.Size())

	id, err := field(s.T(), i, "id").UUID()
	s.Require().NoError(err)
	s.Assert().Equal("00000000-0000-0000-0000-000000000000", id.String())
}

func (s *StructTestSuite) TestTree() {
	i, err := Unmarshal(header, s.data)
	s.Require().NoError(err)

	var sb strings.Builder
	s.Require().NoError(i.Tree(&sb, -1))
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	s.Require().Len(lines, 4)
	s.Assert().Contains(lines[1], "magic")
	s.Assert().Contains(lines[1], "0x12345678")
}

func TestStructSuite(t *testing.T) {
	suite.Run(t, new(StructTestSuite))
}

// --- Array Test Suite ---

type ArrayTestSuite struct {
	suite.Suite
}

func (s *ArrayTestSuite) TestTerminated() {
	i := New(CString, WithSource(provider.NewBuffer([]byte("ABAB\x00CD"))))
	s.Require().NoError(i.Load())
	s.Assert().Equal(5, i.Len())
	s.Assert().Equal([]byte("ABAB\x00"), i.Bytes())
	s.Assert().Equal(`"ABAB\x00"`, i.Summary())
}

func (s *ArrayTestSuite) TestBlockBounded() {
	i := New(BlockArray(Uint32, fixedSize(4)), WithSource(provider.NewBuffer([]byte("WXYZ1234"))))
	s.Require().NoError(i.Load())
	s.Require().Equal(1, i.Len())
	e, err := i.Item(0)
	s.Require().NoError(err)
	s.Assert().Equal([]byte("WXYZ"), e.Bytes())
}

func (s *ArrayTestSuite) TestBlockBoundedTruncatesLastElement() {
	i := New(BlockArray(Uint32, fixedSize(6)), WithSource(provider.NewBuffer([]byte("WXYZ1234"))))
	s.Require().NoError(i.Load())
	s.Require().Equal(2, i.Len())
	s.Assert().Equal(6, i.Size())

	last, err := i.Item(1)
	s.Require().NoError(err)
	s.Assert().Equal(StatePartial, last.State())
	s.Assert().Equal([]byte("12"), last.Bytes())
}

func (s *ArrayTestSuite) TestUnbounded() {
	i := New(Unbounded(Uint16), WithSource(provider.NewBuffer([]byte{1, 0, 2, 0, 3})))
	s.Require().NoError(i.Load())
	s.Require().Equal(3, i.Len())
	last, _ := i.Item(2)
	s.Assert().Equal(StatePartial, last.State())

	i = New(Unbounded(Uint16), WithSource(provider.NewBuffer([]byte{1, 0, 2, 0})))
	s.Require().NoError(i.Load())
	s.Assert().Equal(2, i.Len())
}

func (s *ArrayTestSuite) TestUnboundedIsCapped() {
	cfg := Default
	cfg.MaxElements = 10
	i := New(Unbounded(Uint8), WithArena(NewArena(context.Background(), &cfg)), WithSource(provider.NewEmpty()))
	s.Require().NoError(i.Load())
	s.Assert().Equal(10, i.Len())
}

func (s *ArrayTestSuite) TestInsertReflowsOffsets() {
	data := []byte{1, 0, 2, 0, 3, 0}
	src := provider.NewWindow(provider.NewBuffer(data), 0x100, -1)
	i := New(ArrayOf(Uint16, 3), WithSource(src), WithOffset(0x100))
	s.Require().NoError(i.Load())

	e, err := i.Insert(1, uint16(0xBEEF))
	s.Require().NoError(err)
	s.Assert().EqualValues(0xBEEF, e.Uint())
	s.Require().Equal(4, i.Len())

	offsets := make([]int64, 0, i.Len())
	values := make([]uint64, 0, i.Len())
	for _, c := range i.Items() {
		offsets = append(offsets, c.Offset())
		values = append(values, c.Uint())
	}
	s.Assert().Empty(cmp.Diff([]int64{0x100, 0x102, 0x104, 0x106}, offsets))
	s.Assert().Empty(cmp.Diff([]uint64{1, 0xBEEF, 2, 3}, values))
	s.Assert().Empty(cmp.Diff([]string{"0", "1", "2", "3"}, i.Names()))

	s.Require().NoError(i.Remove(0))
	first, _ := i.Item(0)
	s.Assert().EqualValues(0xBEEF, first.Uint())
	s.Assert().EqualValues(0x100, first.Offset())

	_, err = i.Insert(9, nil)
	s.Assert().ErrorIs(err, ErrRange)
}

func (s *ArrayTestSuite) TestAppendReplaceSlice() {
	i := New(ArrayOf(Uint8, 2))
	s.Require().NoError(i.Alloc(Assign("1", 5)))
	_, err := i.Append(uint8(7))
	s.Require().NoError(err)
	s.Require().NoError(i.Replace(0, uint8(4)))
	s.Assert().Equal([]byte{4, 5, 7}, i.Bytes())

	sl, err := i.Slice(1, 3)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{5, 7}, sl.Bytes())
	s.Assert().EqualValues(1, sl.Offset())
	s.Assert().Equal(3, i.Len(), "slicing leaves the original alone")
}

func TestArraySuite(t *testing.T) {
	suite.Run(t, new(ArrayTestSuite))
}

// --- Union, registry, pointer and encoded tests ---

func TestUnionWriteThrough(t *testing.T) {
	u := NewUnion("u", 0, F("word", Uint32), F("bytes", ArrayOf(Uint8, 4)))
	i, err := Unmarshal(u, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	bs, err := i.Blocksize()
	require.NoError(t, err)
	assert.Equal(t, 4, bs)

	w, err := i.Field("word")
	require.NoError(t, err)
	assert.EqualValues(t, 0x04030201, w.Uint())

	require.NoError(t, w.SetUint(0xAABBCCDD))
	assert.Equal(t, []byte{0xDD, 0xCC, 0xBB, 0xAA}, i.Bytes())

	b, err := i.Field("bytes")
	require.NoError(t, err)
	e, err := b.Item(3)
	require.NoError(t, err)
	assert.EqualValues(t, 0xAA, e.Uint())

	_, err = i.Field("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[int]("tag", nil)
	r.Register(1, Uint16)
	assert.Equal(t, 1, r.Len())

	_, err := r.Lookup(2)
	assert.ErrorIs(t, err, ErrNotFound)

	got := r.Get(7)
	key, ok := ShapeMeta(got, "key")
	require.True(t, ok)
	assert.Equal(t, 7, key)
	assert.Equal(t, "undefined<7>", got.Name())

	got = r.GetOrDefault(3, func(k int) Shape { return Block(k) })
	assert.Equal(t, "block(3)<3>", got.Name())
	n, ok := StaticSize(got)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	msg := NewStruct("msg",
		F("tag", Uint8),
		F("body", r.Select(func(o *Instance) (int, error) {
			tag, err := o.Field("tag")
			if err != nil {
				return 0, err
			}
			return int(tag.Uint()), nil
		})),
	)
	i, err := Unmarshal(msg, []byte{1, 0x34, 0x12})
	require.NoError(t, err)
	assert.EqualValues(t, 0x1234, field(t, i, "body").Uint())

	i, err = Unmarshal(msg, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, "undefined<9>", field(t, i, "body").TypeName())
	assert.Equal(t, 1, i.Size())
}

func TestArenaReusesHandles(t *testing.T) {
	rec := NewStruct("rec", F("n", Uint8), F("body", BlockFunc(Sibling("n", 1))))
	a := NewArena(t.Context(), nil)
	i := a.New(rec, WithSource(provider.NewBuffer([]byte{2, 'a', 'b'})))

	for range 1000 {
		n, err := i.Blocksize()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 1, a.Len(), "measuring an unloaded struct leaves nothing behind")

	require.NoError(t, i.Load())
	live := a.Len()
	n := field(t, i, "n")
	for range 1000 {
		require.NoError(t, i.Load())
	}
	assert.Equal(t, live, a.Len())
	assert.Equal(t, []byte("ab"), field(t, i, "body").Bytes())
	assert.Same(t, i, n.Parent())
}

func TestArenaStaleGrandchild(t *testing.T) {
	outer := NewStruct("outer", F("inner", NewStruct("inner", F("x", Uint8))))
	i, err := Unmarshal(outer, []byte{7})
	require.NoError(t, err)
	x := field(t, i, "inner.x")
	require.NotNil(t, x.Parent())

	require.NoError(t, i.Load())
	assert.Nil(t, x.Parent(), "a reload detaches descendants of the dropped children")
	assert.EqualValues(t, 7, x.Uint())
	assert.EqualValues(t, 7, field(t, i, "inner.x").Uint())
	assert.Same(t, field(t, i, "inner"), field(t, i, "inner.x").Parent())
}

func TestStaticSizeFollowsClones(t *testing.T) {
	a := Block(4)
	n, ok := StaticSize(a)
	require.True(t, ok)
	assert.Equal(t, 4, n)

	n, ok = StaticSize(Clone(a, Length(8)))
	require.True(t, ok)
	assert.Equal(t, 8, n)
	_, ok = StaticSize(Clone(a, Blocksized(fixedSize(2))))
	assert.False(t, ok)

	n, _ = StaticSize(a)
	assert.Equal(t, 4, n)
}

func measuredFallback(r *Registry[int], key int) weak.Pointer[Atom] {
	s := r.Get(key).(*Atom)
	StaticSize(s)
	return weak.Make(s)
}

func TestStaticSizeDoesNotPinShapes(t *testing.T) {
	r := NewRegistry[int]("tag", Block(2))
	w := measuredFallback(r, 12345)
	runtime.GC()
	assert.Nil(t, w.Value(), "a measured fallback shape is collectable")
}

func TestPointer(t *testing.T) {
	node := NewStruct("node",
		F("next", PointerTo(Uint32, 4)),
		F("pad", Padding(4)),
		F("value", Uint32),
	)
	buf := provider.NewBuffer([]byte{8, 0, 0, 0, 0, 0, 0, 0, 0xBE, 0xBA, 0xFE, 0xCA})
	i := New(node, WithSource(buf))
	require.NoError(t, i.Load())

	p := field(t, i, "next")
	addr, err := p.Address()
	require.NoError(t, err)
	assert.EqualValues(t, 8, addr)

	d, err := p.Follow()
	require.NoError(t, err)
	assert.EqualValues(t, 0xCAFEBABE, d.Uint())
	assert.Same(t, p, d.Parent())
	assert.Equal(t, 1, p.Len(), "the target is not a child of the pointer")

	require.NoError(t, p.Reference(field(t, i, "pad")))
	assert.EqualValues(t, 4, p.Uint())
	assert.Equal(t, byte(8), buf.Bytes()[0])
	require.NoError(t, p.Commit())
	assert.Equal(t, byte(4), buf.Bytes()[0])
}

func TestPointerDefaultWidth(t *testing.T) {
	i, err := Unmarshal(PointerTo(Uint8, 0), []byte{0x10, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 8, i.Size())
	assert.Equal(t, "*0x10", i.Summary())
}

func TestRelativeAndComputedPointers(t *testing.T) {
	rec := NewStruct("rec",
		F("rel", RelativePointer(Uint8, 1, func(p *Instance) (*Instance, error) { return p.Parent(), nil })),
		F("calc", ComputedPointer(Uint8, 1,
			func(_ *Instance, v uint64) (uint64, error) { return v << 4, nil },
			func(_ *Instance, a uint64) (uint64, error) { return a >> 4, nil },
		)),
	)
	src := provider.NewWindow(provider.NewBuffer([]byte{2, 3}), 0x10, -1)
	i := New(rec, WithSource(src), WithOffset(0x10))
	require.NoError(t, i.Load())

	addr, err := field(t, i, "rel").Address()
	require.NoError(t, err)
	assert.EqualValues(t, 0x12, addr)
	require.NoError(t, field(t, i, "rel").SetAddress(0x15))
	assert.EqualValues(t, 5, field(t, i, "rel").Uint())

	var s Shape = field(t, i, "rel").Shape()
	assert.Equal(t, KindPointer, s.Kind())

	c := field(t, i, "calc")
	addr, err = c.Address()
	require.NoError(t, err)
	assert.EqualValues(t, 0x30, addr)

	require.NoError(t, c.SetAddress(0x50))
	assert.EqualValues(t, 5, c.Uint())
}

func TestEncodedRoundTrip(t *testing.T) {
	pair := NewStruct("pair", F("a", Uint16), F("b", Uint16))
	enc := NewEncoded(Block(4), pair, xorCodec(0x5A))

	i, err := Unmarshal(enc, []byte{1 ^ 0x5A, 0x5A, 2 ^ 0x5A, 0x5A})
	require.NoError(t, err)

	obj, err := i.Decoded()
	require.NoError(t, err)
	assert.EqualValues(t, 1, field(t, obj, "a").Uint())
	assert.EqualValues(t, 2, field(t, obj, "b").Uint())

	require.NoError(t, field(t, obj, "a").SetUint(7))
	assert.Equal(t, []byte{7 ^ 0x5A, 0x5A, 2 ^ 0x5A, 0x5A}, i.Bytes())

	other := New(pair)
	require.NoError(t, other.Alloc(Assign("a", 0x0102), Assign("b", 0x0304)))
	require.NoError(t, i.Encode(other))

	obj, err = i.Decoded()
	require.NoError(t, err)
	assert.EqualValues(t, 0x0304, field(t, obj, "b").Uint())
	assert.Equal(t, []byte{0x02 ^ 0x5A, 0x01 ^ 0x5A, 0x04 ^ 0x5A, 0x03 ^ 0x5A}, i.Bytes())
}

func TestCast(t *testing.T) {
	i, err := Unmarshal(Uint32, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	small, err := i.Cast(Uint16)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0201, small.Uint())

	large, err := i.Cast(ArrayOf(Uint8, 8))
	require.NoError(t, err)
	assert.Equal(t, StatePartial, large.State())
	assert.Equal(t, 4, large.Size())
}

func TestErrorsUnwrap(t *testing.T) {
	err := error(&TypeMismatchError{Path: "x", Want: "array", Got: Uint8})
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	err = &ChecksumError{Path: "p", Stored: 1, Computed: 2}
	assert.ErrorIs(t, err, ErrChecksum)
}
