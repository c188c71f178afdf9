//go:build test

package codecs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/provider"
)

// --- PtrUnion Test Suite ---

type PtrUnionTestSuite struct {
	suite.Suite
	shape ptypes.Shape
}

func (s *PtrUnionTestSuite) SetupTest() {
	s.shape = ptypes.Clone(ptypes.PointerTo(ptypes.Uint64, 8), ptypes.Encoding(PtrUnion{}))
}

func (s *PtrUnionTestSuite) load(stored uint64) *ptypes.Instance {
	buf := provider.NewBuffer(binary.LittleEndian.AppendUint64(nil, stored))
	i := ptypes.New(s.shape, ptypes.WithSource(buf), ptypes.WithRecurse(CookieAttr, uint64(0xAB)))
	s.Require().NoError(i.Load())
	return i
}

func (s *PtrUnionTestSuite) checksumIssues(i *ptypes.Instance) []*ptypes.ChecksumError {
	var out []*ptypes.ChecksumError
	for _, e := range i.Issues() {
		var ce *ptypes.ChecksumError
		if errors.As(e, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

func (s *PtrUnionTestSuite) TestDecodeMismatch() {
	i := s.load(0x1122334455667788)

	v, err := i.Decode()
	s.Require().NoError(err)
	s.Assert().EqualValues(uint64(0x1223344556677880), v)

	issues := s.checksumIssues(i)
	s.Require().Len(issues, 1)
	s.Assert().EqualValues(0x1, issues[0].Stored)
	s.Assert().EqualValues(0xE, issues[0].Computed)
	s.Assert().ErrorIs(issues[0], ptypes.ErrChecksum)

	_, err = i.Address()
	s.Require().NoError(err)
	s.Assert().Len(s.checksumIssues(i), 1, "the same mismatch is recorded once")
}

func (s *PtrUnionTestSuite) TestEncodeRoundTrip() {
	i := s.load(0x1122334455667788)
	s.Require().NoError(i.SetAddress(0x1223344556677880))
	s.Assert().EqualValues(uint64(0xE122334455667788), i.Uint())

	fresh := s.load(0xE122334455667788)
	v, err := fresh.Decode()
	s.Require().NoError(err)
	s.Assert().EqualValues(uint64(0x1223344556677880), v)
	s.Assert().Empty(s.checksumIssues(fresh))
}

func (s *PtrUnionTestSuite) alignmentIssues(i *ptypes.Instance) []*AlignmentError {
	var out []*AlignmentError
	for _, e := range i.Issues() {
		var ae *AlignmentError
		if errors.As(e, &ae) {
			out = append(out, ae)
		}
	}
	return out
}

func (s *PtrUnionTestSuite) TestEncodeThenDecodeAligned() {
	i := s.load(0)
	s.Require().NoError(i.SetAddress(0x1122334455667780))
	s.Assert().EqualValues(uint64(0x7112233445566778), i.Uint())

	v, err := i.Decode()
	s.Require().NoError(err)
	s.Assert().EqualValues(uint64(0x1122334455667780), v)
	s.Assert().Empty(s.checksumIssues(i))
	s.Assert().Empty(s.alignmentIssues(i))
}

func (s *PtrUnionTestSuite) TestEncodeUnalignedPointer() {
	i := s.load(0)
	s.Require().NoError(i.SetAddress(0x1122334455667788))
	s.Assert().EqualValues(uint64(0x7112233445566778), i.Uint(), "the low nibble is replaced by the checksum")

	v, err := i.Decode()
	s.Require().NoError(err)
	s.Assert().EqualValues(uint64(0x1122334455667780), v)
	s.Assert().Empty(s.checksumIssues(i))

	issues := s.alignmentIssues(i)
	s.Require().Len(issues, 1)
	s.Assert().EqualValues(uint64(0x1122334455667788), issues[0].Pointer)
	s.Assert().ErrorIs(issues[0], ptypes.ErrRange)
}

func (s *PtrUnionTestSuite) TestBitFlipsAreDetected() {
	for _, bit := range []uint{60, 4} {
		i := s.load(0xE122334455667788 ^ 1<<bit)
		_, err := i.Decode()
		s.Require().NoError(err)
		s.Assert().Len(s.checksumIssues(i), 1, "bit %d", bit)
	}
}

func (s *PtrUnionTestSuite) TestCookieFunc() {
	boom := errors.New("no szone")
	shape := ptypes.Clone(ptypes.PointerTo(ptypes.Uint64, 8), ptypes.Encoding(PtrUnion{
		Cookie: func(*ptypes.Instance) (uint64, error) { return 0, boom },
	}))
	i, err := ptypes.Unmarshal(shape, make([]byte, 8))
	s.Require().NoError(err)

	_, err = i.Decode()
	s.Assert().ErrorIs(err, boom)
}

func TestPtrUnionSuite(t *testing.T) {
	suite.Run(t, new(PtrUnionTestSuite))
}

func TestChecksum(t *testing.T) {
	assert.EqualValues(t, 0xE, Checksum(0x122334455667782B, 8, 4))
	assert.EqualValues(t, 0x0E, Checksum(0x122334455667782B, 8, 8)&0x0F)
	assert.EqualValues(t, 0, Checksum(0, 4, 4))
}

func TestXOR(t *testing.T) {
	pair := ptypes.NewStruct("pair", ptypes.F("a", ptypes.Uint16), ptypes.F("b", ptypes.Uint16))
	enc := ptypes.NewEncoded(ptypes.Block(4), pair, XOR{0xFF, 0x00})

	i, err := ptypes.Unmarshal(enc, []byte{0xFE, 0x00, 0xFD, 0x00})
	require.NoError(t, err)
	obj, err := i.Decoded()
	require.NoError(t, err)

	a, err := obj.Field("a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.Uint())

	require.NoError(t, a.SetUint(0x0203))
	assert.Equal(t, []byte{0xFC, 0x02, 0xFD, 0x00}, i.Bytes())
}

func TestBzip2(t *testing.T) {
	payload := bytes.Repeat([]byte("tiny region "), 32)

	raw, err := Bzip2{}.Encode(nil, payload)
	require.NoError(t, err)
	assert.Less(t, len(raw), len(payload))

	out, err := Bzip2{}.Decode(nil, raw)
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	enc := ptypes.NewEncoded(ptypes.Block(len(raw)), ptypes.Chars(len(payload)), Bzip2{Level: 9})
	i, err := ptypes.Unmarshal(enc, raw)
	require.NoError(t, err)
	obj, err := i.Decoded()
	require.NoError(t, err)
	assert.Equal(t, string(payload), obj.Str())

	_, err = Bzip2{}.Decode(nil, []byte("not bzip2"))
	assert.Error(t, err)
}

func TestBrotliIsDecodeOnly(t *testing.T) {
	_, err := Brotli{}.Encode(nil, []byte("x"))
	assert.ErrorIs(t, err, ErrEncodeUnsupported)

	_, err = Brotli{}.Decode(nil, []byte{0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}
