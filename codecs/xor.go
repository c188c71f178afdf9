package codecs

import (
	"github.com/oy3o/ptypes"
)

// XOR masks bytes with a repeating key. It is its own inverse.
type XOR []byte

var _ ptypes.Codec = XOR(nil)

func (x XOR) apply(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		if len(x) > 0 {
			b ^= x[i%len(x)]
		}
		out[i] = b
	}
	return out
}

// Decode implements ptypes.Codec.
func (x XOR) Decode(_ *ptypes.Instance, raw []byte) ([]byte, error) { return x.apply(raw), nil }

// Encode implements ptypes.Codec.
func (x XOR) Encode(_ *ptypes.Instance, object []byte) ([]byte, error) { return x.apply(object), nil }
