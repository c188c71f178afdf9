package ptypes

// Codec transforms the stored bytes of an Encoded (or Pointer) into the
// bytes of its decoded object, and back.
//
// Both directions receive the owning instance so that a codec can consult
// attributes or neighbouring fields, such as a cookie stored in a header
// somewhere up the tree.
type Codec interface {
	// Decode maps stored bytes to object bytes.
	Decode(owner *Instance, raw []byte) ([]byte, error)

	// Encode maps object bytes to stored bytes.
	Encode(owner *Instance, object []byte) ([]byte, error)
}

// CodecFuncs adapts a pair of functions to the Codec interface. A nil
// function passes bytes through unchanged.
type CodecFuncs struct {
	DecodeFunc func(owner *Instance, raw []byte) ([]byte, error)
	EncodeFunc func(owner *Instance, object []byte) ([]byte, error)
}

// Statically assert that CodecFuncs implements Codec.
var _ Codec = CodecFuncs{}

func (c CodecFuncs) Decode(owner *Instance, raw []byte) ([]byte, error) {
	if c.DecodeFunc == nil {
		return raw, nil
	}
	return c.DecodeFunc(owner, raw)
}

func (c CodecFuncs) Encode(owner *Instance, object []byte) ([]byte, error) {
	if c.EncodeFunc == nil {
		return object, nil
	}
	return c.EncodeFunc(owner, object)
}

// Identity is the codec that changes nothing.
var Identity Codec = CodecFuncs{}

// Encoding sets the codec of an Encoded or Pointer shape.
func Encoding(c Codec) Override {
	if c == nil {
		c = Identity
	}
	return func(s Shape) {
		switch s := s.(type) {
		case *Encoded:
			s.codec = c
		case *Pointer:
			s.codec = c
		}
	}
}
