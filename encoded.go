package ptypes

import (
	"fmt"
	"slices"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes/provider"
)

// Encoded stores a raw shape whose bytes, once decoded by a codec, are read
// as an object shape.
type Encoded struct {
	common
	raw    Shape
	object Shape
	codec  Codec
}

// NewEncoded returns an encoded wrapper. A nil codec is Identity.
func NewEncoded(raw, object Shape, codec Codec) *Encoded {
	if codec == nil {
		codec = Identity
	}
	return &Encoded{common: common{name: fmt.Sprintf("encoded<%s>", object.Name())}, raw: raw, object: object, codec: codec}
}

func (e *Encoded) Kind() Kind { return KindEncoded }

func (e *Encoded) clone() Shape {
	c := *e
	c.common = e.common.copy()
	return &c
}

func (i *Instance) loadEncoded(src provider.Provider, s *Encoded) error {
	i.reset()
	rs, err := Resolve(s.raw, i)
	if err != nil {
		return err
	}
	c := i.newChild(byteShape(rs, i.cfg().BitOrder), "value", i.offset)
	i.addChild(c)
	return c.load(src)
}

func (i *Instance) allocEncoded(s *Encoded) error {
	rs, err := Resolve(s.raw, i)
	if err != nil {
		return err
	}
	c := i.newChild(byteShape(rs, i.cfg().BitOrder), "value", i.offset)
	i.addChild(c)
	return c.alloc(nil)
}

// Value returns the stored (raw) child of an Encoded or Pointer.
func (i *Instance) Value() (*Instance, error) {
	switch i.shape.(type) {
	case *Encoded, *Pointer:
		if len(i.items) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUninitialized, i.Path())
		}
		return i.items[0], nil
	}
	return nil, &TypeMismatchError{Path: i.Path(), Want: "encoded", Got: i.shape}
}

// decodedStorage holds the decoded bytes of an Encoded. Writes re-encode
// into the wrapper's stored value.
type decodedStorage struct {
	enc *Instance
	buf []byte
}

func (d *decodedStorage) Serialize() ([]byte, error) { return slices.Clone(d.buf), nil }

func (d *decodedStorage) WriteBack(off int64, p []byte) error {
	if end := int(off) + len(p); end > len(d.buf) {
		d.buf = append(d.buf, make([]byte, end-len(d.buf))...)
	}
	copy(d.buf[off:], p)
	s := d.enc.shape.(*Encoded)
	raw, err := s.codec.Encode(d.enc, d.buf)
	if err != nil {
		return err
	}
	return d.enc.items[0].SetBytes(raw)
}

// Decoded returns the object view of an Encoded. The object reads from the
// decoded bytes at offset zero; changing it re-encodes the stored value.
// The result is cached until the stored value changes.
func (i *Instance) Decoded() (*Instance, error) {
	s, ok := i.shape.(*Encoded)
	if !ok {
		return nil, &TypeMismatchError{Path: i.Path(), Want: "encoded", Got: i.shape}
	}
	if i.decoded != nil {
		return i.decoded, nil
	}
	if len(i.items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUninitialized, i.Path())
	}
	raw, err := i.items[0].Serialize()
	if err != nil {
		return nil, err
	}
	buf, err := s.codec.Decode(i, raw)
	if err != nil {
		return nil, fmt.Errorf("ptypes: decode %s: %w", i.Path(), err)
	}
	object, err := Resolve(s.object, i)
	if err != nil {
		return nil, err
	}
	d := New(object, WithArena(i.arena), WithParent(i), WithName("object"))
	d.source = provider.NewProxy(&decodedStorage{enc: i, buf: buf})
	d.writeThrough = true
	if err := d.load(d.source); err != nil {
		log.Debugf(i.ctx(), "ptypes: %s: decoded object: %v", i.Path(), err)
		return d, err
	}
	i.decoded = d
	return d, nil
}

// Encode stores obj's bytes through the codec.
func (i *Instance) Encode(obj *Instance) error {
	s, ok := i.shape.(*Encoded)
	if !ok {
		return &TypeMismatchError{Path: i.Path(), Want: "encoded", Got: i.shape}
	}
	data, err := obj.Serialize()
	if err != nil {
		return err
	}
	raw, err := s.codec.Encode(i, data)
	if err != nil {
		return fmt.Errorf("ptypes: encode %s: %w", i.Path(), err)
	}
	if len(i.items) == 0 {
		if err := i.alloc(nil); err != nil {
			return err
		}
	}
	return i.items[0].SetBytes(raw)
}
