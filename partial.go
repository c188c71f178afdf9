package ptypes

import (
	"bytes"
	"io"
	"slices"

	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/provider"
)

// Partial bridges the byte and bit domains: it owns ceil(bits/8) bytes and
// decodes them as a bit shape in its bit order.
type Partial struct {
	common
	payload Shape
	order   BitOrder
}

// NewPartial wraps a bit shape for use where bytes are expected.
func NewPartial(payload Shape, order BitOrder) *Partial {
	return &Partial{common: common{name: payload.Name()}, payload: payload, order: order}
}

func (p *Partial) Kind() Kind { return KindContainer }

func (p *Partial) clone() Shape {
	c := *p
	c.common = p.common.copy()
	return &c
}

// Payload returns the wrapped bit shape.
func (p *Partial) Payload() Shape { return p.payload }

// BitOrder returns the bit order of the bridge.
func (p *Partial) BitOrder() BitOrder { return p.order }

// byteRecorder keeps every byte pulled through it.
type byteRecorder struct {
	r   io.ByteReader
	buf []byte
}

func (b *byteRecorder) ReadByte() (byte, error) {
	c, err := b.r.ReadByte()
	if err == nil {
		b.buf = append(b.buf, c)
	}
	return c, err
}

func (i *Instance) payloadBitBlocksize(s *Partial) (int, error) {
	if len(i.items) > 0 && i.items[0].state == StateInitialized {
		return i.items[0].BitBlocksize()
	}
	if n, ok := StaticBits(s.payload); ok {
		return n, nil
	}
	c, err := i.bitChild(s.payload, s.payload.Name(), 0)
	if err != nil {
		return 0, err
	}
	defer i.arena.release(c)
	return c.BitBlocksize()
}

func (i *Instance) loadPartial(src provider.Provider, s *Partial) error {
	i.reset()
	if s.order == LittleBits {
		n, err := i.Blocksize()
		if err != nil {
			return err
		}
		data, rerr := provider.ReadAt(src, i.offset, n)
		i.data = data
		rev := slices.Clone(data)
		slices.Reverse(rev)
		c, err := i.bitChild(s.payload, s.payload.Name(), 0)
		if err != nil {
			return err
		}
		i.addChild(c)
		if err := c.loadBits(bitmap.NewConsumer(bytes.NewReader(rev))); err != nil {
			return err
		}
		return rerr
	}
	if _, err := src.SeekTo(i.offset); err != nil {
		return err
	}
	rec := &byteRecorder{r: provider.ByteReader(src)}
	c, err := i.bitChild(s.payload, s.payload.Name(), 0)
	if err != nil {
		return err
	}
	i.addChild(c)
	err = c.loadBits(bitmap.NewConsumer(rec))
	i.data = rec.buf
	return err
}

func (i *Instance) allocPartial(s *Partial, inits []Init) error {
	c, err := i.bitChild(s.payload, s.payload.Name(), 0)
	if err != nil {
		return err
	}
	i.addChild(c)
	var named []Init
	for _, in := range inits {
		if in.Name != "" {
			named = append(named, in)
		}
	}
	if err := c.alloc(named); err != nil {
		return err
	}
	i.data = make([]byte, ceilDiv(c.BitSize(), 8))
	i.syncPartial()
	return nil
}

// overlay writes the bits of b over dst, most significant bit first,
// leaving the bits of dst past b's width untouched.
func overlay(dst []byte, b bitmap.Bitmap) {
	w := b.Width()
	full := b.Bytes()
	copy(dst, full[:w/8])
	if r := w % 8; r != 0 {
		m := byte(0xff << (8 - r))
		dst[w/8] = dst[w/8]&^m | full[w/8]&m
	}
}

func (i *Instance) serializePartial(s *Partial) ([]byte, error) {
	if len(i.items) == 0 {
		return slices.Clone(i.data), nil
	}
	b := i.items[0].Bitmap()
	out := make([]byte, max(len(i.data), ceilDiv(b.Width(), 8)))
	copy(out, i.data)
	if s.order == LittleBits {
		slices.Reverse(out)
		overlay(out, b)
		slices.Reverse(out)
		return out, nil
	}
	overlay(out, b)
	return out, nil
}

func (i *Instance) syncPartial() {
	s, ok := i.shape.(*Partial)
	if !ok {
		return
	}
	if data, err := i.serializePartial(s); err == nil {
		i.data = data
	}
	if len(i.items) > 0 && i.items[0].state == StateInitialized && len(i.data) > 0 {
		i.state = StateInitialized
	}
}
