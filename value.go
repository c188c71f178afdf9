package ptypes

import (
	"bytes"
	"fmt"
	"math/big"
	"slices"

	"github.com/google/uuid"

	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/provider"
)

// Uint decodes the instance as an unsigned integer. Pointers yield their
// stored (still encoded) value; containers decode their serialized bytes.
func (i *Instance) Uint() uint64 {
	switch i.shape.(type) {
	case *Atom, *Union:
		return decodeUint(i.data, i.ByteOrder())
	case *Pointer, *Encoded, *Partial:
		if len(i.items) == 0 {
			return 0
		}
		return i.items[0].Uint()
	case *Bits, *BitStruct, *BitArray:
		return i.Bitmap().Uint64()
	}
	return decodeUint(i.Bytes(), i.ByteOrder())
}

// Int decodes the instance as a two's complement integer.
func (i *Instance) Int() int64 {
	switch i.shape.(type) {
	case *Bits, *BitStruct, *BitArray:
		return i.Bitmap().Int64()
	case *Pointer, *Encoded, *Partial:
		if len(i.items) == 0 {
			return 0
		}
		return i.items[0].Int()
	}
	if a, ok := i.shape.(*Atom); ok && !a.Signed() {
		return int64(i.Uint())
	}
	return signExtend(i.Uint(), len(i.data))
}

// Big decodes the instance as an unsigned integer of any width.
func (i *Instance) Big() *big.Int {
	switch i.shape.(type) {
	case *Pointer, *Encoded, *Partial:
		if len(i.items) == 0 {
			return new(big.Int)
		}
		return i.items[0].Big()
	case *Bits, *BitStruct, *BitArray:
		return i.Bitmap().Big()
	}
	return decodeBig(i.Bytes(), i.ByteOrder())
}

// Bitmap returns the bits of a bit node, or the integer value of a byte
// instance as a bitmap of its byte width.
func (i *Instance) Bitmap() bitmap.Bitmap {
	switch i.shape.(type) {
	case *Bits:
		return i.bits
	case *BitStruct, *BitArray:
		bs := make([]bitmap.Bitmap, len(i.items))
		for k, c := range i.items {
			bs[k] = c.Bitmap()
		}
		return bitmap.Join(bs...)
	case *Partial:
		if len(i.items) == 0 {
			return bitmap.Zero
		}
		return i.items[0].Bitmap()
	}
	return bitmap.NewBig(i.Big(), i.Size()*8)
}

// SetUint stores v, truncated to the instance's width.
func (i *Instance) SetUint(v uint64) error {
	return i.SetBig(new(big.Int).SetUint64(v))
}

// SetInt stores v in two's complement form.
func (i *Instance) SetInt(v int64) error {
	return i.SetBig(big.NewInt(v))
}

// SetBig stores v, truncated to the instance's width.
func (i *Instance) SetBig(v *big.Int) error {
	switch s := i.shape.(type) {
	case *Atom, *Union:
		n := len(i.data)
		if i.data == nil {
			bs, err := i.Blocksize()
			if err != nil {
				return err
			}
			n = bs
		}
		i.data = encodeBig(v, n, i.ByteOrder())
		i.state = StateInitialized
		return i.changed()
	case *Pointer, *Encoded, *Partial:
		if len(i.items) == 0 {
			if err := i.alloc(nil); err != nil {
				return err
			}
		}
		return i.items[0].SetBig(v)
	case *Bits:
		w, err := i.BitBlocksize()
		if err != nil {
			return err
		}
		if !i.bits.Empty() {
			w = i.bits.Width()
		}
		if s.signed {
			w = -w
		}
		return i.setBits(bitmap.NewBig(v, w))
	case *BitStruct, *BitArray:
		return i.setBits(bitmap.NewBig(v, i.BitSize()))
	}
	return &TypeMismatchError{Path: i.Path(), Want: "integer", Got: i.shape}
}

// SetBytes replaces the instance's bytes. Atoms adopt the new length;
// containers reload their children from p.
func (i *Instance) SetBytes(p []byte) error {
	switch i.shape.(type) {
	case *Atom, *Union:
		i.data = slices.Clone(p)
		i.state = StateInitialized
		i.items, i.index = nil, nil
		return i.changed()
	case *Pointer, *Encoded:
		if len(i.items) == 0 {
			if err := i.alloc(nil); err != nil {
				return err
			}
		}
		return i.items[0].SetBytes(p)
	case *Bits, *BitStruct, *BitArray:
		return i.setBits(bitmap.FromBytes(p))
	}
	err := i.load(provider.NewWindow(provider.NewBuffer(slices.Clone(p)), i.offset, int64(len(p))))
	if cerr := i.changed(); err == nil {
		err = cerr
	}
	return err
}

// Set assigns a value of any supported type.
func (i *Instance) Set(v any) error {
	switch v := v.(type) {
	case uint64:
		return i.SetUint(v)
	case uint32:
		return i.SetUint(uint64(v))
	case uint16:
		return i.SetUint(uint64(v))
	case uint8:
		return i.SetUint(uint64(v))
	case uint:
		return i.SetUint(uint64(v))
	case int:
		return i.SetInt(int64(v))
	case int64:
		return i.SetInt(v)
	case int32:
		return i.SetInt(int64(v))
	case bool:
		if v {
			return i.SetUint(1)
		}
		return i.SetUint(0)
	case *big.Int:
		return i.SetBig(v)
	case bitmap.Bitmap:
		if i.inBitDomain() {
			return i.setBits(v)
		}
		return i.SetBig(v.Big())
	case []byte:
		return i.SetBytes(v)
	case string:
		return i.SetStr(v)
	case uuid.UUID:
		return i.SetBytes(v[:])
	case *Instance:
		if _, ok := i.shape.(*Pointer); ok {
			return i.Reference(v)
		}
		b, err := v.Serialize()
		if err != nil {
			return err
		}
		return i.SetBytes(b)
	case map[string]any:
		for name, fv := range v {
			f, err := i.Field(name)
			if err != nil {
				return err
			}
			if err := f.Set(fv); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for k, ev := range v {
			e, err := i.Item(k)
			if err != nil {
				return err
			}
			if err := e.Set(ev); err != nil {
				return err
			}
		}
		return nil
	}
	return &TypeMismatchError{Path: i.Path(), Want: "assignable value", Got: v}
}

// Str renders character data up to the first NUL.
func (i *Instance) Str() string {
	b := i.Bytes()
	if k := bytes.IndexByte(b, 0); k >= 0 {
		b = b[:k]
	}
	return string(b)
}

// SetStr stores s, NUL padded (and truncated) to a fixed-size atom's length.
func (i *Instance) SetStr(s string) error {
	if a, ok := i.shape.(*Atom); ok && a.lengthFn == nil && a.format == formatChars {
		b := make([]byte, a.length)
		copy(b, s)
		return i.SetBytes(b)
	}
	return i.SetBytes([]byte(s))
}

// UUID decodes a 16-byte instance.
func (i *Instance) UUID() (uuid.UUID, error) {
	id, err := uuid.FromBytes(i.Bytes())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, i.Path(), err)
	}
	return id, nil
}
