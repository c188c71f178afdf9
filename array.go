package ptypes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes/provider"
)

// ArrayPolicy decides how many elements an array holds.
type ArrayPolicy int

const (
	// ArrayFixed holds a count known before loading.
	ArrayFixed ArrayPolicy = iota
	// ArrayTerminated stops after the element its predicate accepts.
	ArrayTerminated
	// ArrayBlock stops once the elements fill the array's blocksize.
	ArrayBlock
	// ArrayUnbounded reads until the provider runs out of bytes.
	ArrayUnbounded
)

// Array is a homogeneous sequence of elements.
type Array struct {
	common
	elem       Shape
	policy     ArrayPolicy
	count      int
	countFn    SizeFunc
	terminator func(*Instance) bool
}

func (a *Array) Kind() Kind { return KindContainer }

func (a *Array) clone() Shape {
	c := *a
	c.common = a.common.copy()
	return &c
}

// Element returns the element shape.
func (a *Array) Element() Shape { return a.elem }

// Policy returns the length policy.
func (a *Array) Policy() ArrayPolicy { return a.policy }

// ArrayOf is a fixed array of n elements.
func ArrayOf(elem Shape, n int) *Array {
	return &Array{common: common{name: fmt.Sprintf("%s[%d]", elem.Name(), n)}, elem: elem, count: n}
}

// ArrayFunc is a fixed array whose count is computed from the array instance.
func ArrayFunc(elem Shape, count SizeFunc) *Array {
	return &Array{common: common{name: elem.Name() + "[]"}, elem: elem, countFn: count}
}

// Terminated is an array that ends with (and includes) the first element
// for which isTerminator returns true.
func Terminated(elem Shape, isTerminator func(*Instance) bool) *Array {
	return &Array{common: common{name: elem.Name() + "[...]"}, elem: elem, policy: ArrayTerminated, terminator: isTerminator}
}

// BlockArray is an array whose elements fill the blocksize computed by fn.
func BlockArray(elem Shape, fn SizeFunc) *Array {
	return &Array{common: common{name: elem.Name() + "[]", blocksize: fn}, elem: elem, policy: ArrayBlock}
}

// Unbounded is an array that reads elements until its provider is exhausted.
func Unbounded(elem Shape) *Array {
	return &Array{common: common{name: elem.Name() + "[*]"}, elem: elem, policy: ArrayUnbounded}
}

// CString is a NUL terminated byte string.
var CString = Clone(Terminated(Uint8, func(e *Instance) bool { return e.Uint() == 0 }), Named("cstring"))

func (i *Instance) arrayCount(s *Array) (int, error) {
	if s.countFn == nil {
		return s.count, nil
	}
	n, err := s.countFn(i)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s: negative count %d", ErrRange, i.Path(), n)
	}
	return n, nil
}

func (i *Instance) newElement(s *Array, off int64) (*Instance, error) {
	es, err := Resolve(s.elem, i)
	if err != nil {
		return nil, err
	}
	return i.newChild(byteShape(es, i.cfg().BitOrder), strconv.Itoa(len(i.items)), off), nil
}

func (i *Instance) nextOffset() int64 {
	return i.offset + int64(i.Size())
}

func (i *Instance) loadArray(src provider.Provider, s *Array) error {
	i.reset()
	switch s.policy {
	case ArrayFixed:
		n, err := i.arrayCount(s)
		if err != nil {
			return err
		}
		for range n {
			c, err := i.newElement(s, i.nextOffset())
			if err != nil {
				return err
			}
			i.addChild(c)
			if err := c.load(src); err != nil {
				return err
			}
		}
	case ArrayTerminated:
		for {
			c, err := i.newElement(s, i.nextOffset())
			if err != nil {
				return err
			}
			i.addChild(c)
			if err := c.load(src); err != nil {
				return err
			}
			if s.terminator == nil || s.terminator(c) {
				break
			}
			if c.Size() == 0 || len(i.items) >= i.cfg().MaxElements {
				log.Warnf(i.ctx(), "ptypes: %s: no terminator after %d elements", i.Path(), len(i.items))
				break
			}
		}
	case ArrayBlock:
		lim, err := i.Blocksize()
		if err != nil {
			return err
		}
		end := i.offset + int64(lim)
		for i.nextOffset() < end {
			c, err := i.newElement(s, i.nextOffset())
			if err != nil {
				return err
			}
			i.addChild(c)
			bs, err := c.Blocksize()
			if err != nil {
				return err
			}
			if c.offset+int64(bs) > end {
				// The final element overruns the block: read what fits.
				if err := c.load(provider.NewWindow(src, 0, end)); err != nil && !errors.Is(err, ErrShortRead) {
					return err
				}
				log.Debugf(i.ctx(), "ptypes: %s: element %s truncated to %d bytes", i.Path(), c.name, c.Size())
				break
			}
			if err := c.load(src); err != nil {
				return err
			}
			if c.Size() == 0 {
				break
			}
		}
	case ArrayUnbounded:
		for len(i.items) < i.cfg().MaxElements {
			c, err := i.newElement(s, i.nextOffset())
			if err != nil {
				return err
			}
			i.addChild(c)
			if err := c.load(src); err != nil {
				if !errors.Is(err, ErrShortRead) {
					return err
				}
				if c.Size() == 0 {
					i.items = i.items[:len(i.items)-1]
					delete(i.index, c.name)
					i.arena.release(c)
				}
				return nil
			}
			if c.Size() == 0 {
				break
			}
		}
	}
	return nil
}

func (i *Instance) allocArray(s *Array, inits []Init) error {
	var n int
	switch s.policy {
	case ArrayFixed:
		c, err := i.arrayCount(s)
		if err != nil {
			return err
		}
		n = c
	case ArrayBlock:
		lim, err := i.Blocksize()
		if err != nil {
			return err
		}
		bs, err := i.blocksizeOf(s.elem, i.offset)
		if err != nil {
			return err
		}
		if bs > 0 {
			n = lim / bs
		}
	}
	for _, in := range inits {
		if in.Name == "" {
			if vs, ok := in.Value.([]any); ok {
				n = max(n, len(vs))
			}
			continue
		}
		k, err := strconv.Atoi(in.Name)
		if err != nil {
			head, _, _ := strings.Cut(in.Name, ".")
			if k, err = strconv.Atoi(head); err != nil {
				return fmt.Errorf("%w: %s has no element %q", ErrNotFound, i.Path(), in.Name)
			}
		}
		n = max(n, k+1)
	}
	for range n {
		c, err := i.newElement(s, i.nextOffset())
		if err != nil {
			return err
		}
		i.addChild(c)
		if err := c.alloc(splitInits(inits, c.name)); err != nil {
			return err
		}
	}
	return nil
}

func (i *Instance) arrayBlocksize(s *Array) (int, error) {
	if len(i.items) == 0 && i.state != StateInitialized {
		if s.policy != ArrayFixed {
			return 0, nil
		}
		if n, ok := StaticSize(s); ok {
			return n, nil
		}
		return i.skeletonBlocksize()
	}
	total := 0
	for _, c := range i.items {
		n, err := c.Blocksize()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (i *Instance) array() (*Array, error) {
	s, ok := i.shape.(*Array)
	if !ok {
		return nil, &TypeMismatchError{Path: i.Path(), Want: "array", Got: i.shape}
	}
	return s, nil
}

// renumber restores index names and offsets after a mutation.
func (i *Instance) renumber() {
	i.index = make(map[string]int, len(i.items))
	for k, c := range i.items {
		c.name = strconv.Itoa(k)
		i.index[c.name] = k
	}
	i.SetOffset(i.offset, true)
}

// Insert places a new element at k. A nil value leaves it zeroed; any
// other value is assigned with Set. Later elements are moved along.
func (i *Instance) Insert(k int, v any) (*Instance, error) {
	s, err := i.array()
	if err != nil {
		return nil, err
	}
	if k < 0 || k > len(i.items) {
		return nil, fmt.Errorf("%w: %s: insert at %d (length %d)", ErrRange, i.Path(), k, len(i.items))
	}
	off := i.offset
	if k > 0 {
		prev := i.items[k-1]
		off = prev.offset + int64(prev.Size())
	}
	c, err := i.newElement(s, off)
	if err != nil {
		return nil, err
	}
	if err := c.alloc(nil); err != nil {
		return nil, err
	}
	if v != nil {
		if err := c.Set(v); err != nil {
			return nil, err
		}
	}
	i.items = append(i.items[:k], append([]*Instance{c}, i.items[k:]...)...)
	i.state = StateInitialized
	i.renumber()
	return c, nil
}

// Append adds an element at the end.
func (i *Instance) Append(v any) (*Instance, error) { return i.Insert(len(i.items), v) }

// Remove deletes element k and moves later elements back.
func (i *Instance) Remove(k int) error {
	if _, err := i.array(); err != nil {
		return err
	}
	if k < 0 || k >= len(i.items) {
		return fmt.Errorf("%w: %s: remove %d (length %d)", ErrRange, i.Path(), k, len(i.items))
	}
	i.items = append(i.items[:k], i.items[k+1:]...)
	i.renumber()
	return nil
}

// Replace assigns v to element k and re-lays the elements after it.
func (i *Instance) Replace(k int, v any) error {
	c, err := i.Item(k)
	if err != nil {
		return err
	}
	if err := c.Set(v); err != nil {
		return err
	}
	i.renumber()
	return nil
}

// Slice returns a detached array holding copies of elements [from, to).
func (i *Instance) Slice(from, to int) (*Instance, error) {
	s, err := i.array()
	if err != nil {
		return nil, err
	}
	if from < 0 || to > len(i.items) || from > to {
		return nil, fmt.Errorf("%w: %s: slice [%d:%d] (length %d)", ErrRange, i.Path(), from, to, len(i.items))
	}
	w := newWriter()
	for _, c := range i.items[from:to] {
		w.WriteFrom(c)
	}
	data, err := w.Result()
	if err != nil {
		return nil, err
	}
	off := i.offset
	if from < len(i.items) {
		off = i.items[from].offset
	}
	res := New(ArrayOf(s.elem, to-from), WithArena(i.arena), WithParent(i.Parent()), WithOffset(off), WithName(i.name))
	if err := res.load(provider.NewWindow(provider.NewBuffer(data), off, int64(len(data)))); err != nil {
		return res, err
	}
	res.source = i.Source()
	return res, nil
}
