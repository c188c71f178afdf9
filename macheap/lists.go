package macheap

import (
	"fmt"
	"iter"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/codecs"
)

// PtrUnion is a free list link to target. The stored value is checksummed
// with the cookie of the enclosing szone_t, or with the "cookie" attribute
// when the chunk is decoded on its own.
func PtrUnion(target ptypes.Shape) ptypes.Shape {
	return ptypes.Clone(ptypes.PointerTo(target, 0),
		ptypes.Encoding(codecs.PtrUnion{Cookie: zoneCookie}),
		ptypes.Named("ptr_union<"+target.Name()+">"),
	)
}

func zoneCookie(owner *ptypes.Instance) (uint64, error) {
	if z, err := owner.AncestorNamed("szone_t"); err == nil {
		if c, err := z.Field("cookie"); err == nil && c.Initialized() {
			return c.Uint(), nil
		}
	}
	return owner.AttrUint(codecs.CookieAttr, 0), nil
}

// ListOf is list_t with links of the given shape.
func ListOf(link ptypes.Shape) ptypes.Shape {
	return ptypes.Clone(ptypes.NewStruct("list_t",
		ptypes.F("previous", link),
		ptypes.F("next", link),
	), ptypes.Summarized(func(i *ptypes.Instance) string {
		prev, err1 := i.Field("previous")
		next, err2 := i.Field("next")
		if err1 != nil || err2 != nil {
			return "???"
		}
		return fmt.Sprintf("previous=%s next=%s", prev.Summary(), next.Summary())
	}))
}

// FreeChunk is a free tiny or small chunk: its list links, its size in
// quanta, the unused body and the trailing copy of the size.
var FreeChunk = register(ptypes.NewStruct("free_chunk",
	ptypes.F("header", ListOf(PtrUnion(ref("free_chunk")))),
	ptypes.F("size", msizeT),
	ptypes.F("block", ptypes.BlockFunc(freeChunkBody)),
	ptypes.F("end_size", msizeT),
))

// freeChunkBody sizes the block between the size fields from the chunk's
// msize and the quantum of its region.
func freeChunkBody(i *ptypes.Instance) (int, error) {
	header, err := uplevel(i, 1, "header")
	if err != nil {
		return 0, err
	}
	size, err := uplevel(i, 1, "size")
	if err != nil {
		return 0, err
	}
	msize := int(size.Uint()) + 1
	n := msize*Quantum(i) - (header.Size() + 2*size.Size())
	return max(n, 0), nil
}

// FreeList is free_list_t, a magazine's head pointer for one size class.
var FreeList = register(ptypes.Clone(ptypes.PointerTo(ref("free_chunk"), 0), ptypes.Named("free_list_t")))

// Direction selects the list_t link a walk follows.
type Direction int

const (
	Forward  Direction = iota // along next
	Backward                  // along previous
)

func (d Direction) String() string {
	if d == Backward {
		return "previous"
	}
	return "next"
}

// Next follows the next link of a loaded free_chunk. It returns nil at the
// end of the list.
func Next(chunk *ptypes.Instance) (*ptypes.Instance, error) {
	return step(chunk, "header", Forward, followLink)
}

// Previous follows the previous link of a loaded free_chunk. It returns nil
// at the start of the list.
func Previous(chunk *ptypes.Instance) (*ptypes.Instance, error) {
	return step(chunk, "header", Backward, followLink)
}

func followLink(link *ptypes.Instance) (*ptypes.Instance, error) { return link.Follow() }

// step reads the dir link of the list_t at list inside node and loads the
// node it points at with load. A null link yields nil.
func step(node *ptypes.Instance, list string, dir Direction, load func(link *ptypes.Instance) (*ptypes.Instance, error)) (*ptypes.Instance, error) {
	link, err := node.Lookup(list + "." + dir.String())
	if err != nil {
		return nil, err
	}
	addr, err := link.Address()
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, nil
	}
	return load(link)
}

// walk yields first and every node reached from it through the list_t at
// list. It stops after limit nodes so that a corrupt cycle cannot loop
// forever; a negative limit uses the arena's element bound.
func walk(first *ptypes.Instance, list string, dir Direction, limit int, load func(link *ptypes.Instance) (*ptypes.Instance, error)) iter.Seq2[*ptypes.Instance, error] {
	return func(yield func(*ptypes.Instance, error) bool) {
		if limit < 0 {
			limit = first.Arena().Config().MaxElements
		}
		node := first
		for n := 0; node != nil; n++ {
			if n >= limit {
				yield(node, fmt.Errorf("%w: macheap: %s: list longer than %d", ptypes.ErrRange, first.Path(), limit))
				return
			}
			if !yield(node, nil) {
				return
			}
			next, err := step(node, list, dir, load)
			if err != nil {
				yield(next, err)
				return
			}
			node = next
		}
	}
}

// Walk yields chunk, a loaded free_chunk, and then every chunk linked to it
// in the given direction.
func Walk(chunk *ptypes.Instance, dir Direction, limit int) iter.Seq2[*ptypes.Instance, error] {
	return walk(chunk, "header", dir, limit, followLink)
}

// Chain walks a free list from head, a free_list_t or ptr_union, yielding
// each loaded chunk.
func Chain(head *ptypes.Instance, dir Direction, limit int) iter.Seq2[*ptypes.Instance, error] {
	return func(yield func(*ptypes.Instance, error) bool) {
		addr, err := head.Address()
		if err != nil {
			yield(nil, err)
			return
		}
		if addr == 0 {
			return
		}
		chunk, err := head.Follow()
		if err != nil {
			yield(chunk, err)
			return
		}
		for c, err := range Walk(chunk, dir, limit) {
			if !yield(c, err) {
				return
			}
		}
	}
}

// Slot returns the entry of a magazine's mag_free_list that holds free
// chunks of size bytes.
func Slot(lists *ptypes.Instance, size int) (*ptypes.Instance, error) {
	q := Quantum(lists)
	msize := max((size+q-1)/q, 1)
	return lists.Item(msize - 1)
}
