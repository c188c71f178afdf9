// Package macheap describes the data structures of the macOS libmalloc
// scalable zone: the zone header, magazines, tiny and small regions and the
// checksummed free lists that link their chunks together.
//
// Every shape is registered by its C type name in Types, so tools can decode
// a structure by name:
//
//	s, _ := macheap.Types.Lookup("szone_t")
//	z := ptypes.New(s, ptypes.WithSource(mem), ptypes.WithOffset(addr))
//	err := z.Load()
//
// The layouts assume an LP64 process, which the default ptypes configuration
// already describes.
package macheap

import (
	"fmt"
	"slices"

	"github.com/oy3o/ptypes"
)

const (
	PageMaxSize         = 4096
	CacheLine           = 32
	TinyMaxMagazines    = 32
	LargeEntryCacheSize = 16

	ShiftTinyQuantum  = 4
	TinyQuantum       = 1 << ShiftTinyQuantum
	ShiftSmallQuantum = 9
	SmallQuantum      = 1 << ShiftSmallQuantum

	// NumTinyBlocks and NumSmallBlocks are the quanta a region holds ahead
	// of its trailer.
	NumTinyBlocks  = 64520
	NumSmallBlocks = 16320

	// SzoneVersion is the malloc_zone_t version of a scalable zone.
	SzoneVersion = 8
)

// QuantumAttr is the recursive attribute holding the allocation quantum of
// the region kind being decoded. Tiny is assumed when it is missing.
const QuantumAttr = "QUANTUM"

// Types maps C type names to shapes.
var Types = ptypes.NewRegistry[string]("macheap", nil)

// Zones maps malloc_zone_t versions to the zone structure that follows the
// basic zone.
var Zones = ptypes.NewRegistry[uint64]("zone_type", ptypes.Block(0))

func register(s ptypes.Shape) ptypes.Shape {
	return Types.Register(s.Name(), s)
}

// ref names a registered shape before it exists, for self-referential and
// forward-declared structures.
func ref(name string) ptypes.Shape {
	return ptypes.Clone(ptypes.Defer(func(*ptypes.Instance) (ptypes.Shape, error) {
		return Types.Lookup(name)
	}), ptypes.Named(name))
}

// Names returns the registered type names in order.
func Names() []string {
	var out []string
	Types.Range(func(name string, _ ptypes.Shape) bool {
		out = append(out, name)
		return true
	})
	slices.Sort(out)
	return out
}

// Quantum is the allocation quantum in effect for i.
func Quantum(i *ptypes.Instance) int {
	return int(i.AttrUint(QuantumAttr, TinyQuantum))
}

// regionBlocks is the number of quanta in a region of the given quantum.
func regionBlocks(quantum int) int {
	if quantum == SmallQuantum {
		return NumSmallBlocks
	}
	return NumTinyBlocks
}

// bounded rejects counts read from a corrupt heap before an array of that
// many elements is built.
func bounded(i *ptypes.Instance, n int) (int, error) {
	limit := ptypes.Default.MaxElements
	if a := i.Arena(); a != nil {
		limit = a.Config().MaxElements
	}
	if n > limit {
		return 0, fmt.Errorf("%w: macheap: %s: count %d exceeds %d", ptypes.ErrRange, i.Path(), n, limit)
	}
	return n, nil
}

// uplevel returns the field name of the structure n levels above i.
func uplevel(i *ptypes.Instance, n int, name string) (*ptypes.Instance, error) {
	p := i
	for range n {
		if p = p.Parent(); p == nil {
			return nil, fmt.Errorf("%w: macheap: %s has no parent", ptypes.ErrNotFound, i.Path())
		}
	}
	return p.Field(name)
}
