package macheap

import (
	"fmt"
	"strings"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/bitmap"
)

// FreeListSlots is the number of size classes a magazine keeps free lists
// for.
const FreeListSlots = 256

// lastFree packs the address of the most recently freed chunk with its
// msize in the low bits, below the quantum.
var lastFree = ptypes.Clone(ptypes.ComputedPointer(
	ptypes.Defer(func(p *ptypes.Instance) (ptypes.Shape, error) {
		_, msize, err := LastFree(p)
		if err != nil {
			return nil, err
		}
		return ptypes.Block(msize * Quantum(p)), nil
	}),
	0,
	func(p *ptypes.Instance, v uint64) (uint64, error) {
		return v &^ uint64(Quantum(p)-1), nil
	},
	func(p *ptypes.Instance, addr uint64) (uint64, error) {
		var msize uint64
		if p.Initialized() {
			v, err := p.Decode()
			if err != nil {
				return 0, err
			}
			msize = v & uint64(Quantum(p)-1)
		}
		return addr&^uint64(Quantum(p)-1) | msize, nil
	},
), ptypes.Named("mag_last_free_t"))

// LastFree splits a magazine's mag_last_free into the chunk address and its
// msize.
func LastFree(p *ptypes.Instance) (addr int64, msize int, err error) {
	v, err := p.Decode()
	if err != nil {
		return 0, 0, err
	}
	q := uint64(Quantum(p))
	return int64(v &^ (q - 1)), int(v & (q - 1)), nil
}

// Magazine is magazine_t, the per-CPU allocation state of tiny or small
// regions.
var Magazine = register(ptypes.NewStruct("magazine_t",
	ptypes.F("magazine_lock", MallocLock),
	ptypes.F("alloc_underway", booleanT),
	ptypes.F("padding1", ptypes.Padding(4)),
	ptypes.F("mag_last_free", lastFree),
	ptypes.F("mag_last_free_rgn", ptypes.PointerTo(ref("region_t"), 0)),
	ptypes.F("mag_free_list", ptypes.ArrayOf(FreeList, FreeListSlots)),
	ptypes.F("mag_bitmap", ptypes.Clone(ptypes.ArrayOf(unsigned, FreeListSlots/32), ptypes.Summarized(bitmapSummary))),
	ptypes.F("mag_bytes_free_at_end", sizeT),
	ptypes.F("mag_bytes_free_at_start", sizeT),
	ptypes.F("mag_last_region", ptypes.PointerTo(ref("region_t"), 0)),
	ptypes.F("mag_num_objects", sizeT),
	ptypes.F("mag_num_bytes_in_objects", sizeT),
	ptypes.F("num_bytes_in_magazine", sizeT),
	ptypes.F("recirculation_entries", unsigned),
	ptypes.F("padding2", ptypes.Padding(4)),
	ptypes.F("firstNode", ptypes.PointerTo(RegionTrailer, 0)),
	ptypes.F("lastNode", ptypes.PointerTo(RegionTrailer, 0)),
	ptypes.F("pad", ptypes.ArrayOf(uintptrT, 50-CacheLine/8)),
))

func bitmapSummary(i *ptypes.Instance) string {
	var b strings.Builder
	for _, w := range i.Items() {
		for k := range 32 {
			if w.Uint()>>k&1 != 0 {
				b.WriteByte('X')
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}

// MagBitmap joins the mag_bitmap words of a magazine. Bit n is set when the
// free list for slot n is not empty.
func MagBitmap(mag *ptypes.Instance) (bitmap.Bitmap, error) {
	words, err := mag.Field("mag_bitmap")
	if err != nil {
		return bitmap.Zero, err
	}
	res := bitmap.Zero
	for _, w := range words.Items() {
		res = bitmap.Insert(res, bitmap.New(w.Uint(), 32))
	}
	return res, nil
}

// FreeSlots returns the free list heads whose bit is set in mag_bitmap,
// keyed by slot.
func FreeSlots(mag *ptypes.Instance) (map[int]*ptypes.Instance, error) {
	bits, err := MagBitmap(mag)
	if err != nil {
		return nil, err
	}
	lists, err := mag.Field("mag_free_list")
	if err != nil {
		return nil, err
	}
	out := map[int]*ptypes.Instance{}
	slot := 0
	for set := range bitmap.Iterate(bitmap.Reverse(bits)) {
		if set {
			head, err := lists.Item(slot)
			if err != nil {
				return out, err
			}
			out[slot] = head
		}
		slot++
	}
	return out, nil
}

// magazineSize is sizeof(magazine_t) under the configuration of p.
func magazineSize(p *ptypes.Instance) (uint64, error) {
	a := ptypes.NewArena(p.Arena().Context(), p.Arena().Config())
	n, err := a.New(Magazine).Blocksize()
	return uint64(n), err
}

// magazines is the magazine array of a szone_t. The stored pointer skips
// the depot magazine at index -1, so the array starts one magazine earlier
// and holds count+1 entries.
func magazines(countField string, quantum int) ptypes.Shape {
	arr := ptypes.Clone(ptypes.ArrayFunc(Magazine, func(arr *ptypes.Instance) (int, error) {
		n, err := uplevel(arr, 2, countField)
		if err != nil {
			return 0, err
		}
		if n.Int() < 0 {
			return 0, fmt.Errorf("%w: macheap: %s = %d", ptypes.ErrRange, countField, n.Int())
		}
		return bounded(arr, int(n.Int())+1)
	}), ptypes.Named("magazine_t[]"))
	p := ptypes.ComputedPointer(arr, 0,
		func(p *ptypes.Instance, v uint64) (uint64, error) {
			if v == 0 {
				return 0, nil
			}
			size, err := magazineSize(p)
			return v - size, err
		},
		func(p *ptypes.Instance, addr uint64) (uint64, error) {
			size, err := magazineSize(p)
			return addr + size, err
		},
	)
	return ptypes.Clone(p, ptypes.Recurse(QuantumAttr, quantum), ptypes.Named("magazine_t*"))
}
