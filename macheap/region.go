package macheap

import (
	"fmt"
	"iter"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/bitmap"
)

// TinyHeaderInusePair covers 32 quanta of a tiny region. A set header bit
// starts a chunk; the matching inuse bit tells whether it is allocated.
var TinyHeaderInusePair = register(ptypes.Clone(ptypes.NewStruct("tiny_header_inuse_pair_t",
	ptypes.F("header", ptypes.Uint32),
	ptypes.F("inuse", ptypes.Uint32),
), ptypes.Summarized(func(i *ptypes.Instance) string {
	h, err1 := i.Field("header")
	u, err2 := i.Field("inuse")
	if err1 != nil || err2 != nil {
		return "???"
	}
	return fmt.Sprintf("header=%032b inuse=%032b", h.Uint(), u.Uint())
})))

// TinyMetaData is the header/inuse bitmap of a tiny region, one pair per 32
// blocks.
var TinyMetaData = register(ptypes.Clone(
	ptypes.ArrayOf(TinyHeaderInusePair, ptypes.Roundup(NumTinyBlocks, 32)/32),
	ptypes.Named("tiny_meta_data"),
))

const (
	smallMSizeMask = 0x7fff
	smallFreeBit   = 0x8000
)

// smallMeta is one entry of a small region's metadata: the msize of the
// chunk starting at that quantum and a free bit.
var smallMeta = ptypes.Clone(msizeT, ptypes.Summarized(func(i *ptypes.Instance) string {
	v := i.Uint()
	res := fmt.Sprintf("msize=%d", v&smallMSizeMask)
	if v&smallFreeBit != 0 {
		res += " free"
	}
	return res
}))

// SmallMetaData holds the msize of every chunk start of a small region.
var SmallMetaData = register(ptypes.Clone(
	ptypes.ArrayOf(smallMeta, NumSmallBlocks),
	ptypes.Named("small_meta_data"),
))

func isSmall(meta *ptypes.Instance) bool {
	return meta.TypeName() == SmallMetaData.Name()
}

func smallEntry(meta *ptypes.Instance, index int) (msize int, free bool, err error) {
	e, err := meta.Item(index)
	if err != nil {
		return 0, false, err
	}
	v := e.Uint()
	return int(v & smallMSizeMask), v&smallFreeBit != 0, nil
}

// Chunk is a run of quanta described by a region's metadata.
type Chunk struct {
	Index int // first quantum
	MSize int // length in quanta
}

func aggregate(meta *ptypes.Instance, field string) (bitmap.Bitmap, error) {
	res := bitmap.Zero
	for _, pair := range meta.Items() {
		f, err := pair.Field(field)
		if err != nil {
			return bitmap.Zero, err
		}
		res = bitmap.Insert(res, bitmap.New(f.Uint(), 32))
	}
	return res, nil
}

// Header joins the header words of a tiny_meta_data. Bit n describes
// quantum n.
func Header(meta *ptypes.Instance) (bitmap.Bitmap, error) { return aggregate(meta, "header") }

// Inuse joins the inuse words of a tiny_meta_data.
func Inuse(meta *ptypes.Instance) (bitmap.Bitmap, error) { return aggregate(meta, "inuse") }

// Enumerate lists the chunks described by a tiny_meta_data or
// small_meta_data. Quanta of a tiny region before the first header bit are
// skipped with a warning.
func Enumerate(meta *ptypes.Instance) ([]Chunk, error) {
	if isSmall(meta) {
		return smallChunks(meta, 0, meta.Len())
	}
	return tinyChunks(meta, 0, -1)
}

// tinyChunks walks the header bitmap from quantum from until quantum to, or
// to its end when to is negative.
func tinyChunks(meta *ptypes.Instance, from, to int) ([]Chunk, error) {
	res, err := Header(meta)
	if err != nil {
		return nil, err
	}
	if to < 0 || to > res.Width() {
		to = res.Width()
	}
	if from > 0 {
		res, _ = bitmap.Consume(res, from)
	}
	var out []Chunk
	index := from
	for res.Width() > 1 && index < to {
		if b, _ := bitmap.Get(res, 0, 1); b.Uint64() == 0 {
			skip, err := bitmap.RunLength(res, false, 0)
			if err != nil {
				return out, err
			}
			log.Warnf(meta.Arena().Context(), "macheap: %s: %d quanta at index %d are not headed by a chunk", meta.Path(), skip, index)
			res, _ = bitmap.Consume(res, skip)
			index += skip
			if res.Width() <= 1 || index >= to {
				break
			}
		}
		run, err := bitmap.RunLength(res, false, 1)
		if err != nil {
			return out, err
		}
		msize := run + 1
		out = append(out, Chunk{Index: index, MSize: msize})
		res, _ = bitmap.Consume(res, msize)
		index += msize
	}
	return out, nil
}

// smallChunks follows the msize entries of a small region from quantum
// from until quantum to.
func smallChunks(meta *ptypes.Instance, from, to int) ([]Chunk, error) {
	to = min(to, meta.Len())
	var out []Chunk
	for index := from; index < to; {
		msize, _, err := smallEntry(meta, index)
		if err != nil {
			return out, err
		}
		if msize == 0 {
			log.Warnf(meta.Arena().Context(), "macheap: %s: chunk at index %d has no size", meta.Path(), index)
			break
		}
		out = append(out, Chunk{Index: index, MSize: msize})
		index += msize
	}
	return out, nil
}

// MSize returns the length in quanta of the chunk starting at index.
func MSize(meta *ptypes.Instance, index int) (int, error) {
	if isSmall(meta) {
		msize, _, err := smallEntry(meta, index)
		return msize, err
	}
	header, err := Header(meta)
	if err != nil {
		return 0, err
	}
	if err := chunkStart(header, index); err != nil {
		return 0, fmt.Errorf("macheap: %s: %w", meta.Path(), err)
	}
	run, err := bitmap.RunLength(header, false, index+1)
	if err != nil {
		return 0, err
	}
	return run + 1, nil
}

// Free reports whether the chunk starting at index is free.
func Free(meta *ptypes.Instance, index int) (bool, error) {
	if isSmall(meta) {
		_, free, err := smallEntry(meta, index)
		return free, err
	}
	header, err := Header(meta)
	if err != nil {
		return false, err
	}
	if err := chunkStart(header, index); err != nil {
		return false, fmt.Errorf("macheap: %s: %w", meta.Path(), err)
	}
	inuse, err := Inuse(meta)
	if err != nil {
		return false, err
	}
	b, err := bitmap.Get(inuse, index, 1)
	if err != nil {
		return false, err
	}
	return b.Uint64() == 0, nil
}

// Used lists the chunks of a region's metadata that lie in the part of the
// region a magazine has handed out: past mag_bytes_free_at_start and before
// the mag_bytes_free_at_end tail.
func Used(meta, mag *ptypes.Instance) ([]Chunk, error) {
	q := Quantum(meta)
	if isSmall(meta) {
		q = SmallQuantum
	}
	var v [3]uint64
	for k, name := range []string{"mag_bytes_free_at_start", "num_bytes_in_magazine", "mag_bytes_free_at_end"} {
		f, err := mag.Field(name)
		if err != nil {
			return nil, err
		}
		v[k] = f.Uint()
	}
	start := int(v[0]) / q
	end := (int(v[1]) - int(v[2])) / q
	if end < start {
		return nil, fmt.Errorf("%w: macheap: %s: used area ends at quantum %d before it starts at %d", ptypes.ErrRange, mag.Path(), end, start)
	}
	if isSmall(meta) {
		return smallChunks(meta, start, end)
	}
	return tinyChunks(meta, start, end)
}

// Partition splits the chunks returned by Used into busy and free ones.
func Partition(meta, mag *ptypes.Instance) (busy, free []Chunk, err error) {
	chunks, err := Used(meta, mag)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range chunks {
		isFree, err := Free(meta, c.Index)
		if err != nil {
			return busy, free, err
		}
		if isFree {
			free = append(free, c)
		} else {
			busy = append(busy, c)
		}
	}
	return busy, free, nil
}

func chunkStart(header bitmap.Bitmap, index int) error {
	b, err := bitmap.Get(header, index, 1)
	if err != nil {
		return err
	}
	if b.Uint64() == 0 {
		return fmt.Errorf("%w: no chunk starts at index %d", ptypes.ErrNotFound, index)
	}
	return nil
}

// containerOf is a pointer to a field at a fixed offset inside target; the
// address is adjusted back to the start of target.
func containerOf(target ptypes.Shape, offset func(p *ptypes.Instance) uint64) ptypes.Shape {
	return ptypes.ComputedPointer(target, 0,
		func(p *ptypes.Instance, v uint64) (uint64, error) {
			if v == 0 {
				return 0, nil
			}
			return v - offset(p), nil
		},
		func(p *ptypes.Instance, addr uint64) (uint64, error) {
			if addr == 0 {
				return 0, nil
			}
			return addr + offset(p), nil
		},
	)
}

// trailerOffset is offsetof(region_t, trailer).
func trailerOffset(p *ptypes.Instance) uint64 {
	q := Quantum(p)
	return uint64(regionBlocks(q) * q)
}

// RegionTrailer links a region into its magazine's recirculation list.
var RegionTrailer = register(ptypes.NewStruct("region_trailer_t",
	ptypes.F("entry", ListOf(ptypes.Clone(containerOf(ref("region_t"), trailerOffset), ptypes.Named("region_t*")))),
	ptypes.F("recirc_suitable", booleanT),
	ptypes.F("pinned_to_depot", integer),
	ptypes.F("bytes_used", unsigned),
	ptypes.F("mag_index", integer),
))

// Region is a tiny or small region, chosen by the quantum in effect.
var Region = register(ptypes.NewStruct("region_t",
	ptypes.F("blocks", ptypes.BlockFunc(func(i *ptypes.Instance) (int, error) {
		q := Quantum(i)
		return regionBlocks(q) * q, nil
	})),
	ptypes.F("trailer", RegionTrailer),
	ptypes.F("metadata", ptypes.Defer(func(owner *ptypes.Instance) (ptypes.Shape, error) {
		if Quantum(owner) == SmallQuantum {
			return SmallMetaData, nil
		}
		return TinyMetaData, nil
	})),
	ptypes.F("pad", ptypes.Align(PageMaxSize)),
))

// RegionHashGeneration is region_hash_generation_t, the hash table of a
// zone's regions.
var RegionHashGeneration = register(ptypes.NewStruct("region_hash_generation_t",
	ptypes.F("num_regions_allocated", sizeT),
	ptypes.F("num_regions_allocated_shift", sizeT),
	ptypes.F("hashed_regions", ptypes.PointerTo(
		ptypes.Clone(ptypes.ArrayFunc(ptypes.PointerTo(ref("region_t"), 0), hashedRegions), ptypes.Named("region_t*[]")),
		0,
	)),
	ptypes.F("nextgen", ptypes.PointerTo(ref("region_hash_generation_t"), 0)),
))

// hashedRegions reads num_regions_allocated from the structure holding the
// hashed_regions pointer.
func hashedRegions(arr *ptypes.Instance) (int, error) {
	n, err := uplevel(arr, 2, "num_regions_allocated")
	if err != nil {
		return 0, err
	}
	return bounded(arr, int(n.Uint()))
}

// Trailers yields trailer, a loaded region_trailer_t, and the trailers of
// the regions linked to it in the given direction.
func Trailers(trailer *ptypes.Instance, dir Direction, limit int) iter.Seq2[*ptypes.Instance, error] {
	return walk(trailer, "entry", dir, limit, func(link *ptypes.Instance) (*ptypes.Instance, error) {
		addr, err := link.Address()
		if err != nil {
			return nil, err
		}
		t := ptypes.New(RegionTrailer,
			ptypes.WithParent(link),
			ptypes.WithOffset(addr+int64(trailerOffset(link))),
			ptypes.WithName("*"+link.Name()),
		)
		return t, t.Load()
	})
}

// Generations yields gen, a loaded region_hash_generation_t, and the
// generations reached through nextgen until the chain returns to gen or
// ends.
func Generations(gen *ptypes.Instance, limit int) iter.Seq2[*ptypes.Instance, error] {
	return func(yield func(*ptypes.Instance, error) bool) {
		if limit < 0 {
			limit = gen.Arena().Config().MaxElements
		}
		start := gen.Offset()
		node := gen
		for n := 0; ; n++ {
			if n >= limit {
				yield(node, fmt.Errorf("%w: macheap: %s: more than %d generations", ptypes.ErrRange, gen.Path(), limit))
				return
			}
			if !yield(node, nil) {
				return
			}
			next, err := node.Field("nextgen")
			if err != nil {
				yield(nil, err)
				return
			}
			addr, err := next.Address()
			if err != nil {
				yield(nil, err)
				return
			}
			if addr == 0 || addr == start {
				return
			}
			if node, err = next.Follow(); err != nil {
				yield(node, err)
				return
			}
		}
	}
}

// HashedRegions returns the non-null region pointers of a generation's
// hashed_regions table, keyed by their index.
func HashedRegions(gen *ptypes.Instance) (map[int]*ptypes.Instance, error) {
	p, err := gen.Field("hashed_regions")
	if err != nil {
		return nil, err
	}
	if addr, err := p.Address(); err != nil || addr == 0 {
		return nil, err
	}
	table, err := p.Follow()
	if err != nil {
		return nil, err
	}
	out := map[int]*ptypes.Instance{}
	for k, e := range table.Items() {
		addr, err := e.Address()
		if err != nil {
			return out, err
		}
		if addr != 0 {
			out[k] = e
		}
	}
	return out, nil
}
