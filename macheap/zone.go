package macheap

import (
	"github.com/oy3o/ptypes"
)

// LargeEntry is large_entry_t, one allocation served directly by the VM
// system.
var LargeEntry = register(ptypes.NewStruct("large_entry_t",
	ptypes.F("address", ptypes.PointerTo(ptypes.BlockFunc(func(b *ptypes.Instance) (int, error) {
		size, err := uplevel(b, 2, "size")
		if err != nil {
			return 0, err
		}
		return int(size.Uint()), nil
	}), 0)),
	ptypes.F("size", sizeT),
	ptypes.F("did_madvise_reusable", booleanT),
	ptypes.F("padding", ptypes.Padding(4)),
))

// MallocZone is malloc_zone_t, the function table every zone starts with.
var MallocZone = register(ptypes.NewStruct("malloc_zone_t",
	ptypes.F("reserved1", voidStar),
	ptypes.F("reserved2", voidStar),
	ptypes.F("size", codeStar),
	ptypes.F("malloc", codeStar),
	ptypes.F("calloc", codeStar),
	ptypes.F("valloc", codeStar),
	ptypes.F("free", codeStar),
	ptypes.F("realloc", codeStar),
	ptypes.F("destroy", codeStar),
	ptypes.F("zone_name", ptypes.PointerTo(ptypes.CString, 0)),
	ptypes.F("batch_malloc", codeStar),
	ptypes.F("batch_free", codeStar),
	ptypes.F("introspect", voidStar),
	ptypes.F("version", unsigned),
	ptypes.F("padding", ptypes.Padding(4)),
	ptypes.F("memalign", codeStar),
	ptypes.F("free_definite_size", codeStar),
	ptypes.F("pressure_relief", codeStar),
))

// DebugFlags is the debug_flags word of a szone_t, most significant bit
// first.
var DebugFlags = register(ptypes.NewPartial(ptypes.NewFlags("szone_debug_flags",
	ptypes.F("CHECK_REGIONS", ptypes.NewBits(1)),
	ptypes.F("DISABLE_ASLR", ptypes.NewBits(1)),
	ptypes.F("RESERVED", ptypes.NewBits(23)),
	ptypes.F("ABORT_ON_CORRUPTION", ptypes.NewBits(1)),
	ptypes.F("PURGEABLE", ptypes.NewBits(1)),
	ptypes.F("ABORT_ON_ERROR", ptypes.NewBits(1)),
	ptypes.F("DO_SCRIBBLE", ptypes.NewBits(1)),
	ptypes.F("DONT_PROTECT_POSTLUDE", ptypes.NewBits(1)),
	ptypes.F("DONT_PROTECT_PRELUDE", ptypes.NewBits(1)),
	ptypes.F("ADD_GUARD_PAGES", ptypes.NewBits(1)),
), ptypes.LittleBits))

func regionPointers(quantum int) ptypes.Shape {
	return ptypes.Clone(ptypes.ArrayOf(ptypes.PointerTo(ref("region_t"), 0), 64), ptypes.Recurse(QuantumAttr, quantum))
}

func hashGenerations(quantum int) ptypes.Shape {
	return ptypes.Clone(ptypes.ArrayOf(RegionHashGeneration, 2), ptypes.Recurse(QuantumAttr, quantum))
}

func hashGeneration(quantum int) ptypes.Shape {
	return ptypes.Clone(ptypes.PointerTo(RegionHashGeneration, 0), ptypes.Recurse(QuantumAttr, quantum))
}

// Szone is szone_t, the scalable zone. Its cookie seeds the checksums of
// every free list link reached from it.
var Szone = Zones.Register(SzoneVersion, register(ptypes.NewStruct("szone_t",
	ptypes.F("cpu_id_key", pthreadKT),
	ptypes.F("debug_flags", DebugFlags),
	ptypes.F("padding1", ptypes.Padding(4)),
	ptypes.F("log_address", voidStar),
	ptypes.F("reserved_1018", ptypes.Block(0x68)),

	ptypes.F("tiny_regions_lock", MallocLock),
	ptypes.F("num_tiny_regions", sizeT),
	ptypes.F("num_tiny_regions_dealloc", sizeT),
	ptypes.F("tiny_region_generation", hashGeneration(TinyQuantum)),
	ptypes.F("trg", hashGenerations(TinyQuantum)),
	ptypes.F("num_tiny_magazines", integer),
	ptypes.F("num_tiny_magazines_mask", unsigned),
	ptypes.F("num_tiny_magazines_mask_shift", sizeT),
	ptypes.F("tiny_magazines", magazines("num_tiny_magazines", TinyQuantum)),
	ptypes.F("last_tiny_advise", uintptrT),
	ptypes.F("reserved_1108", ptypes.Block(0x78)),

	ptypes.F("small_regions_lock", MallocLock),
	ptypes.F("num_small_regions", sizeT),
	ptypes.F("num_small_regions_dealloc", sizeT),
	ptypes.F("small_region_generation", hashGeneration(SmallQuantum)),
	ptypes.F("srg", hashGenerations(SmallQuantum)),
	ptypes.F("num_small_slots", unsigned),
	ptypes.F("num_small_magazines", integer),
	ptypes.F("num_small_magazines_mask", unsigned),
	ptypes.F("num_small_magazines_mask_shift", integer),
	ptypes.F("small_magazines", magazines("num_small_magazines", SmallQuantum)),
	ptypes.F("last_small_advise", uintptrT),

	ptypes.F("large_szone_lock", MallocLock),
	ptypes.F("num_large_objects_in_use", unsigned),
	ptypes.F("num_large_entries", unsigned),
	ptypes.F("large_entries", ptypes.PointerTo(ptypes.Clone(ptypes.ArrayFunc(LargeEntry, func(arr *ptypes.Instance) (int, error) {
		n, err := uplevel(arr, 2, "num_large_entries")
		if err != nil {
			return 0, err
		}
		return bounded(arr, int(n.Uint()))
	}), ptypes.Named("large_entry_t[]")), 0)),
	ptypes.F("num_bytes_in_large_objects", sizeT),
	ptypes.F("large_entry_cache_newest", integer),
	ptypes.F("large_entry_cache_oldest", integer),
	ptypes.F("large_entry_cache", ptypes.ArrayOf(LargeEntry, LargeEntryCacheSize)),
	ptypes.F("large_legacy_reset_mprotect", booleanT),
	ptypes.F("padding2", ptypes.Padding(4)),
	ptypes.F("large_entry_cache_reserve_bytes", sizeT),
	ptypes.F("large_entry_cache_reserve_limit", sizeT),
	ptypes.F("large_entry_cache_bytes", sizeT),

	ptypes.F("is_largemem", booleanT),
	ptypes.F("large_threshold", unsigned),
	ptypes.F("vm_copy_threshold", unsigned),
	ptypes.F("padding3", ptypes.Padding(4)),
	ptypes.F("cookie", uintptrT),

	ptypes.F("initial_tiny_regions", regionPointers(TinyQuantum)),
	ptypes.F("initial_small_regions", regionPointers(SmallQuantum)),
	ptypes.F("helper_zone", ptypes.PointerTo(ref("szone_t"), 0)),
	ptypes.F("flotsam_enabled", booleanT),
)))

// Zone is zone_t: the basic zone padded to a page, followed by the
// structure its version selects.
var Zone = register(ptypes.NewStruct("zone_t",
	ptypes.F("basic_zone", MallocZone),
	ptypes.F("pad", ptypes.BlockFunc(func(b *ptypes.Instance) (int, error) {
		basic, err := uplevel(b, 1, "basic_zone")
		if err != nil {
			return 0, err
		}
		return max(PageMaxSize-basic.Size(), 0), nil
	})),
	ptypes.F("complex_zone", Zones.Select(func(z *ptypes.Instance) (uint64, error) {
		v, err := z.Lookup("basic_zone.version")
		if err != nil {
			return 0, err
		}
		return v.Uint(), nil
	})),
))

// MallocZones is the process's malloc_zones array, terminated by a null
// entry.
var MallocZones = register(ptypes.Clone(ptypes.Terminated(ptypes.PointerTo(Zone, 0), func(e *ptypes.Instance) bool {
	return e.Uint() == 0
}), ptypes.Named("malloc_zones")))

// ZoneName reads the name of a loaded zone_t or malloc_zone_t.
func ZoneName(zone *ptypes.Instance) (string, error) {
	p, err := zone.Lookup("zone_name")
	if err != nil {
		if p, err = zone.Lookup("basic_zone.zone_name"); err != nil {
			return "", err
		}
	}
	s, err := p.Follow()
	if err != nil {
		return "", err
	}
	b := s.Bytes()
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}
