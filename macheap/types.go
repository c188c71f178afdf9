package macheap

import (
	"github.com/oy3o/ptypes"
)

// C scalar types of an LP64 process.
var (
	sizeT     = ptypes.Clone(ptypes.Uint64, ptypes.Named("size_t"))
	uintptrT  = ptypes.Clone(ptypes.Uint64, ptypes.Named("uintptr_t"))
	unsigned  = ptypes.Clone(ptypes.Uint32, ptypes.Named("unsigned"))
	integer   = ptypes.Clone(ptypes.Int32, ptypes.Named("int"))
	booleanT  = ptypes.Clone(ptypes.Uint32, ptypes.Named("boolean_t"))
	msizeT    = ptypes.Clone(ptypes.Uint16, ptypes.Named("msize_t"))
	voidStar  = ptypes.Clone(ptypes.PointerTo(ptypes.Undefined(0), 0), ptypes.Named("void*"))
	codeStar  = ptypes.Clone(ptypes.PointerTo(ptypes.Undefined(0), 0), ptypes.Named("code*"))
	pthreadKT = ptypes.Clone(ptypes.Uint64, ptypes.Named("pthread_key_t"))
)

// VMRange is vm_range_t.
var VMRange = register(ptypes.NewStruct("vm_range_t",
	ptypes.F("address", voidStar),
	ptypes.F("size", sizeT),
))

// MallocLock is _malloc_lock_s.
var MallocLock = register(ptypes.NewStruct("_malloc_lock_s",
	ptypes.F("osl_type", voidStar),
	ptypes.F("_osl_handoff_opaque", voidStar),
))
