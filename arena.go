package ptypes

import (
	"context"
)

// Handle identifies an instance within its arena.
type Handle int32

// NoHandle is the parent handle of a root instance.
const NoHandle Handle = -1

// Arena owns a tree of instances. Parents are referred to by handle, so a
// child never keeps its parent alive on its own: dropping the arena drops
// the whole tree. Handles of children dropped by a reload, and of scratch
// instances built to measure a shape, are reused. An arena is not safe for
// concurrent use; independent arenas may be used from different goroutines.
type Arena struct {
	ctx   context.Context
	cfg   Config
	nodes []*Instance
	free  []Handle
	gen   uint64
}

// NewArena returns an empty arena. A nil cfg selects Default.
func NewArena(ctx context.Context, cfg *Config) *Arena {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &Arena{ctx: ctx, cfg: Default}
	if cfg != nil {
		a.cfg = *cfg
	}
	if a.cfg.ByteOrder == nil {
		a.cfg.ByteOrder = Default.ByteOrder
	}
	if a.cfg.PointerSize <= 0 {
		a.cfg.PointerSize = Default.PointerSize
	}
	if a.cfg.MaxElements <= 0 {
		a.cfg.MaxElements = Default.MaxElements
	}
	return a
}

// Context returns the context used for logging.
func (a *Arena) Context() context.Context { return a.ctx }

// Config returns the arena's configuration.
func (a *Arena) Config() *Config { return &a.cfg }

// Len is the number of live instances in the arena.
func (a *Arena) Len() int { return len(a.nodes) - len(a.free) }

// Get returns the instance for h, or nil.
func (a *Arena) Get(h Handle) *Instance {
	if h < 0 || int(h) >= len(a.nodes) {
		return nil
	}
	return a.nodes[h]
}

// New creates a root instance in the arena.
func (a *Arena) New(s Shape, opts ...Option) *Instance {
	return New(s, append([]Option{WithArena(a)}, opts...)...)
}

func (a *Arena) add(i *Instance) *Instance {
	a.gen++
	i.arena, i.gen = a, a.gen
	if n := len(a.free); n > 0 {
		i.id = a.free[n-1]
		a.free = a.free[:n-1]
		a.nodes[i.id] = i
		return i
	}
	i.id = Handle(len(a.nodes))
	a.nodes = append(a.nodes, i)
	return i
}

// release returns the handles of i and its children to the arena. A
// released instance stays usable through existing references, but
// instances that named it as parent no longer navigate to it.
func (a *Arena) release(i *Instance) {
	if i == nil || i.arena != a || a.Get(i.id) != i {
		return
	}
	for _, c := range i.items {
		a.release(c)
	}
	a.nodes[i.id] = nil
	a.free = append(a.free, i.id)
}
