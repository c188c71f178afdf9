package ptypes

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/provider"
)

// State tracks the lifecycle of an instance.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StatePartial
	StateInitialized
	StateFailed
)

var stateNames = [...]string{"empty", "loading", "partial", "initialized", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Instance is a shape bound to a location: a provider, an offset and a
// position in an arena's tree.
type Instance struct {
	arena  *Arena
	id     Handle
	parent Handle
	gen    uint64 // assigned by the arena
	pgen   uint64 // gen of the parent when attached

	shape  Shape
	name   string
	offset int64
	bitpos int // bit position within the enclosing partial's payload
	source provider.Provider

	attrs   map[string]any
	recurse map[string]any
	state   State
	issues  []error

	data    []byte        // atoms, unions and partials
	bits    bitmap.Bitmap // bit atoms
	items   []*Instance
	index   map[string]int
	decoded *Instance // cached object of an Encoded

	writeThrough bool
}

// Option configures an instance at creation or before an I/O operation.
type Option func(*Instance)

// WithSource sets the provider of the instance and, by inheritance, of its
// descendants.
func WithSource(p provider.Provider) Option { return func(i *Instance) { i.source = p } }

// WithOffset sets the byte offset of the instance.
func WithOffset(off int64) Option { return func(i *Instance) { i.offset = off } }

// WithName sets the instance name used in paths.
func WithName(name string) Option { return func(i *Instance) { i.name = name } }

// WithArena places a new instance in an existing arena. Ignored after creation.
func WithArena(a *Arena) Option {
	return func(i *Instance) {
		if i.id == NoHandle && i.arena == nil {
			i.arena = a
		}
	}
}

// WithParent attaches a new instance under p for navigation, without making
// it one of p's children. Ignored after creation.
func WithParent(p *Instance) Option {
	return func(i *Instance) {
		if i.id == NoHandle && p != nil {
			i.arena, i.parent, i.pgen = p.arena, p.id, p.gen
		}
	}
}

// WithAttr sets an attribute visible to this instance only.
func WithAttr(key string, value any) Option {
	return func(i *Instance) {
		if i.attrs == nil {
			i.attrs = map[string]any{}
		}
		i.attrs[key] = value
	}
}

// WithRecurse sets an attribute visible to this instance and its descendants.
func WithRecurse(key string, value any) Option {
	return func(i *Instance) {
		if i.recurse == nil {
			i.recurse = map[string]any{}
		}
		i.recurse[key] = value
	}
}

// WithContext sets the logging context. When given at creation without an
// arena, the new arena uses it.
func WithContext(ctx context.Context) Option {
	return func(i *Instance) {
		if i.arena == nil {
			i.arena = NewArena(ctx, nil)
		} else {
			i.arena.ctx = ctx
		}
	}
}

// New creates an unloaded instance of s. Without WithArena or WithParent a
// fresh arena using Default is created.
func New(s Shape, opts ...Option) *Instance {
	i := &Instance{id: NoHandle, parent: NoHandle, shape: s}
	for _, o := range opts {
		o(i)
	}
	if i.arena == nil {
		i.arena = NewArena(context.Background(), nil)
	}
	if !i.Parent().holdsBits() {
		i.shape = byteShape(s, i.cfg().BitOrder)
	}
	i.inherit()
	i.arena.add(i)
	if i.name == "" {
		i.name = i.shape.Name()
	}
	return i
}

func (i *Instance) inherit() {
	if r := i.shape.base().recurse; len(r) > 0 {
		m := maps.Clone(r)
		maps.Copy(m, i.recurse)
		i.recurse = m
	}
}

func (i *Instance) apply(opts []Option) {
	for _, o := range opts {
		o(i)
	}
}

func (i *Instance) newChild(s Shape, name string, off int64) *Instance {
	c := &Instance{parent: i.id, pgen: i.gen, shape: s, name: name, offset: off}
	if i.inBitDomain() {
		c.bitpos = i.bitpos
	}
	c.inherit()
	return i.arena.add(c)
}

func (i *Instance) addChild(c *Instance) {
	if i.index == nil {
		i.index = map[string]int{}
	}
	i.index[c.name] = len(i.items)
	i.items = append(i.items, c)
}

func (i *Instance) reset() {
	for _, c := range i.items {
		i.arena.release(c)
	}
	i.items, i.index, i.decoded = nil, nil, nil
	i.issues = nil
}

func (i *Instance) ctx() context.Context { return i.arena.ctx }
func (i *Instance) cfg() *Config         { return &i.arena.cfg }

// Arena returns the arena owning the instance.
func (i *Instance) Arena() *Arena { return i.arena }

// Shape returns the resolved shape.
func (i *Instance) Shape() Shape { return i.shape }

// Kind is the kind of the instance's shape.
func (i *Instance) Kind() Kind { return i.shape.Kind() }

// TypeName is the name of the instance's shape.
func (i *Instance) TypeName() string { return i.shape.Name() }

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Initialized reports whether the instance holds all of its bytes.
func (i *Instance) Initialized() bool { return i.state == StateInitialized }

// Offset returns the byte offset. Bit nodes report the byte holding their
// first bit.
func (i *Instance) Offset() int64 {
	if i.inBitDomain() {
		return i.offset + int64(i.bitpos/8)
	}
	return i.offset
}

// BitOffset is the position of a bit node within its partial's payload.
func (i *Instance) BitOffset() int { return i.bitpos }

// Source returns the provider of the instance or of its nearest ancestor
// that has one.
func (i *Instance) Source() provider.Provider {
	for n := i; n != nil; n = n.Parent() {
		if n.source != nil {
			return n.source
		}
	}
	return nil
}

// Parent returns the navigational parent, or nil for a root.
func (i *Instance) Parent() *Instance {
	if i == nil || i.arena == nil {
		return nil
	}
	if p := i.arena.Get(i.parent); p != nil && p.gen == i.pgen {
		return p
	}
	return nil
}

// Root returns the topmost ancestor.
func (i *Instance) Root() *Instance {
	n := i
	for p := n.Parent(); p != nil; p = n.Parent() {
		n = p
	}
	return n
}

// Ancestor returns the nearest ancestor (excluding i) satisfying fn.
func (i *Instance) Ancestor(fn func(*Instance) bool) *Instance {
	for p := i.Parent(); p != nil; p = p.Parent() {
		if fn(p) {
			return p
		}
	}
	return nil
}

// AncestorNamed returns the nearest ancestor whose shape is named typeName.
func (i *Instance) AncestorNamed(typeName string) (*Instance, error) {
	p := i.Ancestor(func(p *Instance) bool { return p.shape.Name() == typeName })
	if p == nil {
		return nil, fmt.Errorf("%w: %s has no ancestor of type %s", ErrNotFound, i.Path(), typeName)
	}
	return p, nil
}

// Path joins the names from the root down to i.
func (i *Instance) Path() string {
	if i == nil {
		return "<nil>"
	}
	var names []string
	for n := i; n != nil; n = n.Parent() {
		names = append(names, n.name)
	}
	slices.Reverse(names)
	return strings.Join(names, ".")
}

// Attr looks key up on the instance, then on the recursive attributes of
// the instance and its ancestors.
func (i *Instance) Attr(key string) (any, bool) {
	if v, ok := i.attrs[key]; ok {
		return v, true
	}
	for n := i; n != nil; n = n.Parent() {
		if v, ok := n.recurse[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// AttrUint returns a numeric attribute, or def when missing.
func (i *Instance) AttrUint(key string, def uint64) uint64 {
	v, ok := i.Attr(key)
	if !ok {
		return def
	}
	switch v := v.(type) {
	case int:
		return uint64(v)
	case int64:
		return uint64(v)
	case uint64:
		return v
	case uint32:
		return uint64(v)
	}
	return def
}

// SetAttr sets an attribute; recurse makes it visible to descendants.
func (i *Instance) SetAttr(key string, value any, recurse bool) {
	if recurse {
		WithRecurse(key, value)(i)
		return
	}
	WithAttr(key, value)(i)
}

// Flag records a non-fatal problem found on the instance and logs it.
func (i *Instance) Flag(err error) {
	i.issues = append(i.issues, err)
	log.Warnf(i.ctx(), "%v", err)
}

// Issues returns the problems recorded on the instance itself.
func (i *Instance) Issues() []error { return i.issues }

// AllIssues returns the problems recorded on i and its descendants.
func (i *Instance) AllIssues() []error {
	var out []error
	i.Walk(func(n *Instance) bool {
		out = append(out, n.issues...)
		return true
	})
	return out
}

// Walk visits i and its descendants depth first until fn returns false.
func (i *Instance) Walk(fn func(*Instance) bool) bool {
	if !fn(i) {
		return false
	}
	for _, c := range i.items {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// ByteOrder is the order used by the instance's integer encoding.
func (i *Instance) ByteOrder() binary.ByteOrder {
	switch s := i.shape.(type) {
	case *Atom:
		if s.order != nil {
			return s.order
		}
	case *Pointer:
		if s.order != nil {
			return s.order
		}
	}
	return i.cfg().ByteOrder
}

func (i *Instance) inBitDomain() bool {
	return i != nil && isBitShape(i.shape)
}

// partial returns the Partial enclosing a bit node.
func (i *Instance) partial() *Instance {
	for n := i; n != nil; n = n.Parent() {
		if _, ok := n.shape.(*Partial); ok {
			return n
		}
	}
	return nil
}

func (i *Instance) resolveSelf() error {
	if _, ok := i.shape.(*Deferred); !ok {
		return nil
	}
	owner := i.Parent()
	if owner == nil {
		owner = i
	}
	s, err := Resolve(i.shape, owner)
	if err != nil {
		return err
	}
	if !i.Parent().holdsBits() {
		s = byteShape(s, i.cfg().BitOrder)
	}
	i.shape = s
	i.inherit()
	return nil
}

// Load reads the instance from its provider.
func (i *Instance) Load(opts ...Option) error {
	i.apply(opts)
	if i.inBitDomain() {
		p := i.partial()
		if p == nil {
			return &LoadError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.offset, Err: ErrTypeMismatch}
		}
		return p.Load()
	}
	src := i.Source()
	if src == nil {
		i.state = StateFailed
		return &LoadError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.offset, Err: ErrNoSource}
	}
	return i.load(src)
}

func (i *Instance) load(src provider.Provider) error {
	if err := i.resolveSelf(); err != nil {
		return i.loaded(err)
	}
	i.state = StateLoading
	var err error
	switch s := i.shape.(type) {
	case *Atom:
		err = i.loadAtom(src, s)
	case *Struct:
		err = i.loadStruct(src, s)
	case *Array:
		err = i.loadArray(src, s)
	case *Union:
		err = i.loadUnion(src, s)
	case *Partial:
		err = i.loadPartial(src, s)
	case *Encoded:
		err = i.loadEncoded(src, s)
	case *Pointer:
		err = i.loadPointer(src, s)
	default:
		err = &TypeMismatchError{Path: i.Path(), Want: "byte shape", Got: s}
	}
	return i.loaded(err)
}

func (i *Instance) loaded(err error) error {
	if err == nil {
		i.state = StateInitialized
		return nil
	}
	if errors.Is(err, ErrShortRead) {
		i.state = StatePartial
	} else {
		i.state = StateFailed
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	log.Debugf(i.ctx(), "ptypes: %s (%s) at %#x: %v", i.Path(), i.shape.Name(), i.Offset(), err)
	return &LoadError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.Offset(), Err: err}
}

// Commit writes the serialized instance back to its provider.
func (i *Instance) Commit(opts ...Option) error {
	i.apply(opts)
	if i.inBitDomain() {
		p := i.partial()
		if p == nil {
			return &CommitError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.offset, Err: ErrTypeMismatch}
		}
		return p.Commit()
	}
	src := i.Source()
	if src == nil {
		return &CommitError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.offset, Err: ErrNoSource}
	}
	return i.commit(src)
}

func (i *Instance) commit(src provider.Provider) error {
	if i.source != nil {
		src = i.source
	}
	switch i.shape.(type) {
	case *Struct, *Array, *Encoded, *Pointer:
		for _, c := range i.items {
			if err := c.commit(src); err != nil {
				return err
			}
		}
		return nil
	}
	data, err := i.Serialize()
	if err == nil {
		_, err = provider.WriteAt(src, i.offset, data)
	}
	if err != nil {
		return &CommitError{Path: i.Path(), Shape: i.shape.Name(), Offset: i.offset, Err: err}
	}
	return nil
}

// Init assigns a value while allocating. An empty Name targets the
// instance itself.
type Init struct {
	Name  string
	Value any
}

// Assign returns an Init for the named field or element.
func Assign(name string, value any) Init { return Init{Name: name, Value: value} }

// Alloc initializes the instance with zero bytes, without any I/O, and
// applies inits in field order.
func (i *Instance) Alloc(inits ...Init) error {
	if err := i.alloc(inits); err != nil {
		i.state = StateFailed
		return err
	}
	return nil
}

func (i *Instance) alloc(inits []Init) error {
	if err := i.resolveSelf(); err != nil {
		return err
	}
	i.reset()
	var err error
	switch s := i.shape.(type) {
	case *Atom:
		err = i.allocAtom()
	case *Struct:
		err = i.allocStruct(s, inits)
	case *Array:
		err = i.allocArray(s, inits)
	case *Union:
		err = i.allocUnion()
	case *Partial:
		err = i.allocPartial(s, inits)
	case *Encoded:
		err = i.allocEncoded(s)
	case *Pointer:
		err = i.allocPointer(s)
	case *Bits, *BitStruct, *BitArray:
		err = i.allocBits(inits)
	default:
		err = &TypeMismatchError{Path: i.Path(), Want: "concrete shape", Got: s}
	}
	if err != nil {
		return err
	}
	i.state = StateInitialized
	for _, in := range inits {
		if in.Name == "" {
			if err := i.Set(in.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Size is the number of bytes the instance currently holds.
func (i *Instance) Size() int {
	switch i.shape.(type) {
	case *Struct, *Array:
		n := 0
		for _, c := range i.items {
			n += c.Size()
		}
		return n
	case *Encoded, *Pointer:
		if len(i.items) > 0 {
			return i.items[0].Size()
		}
		return 0
	case *Bits, *BitStruct, *BitArray:
		return ceilDiv(i.BitSize(), 8)
	}
	return len(i.data)
}

// Blocksize is the number of bytes the shape declares for this instance.
func (i *Instance) Blocksize() (int, error) {
	if err := i.resolveSelf(); err != nil {
		return 0, err
	}
	if i.inBitDomain() {
		n, err := i.BitBlocksize()
		return ceilDiv(n, 8), err
	}
	if fn := i.shape.base().blocksize; fn != nil {
		return fn(i)
	}
	switch s := i.shape.(type) {
	case *Atom:
		return i.atomLength(s)
	case *Struct:
		return i.structBlocksize(s)
	case *Array:
		return i.arrayBlocksize(s)
	case *Union:
		return i.unionBlocksize(s)
	case *Partial:
		n, err := i.payloadBitBlocksize(s)
		return ceilDiv(n, 8), err
	case *Encoded:
		return i.rawBlocksize(s.raw)
	case *Pointer:
		return i.pointerWidth(s), nil
	}
	return 0, &TypeMismatchError{Path: i.Path(), Want: "concrete shape", Got: i.shape}
}

func (i *Instance) rawBlocksize(raw Shape) (int, error) {
	if len(i.items) > 0 {
		return i.items[0].Blocksize()
	}
	return i.blocksizeOf(raw, i.offset)
}

// blocksizeOf computes the blocksize s would have as a child of i at off.
func (i *Instance) blocksizeOf(s Shape, off int64) (int, error) {
	if n, ok := StaticSize(s); ok {
		return n, nil
	}
	rs, err := Resolve(s, i)
	if err != nil {
		return 0, err
	}
	if !i.inBitDomain() {
		rs = byteShape(rs, i.cfg().BitOrder)
	}
	c := i.newChild(rs, "", off)
	defer i.arena.release(c)
	return c.Blocksize()
}

// skeletonBlocksize allocates a throwaway copy of i and measures it.
func (i *Instance) skeletonBlocksize() (int, error) {
	sk := i.arena.add(&Instance{
		parent: i.parent, pgen: i.pgen, shape: i.shape, name: i.name, offset: i.offset,
		bitpos: i.bitpos, source: i.source, attrs: i.attrs, recurse: i.recurse,
	})
	defer i.arena.release(sk)
	if err := sk.alloc(nil); err != nil {
		return 0, err
	}
	if sk.inBitDomain() {
		return sk.BitSize(), nil
	}
	return sk.Blocksize()
}

// SetOffset moves the instance. With recurse, children are re-laid
// contiguously from off using their sizes.
func (i *Instance) SetOffset(off int64, recurse bool) {
	i.offset = off
	if !recurse {
		return
	}
	switch i.shape.(type) {
	case *Struct, *Array:
		cur := off
		for _, c := range i.items {
			c.SetOffset(cur, true)
			if c.Initialized() {
				cur += int64(c.Size())
			} else if n, err := c.Blocksize(); err == nil {
				cur += int64(n)
			}
		}
	case *Union:
		i.items, i.index = nil, nil
	case *Encoded, *Pointer, *Partial, *Bits, *BitStruct, *BitArray:
		i.decoded = nil
		for _, c := range i.items {
			c.SetOffset(off, true)
		}
	}
}

// Cast reinterprets the instance's bytes as s. The result shares the
// instance's parent, offset and source but is not attached to the tree.
// Casting never fails: if the bytes are short, the result is partially
// initialized.
func (i *Instance) Cast(s Shape, opts ...Option) (*Instance, error) {
	if i.inBitDomain() && isBitShape(s) {
		return i.castBits(s)
	}
	data, err := i.Serialize()
	if err != nil {
		return nil, err
	}
	res := i.arena.add(&Instance{parent: i.parent, pgen: i.pgen, shape: s, name: i.name, offset: i.offset, attrs: i.attrs, recurse: i.recurse})
	res.apply(opts)
	if !res.Parent().holdsBits() {
		res.shape = byteShape(s, res.cfg().BitOrder)
	}
	res.inherit()
	if err := res.load(provider.NewWindow(provider.NewBuffer(data), i.offset, int64(len(data)))); err != nil {
		log.Debugf(i.ctx(), "ptypes: cast of %s to %s: %v", i.Path(), s.Name(), err)
	}
	if res.source == nil {
		res.source = i.source
	}
	return res, nil
}

// Serialize renders the instance's bytes.
func (i *Instance) Serialize() ([]byte, error) {
	switch s := i.shape.(type) {
	case *Struct, *Array:
		w := newWriter()
		for _, c := range i.items {
			w.WriteFrom(c)
		}
		return w.Result()
	case *Encoded, *Pointer:
		if len(i.items) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUninitialized, i.Path())
		}
		return i.items[0].Serialize()
	case *Partial:
		return i.serializePartial(s)
	case *Bits, *BitStruct, *BitArray:
		return i.Bitmap().Bytes(), nil
	}
	return slices.Clone(i.data), nil
}

// Bytes is Serialize without the error.
func (i *Instance) Bytes() []byte {
	b, _ := i.Serialize()
	return b
}

// changed propagates a mutation: bit nodes refresh their partial and
// write-through views push their bytes to the shared storage.
func (i *Instance) changed() error {
	i.decoded = nil
	if i.inBitDomain() {
		if p := i.partial(); p != nil {
			p.syncPartial()
			return p.changed()
		}
		return nil
	}
	for n := i; n != nil; n = n.Parent() {
		n.decoded = nil
		if n.writeThrough {
			return i.Commit()
		}
	}
	return nil
}
