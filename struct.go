package ptypes

import (
	"fmt"
	"strconv"
	"strings"

	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes/provider"
)

// Field is a named slot of a Struct or BitStruct.
type Field struct {
	Name  string
	Shape Shape
}

// F builds a Field.
func F(name string, s Shape) Field { return Field{Name: name, Shape: s} }

// Struct is an ordered sequence of named fields laid out back to back.
type Struct struct {
	common
	fields []Field
}

// NewStruct returns a structure shape.
func NewStruct(name string, fields ...Field) *Struct {
	return &Struct{common: common{name: name}, fields: fields}
}

func (s *Struct) Kind() Kind { return KindContainer }

func (s *Struct) clone() Shape {
	c := *s
	c.common = s.common.copy()
	c.fields = append([]Field(nil), s.fields...)
	return &c
}

// Fields returns the declared fields.
func (s *Struct) Fields() []Field { return s.fields }

// fieldName picks a unique child name, renaming duplicates.
func (i *Instance) fieldName(name string, off int64) string {
	if name == "" {
		name = strconv.Itoa(len(i.items))
	}
	if _, dup := i.index[name]; !dup {
		return name
	}
	renamed := fmt.Sprintf("%s_%x", name, off)
	if i.cfg().Duplicates == DuplicateByIndex {
		renamed = fmt.Sprintf("%s_%d", name, len(i.items))
	}
	i.Flag(&DuplicateFieldError{Path: i.Path(), Name: name, Renamed: renamed})
	return renamed
}

// limit evaluates a custom blocksize, if any. Errors disable the limit.
func (i *Instance) limit() int {
	fn := i.shape.base().blocksize
	if fn == nil {
		return -1
	}
	n, err := fn(i)
	if err != nil {
		return -1
	}
	return n
}

func (i *Instance) checkOverflow() {
	if lim := i.limit(); lim >= 0 && i.Size() > lim {
		i.Flag(&OverflowError{Path: i.Path(), Size: i.Size(), Blocksize: lim})
	}
}

func (i *Instance) loadStruct(src provider.Provider, s *Struct) error {
	i.reset()
	off := i.offset
	for _, f := range s.fields {
		fs, err := Resolve(f.Shape, i)
		if err != nil {
			return err
		}
		c := i.newChild(byteShape(fs, i.cfg().BitOrder), i.fieldName(f.Name, off), off)
		if lim := i.limit(); lim >= 0 {
			if bs, err := c.Blocksize(); err == nil && int(off-i.offset)+bs > lim {
				log.Debugf(i.ctx(), "ptypes: %s: field %s does not fit in %d bytes", i.Path(), c.name, lim)
				i.arena.release(c)
				break
			}
		}
		i.addChild(c)
		if err := c.load(src); err != nil {
			log.Warnf(i.ctx(), "ptypes: %s: field %s at %#x: %v", i.Path(), c.name, off, err)
			return err
		}
		off += int64(c.Size())
	}
	i.checkOverflow()
	return nil
}

// splitInits routes "name" and "name.sub" inits to the named child.
func splitInits(inits []Init, name string) []Init {
	var out []Init
	for _, in := range inits {
		switch {
		case in.Name == name:
			out = append(out, Init{Value: in.Value})
		case strings.HasPrefix(in.Name, name+"."):
			out = append(out, Init{Name: in.Name[len(name)+1:], Value: in.Value})
		}
	}
	return out
}

func checkInits(path string, inits []Init, names []string) error {
next:
	for _, in := range inits {
		if in.Name == "" {
			continue
		}
		head, _, _ := strings.Cut(in.Name, ".")
		for _, n := range names {
			if n == head {
				continue next
			}
		}
		return fmt.Errorf("%w: %s has no field %q", ErrNotFound, path, head)
	}
	return nil
}

func (i *Instance) allocStruct(s *Struct, inits []Init) error {
	names := make([]string, len(s.fields))
	for k, f := range s.fields {
		names[k] = f.Name
	}
	if err := checkInits(i.Path(), inits, names); err != nil {
		return err
	}
	off := i.offset
	for _, f := range s.fields {
		fs, err := Resolve(f.Shape, i)
		if err != nil {
			return err
		}
		c := i.newChild(byteShape(fs, i.cfg().BitOrder), i.fieldName(f.Name, off), off)
		i.addChild(c)
		if err := c.alloc(splitInits(inits, f.Name)); err != nil {
			return err
		}
		off += int64(c.Size())
	}
	return nil
}

func (i *Instance) structBlocksize(s *Struct) (int, error) {
	if len(i.items) == 0 && i.state != StateInitialized {
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
	if i.state == StateInitialized {
		return total, nil
	}
	// Partially loaded: estimate the fields that were never reached.
	off := i.offset + int64(total)
	for _, f := range s.fields[min(len(i.items), len(s.fields)):] {
		n, err := i.blocksizeOf(f.Shape, off)
		if err != nil {
			break
		}
		total += n
		off += int64(n)
	}
	return total, nil
}

// Field returns the named child. On unions it returns the named view.
func (i *Instance) Field(name string) (*Instance, error) {
	if u, ok := i.shape.(*Union); ok {
		return i.view(u, name)
	}
	if k, ok := i.index[name]; ok {
		return i.items[k], nil
	}
	if _, ok := i.shape.(*Partial); ok && len(i.items) > 0 {
		return i.items[0].Field(name)
	}
	return nil, fmt.Errorf("%w: %s has no field %q", ErrNotFound, i.Path(), name)
}

// Lookup follows a dotted path of field names and element indices.
func (i *Instance) Lookup(path string) (*Instance, error) {
	n := i
	for _, name := range strings.Split(path, ".") {
		next, err := n.Field(name)
		if err != nil {
			return nil, err
		}
		n = next
	}
	return n, nil
}

// Item returns the k-th child.
func (i *Instance) Item(k int) (*Instance, error) {
	if k < 0 || k >= len(i.items) {
		return nil, fmt.Errorf("%w: %s has no element %d (length %d)", ErrNotFound, i.Path(), k, len(i.items))
	}
	return i.items[k], nil
}

// Len is the number of children.
func (i *Instance) Len() int { return len(i.items) }

// Items returns the children in order.
func (i *Instance) Items() []*Instance { return append([]*Instance(nil), i.items...) }

// Names returns the children's names in order.
func (i *Instance) Names() []string {
	out := make([]string, len(i.items))
	for k, c := range i.items {
		out[k] = c.name
	}
	return out
}
