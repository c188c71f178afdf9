package ptypes

import (
	"fmt"
	"slices"

	"github.com/oy3o/ptypes/provider"
)

// Union is one storage region read through several named views.
type Union struct {
	common
	views []Field
	size  int
}

// NewUnion returns a union. A size of zero sizes the storage to the largest
// view.
func NewUnion(name string, size int, views ...Field) *Union {
	return &Union{common: common{name: name}, views: views, size: size}
}

func (u *Union) Kind() Kind { return KindContainer }

func (u *Union) clone() Shape {
	c := *u
	c.common = u.common.copy()
	c.views = append([]Field(nil), u.views...)
	return &c
}

// Views returns the declared views.
func (u *Union) Views() []Field { return u.views }

func (i *Instance) unionBlocksize(u *Union) (int, error) {
	if u.size > 0 {
		return u.size, nil
	}
	n := 0
	for _, v := range u.views {
		bs, err := i.blocksizeOf(v.Shape, i.offset)
		if err != nil {
			return 0, err
		}
		n = max(n, bs)
	}
	return n, nil
}

func (i *Instance) loadUnion(src provider.Provider, _ *Union) error {
	i.items, i.index = nil, nil
	n, err := i.Blocksize()
	if err != nil {
		return err
	}
	data, err := provider.ReadAt(src, i.offset, n)
	i.data = data
	return err
}

func (i *Instance) allocUnion() error {
	n, err := i.Blocksize()
	if err != nil {
		return err
	}
	i.data = make([]byte, n)
	return nil
}

// unionStorage exposes a union's bytes to its views.
type unionStorage struct{ u *Instance }

func (s unionStorage) Serialize() ([]byte, error) { return slices.Clone(s.u.data), nil }

func (s unionStorage) WriteBack(off int64, p []byte) error {
	if end := int(off) + len(p); end > len(s.u.data) {
		s.u.data = append(s.u.data, make([]byte, end-len(s.u.data))...)
	}
	copy(s.u.data[off:], p)
	return s.u.changed()
}

// view re-reads the named view from the current storage.
func (i *Instance) view(u *Union, name string) (*Instance, error) {
	k := slices.IndexFunc(u.views, func(f Field) bool { return f.Name == name })
	if k < 0 {
		return nil, fmt.Errorf("%w: %s has no view %q", ErrNotFound, i.Path(), name)
	}
	if i.data == nil {
		var err error
		if i.Source() != nil {
			err = i.Load()
		} else {
			err = i.Alloc()
		}
		if err != nil {
			return nil, err
		}
	}
	var v *Instance
	if at, ok := i.index[name]; ok {
		v = i.items[at]
	} else {
		vs, err := Resolve(u.views[k].Shape, i)
		if err != nil {
			return nil, err
		}
		v = i.newChild(byteShape(vs, i.cfg().BitOrder), name, i.offset)
		v.source = provider.NewWindow(provider.NewProxy(unionStorage{i}), i.offset, -1)
		v.writeThrough = true
		i.addChild(v)
	}
	return v, v.load(v.source)
}
