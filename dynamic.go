package ptypes

import (
	"fmt"
)

// Block is an opaque blob of n bytes.
func Block(n int) *Atom {
	return &Atom{common: common{name: fmt.Sprintf("block(%d)", n)}, length: n}
}

// BlockFunc is an opaque blob whose length is computed from the block
// instance, usually from a sibling reached through Parent.
func BlockFunc(fn SizeFunc) *Atom {
	return &Atom{common: common{name: "block"}, lengthFn: fn}
}

// Align is padding up to the next multiple of n bytes, measured from the
// instance's absolute offset.
func Align(n int) *Atom {
	return &Atom{
		common: common{name: fmt.Sprintf("align(%d)", n)},
		format: formatPadding,
		lengthFn: func(i *Instance) (int, error) {
			if n <= 1 {
				return 0, nil
			}
			off := i.Offset()
			return int(Roundup(off, int64(n)) - off), nil
		},
	}
}

// Sibling returns a SizeFunc reading the named field of the instance's
// parent as an unsigned count, scaled by mul.
func Sibling(name string, mul int) SizeFunc {
	return func(i *Instance) (int, error) {
		p := i.Parent()
		if p == nil {
			return 0, fmt.Errorf("%w: %s has no parent", ErrNotFound, i.Path())
		}
		f, err := p.Field(name)
		if err != nil {
			return 0, err
		}
		return int(f.Uint()) * mul, nil
	}
}
