package ptypes

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps keys (type tags, version numbers, names) to shapes. It is
// populated while packages initialize and safe for concurrent lookups.
type Registry[K comparable] struct {
	name    string
	shapes  *xsync.Map[K, Shape]
	unknown Shape
}

// NewRegistry returns an empty registry. unknown is the shape returned for
// missing keys by GetOrDefault; nil means a zero-length Undefined.
func NewRegistry[K comparable](name string, unknown Shape) *Registry[K] {
	if unknown == nil {
		unknown = Undefined(0)
	}
	return &Registry[K]{name: name, shapes: xsync.NewMap[K, Shape](), unknown: unknown}
}

// Name returns the registry name.
func (r *Registry[K]) Name() string { return r.name }

// Register binds key to s and returns s.
func (r *Registry[K]) Register(key K, s Shape) Shape {
	r.shapes.Store(key, s)
	return s
}

// Lookup returns the shape registered for key or an error wrapping
// ErrNotFound.
func (r *Registry[K]) Lookup(key K) (Shape, error) {
	if s, ok := r.shapes.Load(key); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s has no entry for %v", ErrNotFound, r.name, key)
}

// GetOrDefault never fails. For a missing key it returns a copy of
// fallback(key) (or of the registry's unknown shape when fallback is nil or
// returns nil) tagged with the key under the "key" metadata.
func (r *Registry[K]) GetOrDefault(key K, fallback func(K) Shape) Shape {
	if s, ok := r.shapes.Load(key); ok {
		return s
	}
	base := r.unknown
	if fallback != nil {
		if s := fallback(key); s != nil {
			base = s
		}
	}
	return Clone(base, Meta("key", key), Named(fmt.Sprintf("%s<%v>", base.Name(), key)))
}

// Get is GetOrDefault without a fallback.
func (r *Registry[K]) Get(key K) Shape { return r.GetOrDefault(key, nil) }

// Select returns a deferred shape that looks up the key computed from the
// owning instance, the usual tag-then-payload pattern.
func (r *Registry[K]) Select(key func(owner *Instance) (K, error)) *Deferred {
	d := Defer(func(owner *Instance) (Shape, error) {
		k, err := key(owner)
		if err != nil {
			return nil, err
		}
		return r.Get(k), nil
	})
	d.name = r.name
	return d
}

// Len is the number of registered keys.
func (r *Registry[K]) Len() int { return r.shapes.Size() }

// Range calls fn for every entry until fn returns false.
func (r *Registry[K]) Range(fn func(K, Shape) bool) {
	r.shapes.Range(fn)
}
