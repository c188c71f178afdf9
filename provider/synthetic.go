package provider

import (
	"io"
	"math/rand/v2"
)

// Zero is an io.Reader that reads an infinite stream of zero bytes.
var Zero io.Reader = zero{}

type zero struct{}

func (z zero) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Empty reads zeros at every offset and silently accepts stores.
type Empty struct {
	off int64
}

var _ Provider = (*Empty)(nil)

// NewEmpty returns an all-zero provider.
func NewEmpty() *Empty { return &Empty{} }

// SeekTo implements [Provider].
func (e *Empty) SeekTo(offset int64) (int64, error) {
	prev := e.off
	e.off = offset
	return prev, nil
}

// Consume implements [Provider].
func (e *Empty) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	buf := make([]byte, n)
	_, _ = Zero.Read(buf)
	e.off += int64(n)
	return buf, nil
}

// Store implements [Provider].
func (e *Empty) Store(p []byte) (int, error) {
	e.off += int64(len(p))
	return len(p), nil
}

// Random reads pseudo-random bytes and silently accepts stores. The byte at
// a given offset depends only on the seed and that offset.
type Random struct {
	seed uint64
	off  int64
}

var _ Provider = (*Random)(nil)

// NewRandom returns a random provider for seed.
func NewRandom(seed uint64) *Random { return &Random{seed: seed} }

// SeekTo implements [Provider].
func (r *Random) SeekTo(offset int64) (int64, error) {
	prev := r.off
	r.off = offset
	return prev, nil
}

// Consume implements [Provider].
func (r *Random) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = r.at(r.off + int64(i))
	}
	r.off += int64(n)
	return buf, nil
}

func (r *Random) at(off int64) byte {
	block := uint64(off) / 8
	v := rand.New(rand.NewPCG(r.seed, block)).Uint64()
	return byte(v >> (8 * (uint64(off) % 8)))
}

// Store implements [Provider].
func (r *Random) Store(p []byte) (int, error) {
	r.off += int64(len(p))
	return len(p), nil
}
