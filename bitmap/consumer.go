package bitmap

import (
	"fmt"
	"io"
)

// Consumer supplies bits from a byte source, most significant bit of each
// byte first. Bytes are pulled from the source only when needed.
type Consumer struct {
	src   io.ByteReader
	cache Bitmap
	read  int
}

// NewConsumer returns a Consumer reading from src.
func NewConsumer(src io.ByteReader) *Consumer {
	return &Consumer{src: src}
}

// ConsumerOf returns a Consumer that yields exactly the bits of b.
func ConsumerOf(b Bitmap) *Consumer {
	return &Consumer{cache: b.AsUnsigned()}
}

// Consume returns the next n bits as an unsigned bitmap. On exhaustion the
// already cached bits stay available and ErrShortRead is returned.
func (c *Consumer) Consume(n int) (Bitmap, error) {
	for c.cache.Width() < n {
		if c.src == nil {
			return Zero, fmt.Errorf("%w: want %d bits, have %d", ErrShortRead, n, c.cache.Width())
		}
		b, err := c.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = ErrShortRead
			}
			return Zero, fmt.Errorf("%w: want %d bits, have %d", err, n, c.cache.Width())
		}
		c.cache = Push(c.cache, New(uint64(b), 8))
		c.read++
	}
	rest, v := Shift(c.cache, n)
	c.cache = rest
	return v, nil
}

// Pending is the number of bits pulled from the source but not consumed.
func (c *Consumer) Pending() int { return c.cache.Width() }

// BytesRead is the number of bytes pulled from the source.
func (c *Consumer) BytesRead() int { return c.read }
