// Package provider defines the byte-addressable backends that decoded
// instances read from and write to.
//
// A Provider keeps a cursor. SeekTo moves it, Consume reads from it and Store
// writes at it, each advancing the cursor by the bytes transferred. Providers
// are not safe for concurrent use.
package provider

// Provider is a seekable byte store.
type Provider interface {
	// SeekTo moves the cursor to offset and returns the previous offset.
	SeekTo(offset int64) (int64, error)

	// Consume reads n bytes at the cursor. When fewer bytes are available
	// the bytes that could be read are returned together with a
	// *ShortReadError.
	Consume(n int) ([]byte, error)

	// Store writes p at the cursor. A partial write returns a
	// *ShortWriteError.
	Store(p []byte) (int, error)
}

// Offsetter is implemented by providers that report their cursor.
type Offsetter interface {
	Offset() int64
}

// ReadAt seeks p to offset and consumes n bytes.
func ReadAt(p Provider, offset int64, n int) ([]byte, error) {
	if _, err := p.SeekTo(offset); err != nil {
		return nil, err
	}
	return p.Consume(n)
}

// WriteAt seeks p to offset and stores b.
func WriteAt(p Provider, offset int64, b []byte) (int, error) {
	if _, err := p.SeekTo(offset); err != nil {
		return 0, err
	}
	return p.Store(b)
}
