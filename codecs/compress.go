package codecs

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/brotli"
	"github.com/dsnet/compress/bzip2"

	"github.com/oy3o/ptypes"
)

// ErrEncodeUnsupported is returned by codecs that can only decode.
var ErrEncodeUnsupported = errors.New("codecs: encoding not supported")

// Bzip2 stores its object bzip2 compressed.
type Bzip2 struct {
	// Level is the compression level used by Encode; zero selects the
	// library default.
	Level int
}

var _ ptypes.Codec = Bzip2{}

// Decode implements ptypes.Codec.
func (c Bzip2) Decode(_ *ptypes.Instance, raw []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("codecs: bzip2: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codecs: bzip2: %w", err)
	}
	return out, nil
}

// Encode implements ptypes.Codec.
func (c Bzip2) Encode(_ *ptypes.Instance, object []byte) ([]byte, error) {
	var conf *bzip2.WriterConfig
	if c.Level != 0 {
		conf = &bzip2.WriterConfig{Level: c.Level}
	}
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, conf)
	if err != nil {
		return nil, fmt.Errorf("codecs: bzip2: %w", err)
	}
	if _, err := w.Write(object); err != nil {
		w.Close()
		return nil, fmt.Errorf("codecs: bzip2: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codecs: bzip2: %w", err)
	}
	return buf.Bytes(), nil
}

// Brotli decodes brotli compressed objects. The brotli package has no
// encoder, so Encode always fails.
type Brotli struct{}

var _ ptypes.Codec = Brotli{}

// Decode implements ptypes.Codec.
func (Brotli) Decode(_ *ptypes.Instance, raw []byte) ([]byte, error) {
	r, err := brotli.NewReader(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("codecs: brotli: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codecs: brotli: %w", err)
	}
	return out, nil
}

// Encode implements ptypes.Codec.
func (Brotli) Encode(*ptypes.Instance, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: brotli", ErrEncodeUnsupported)
}
