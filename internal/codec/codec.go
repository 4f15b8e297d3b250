// Package codec provides the HTTP content encodings cached responses are
// stored in.
package codec

import (
	"bytes"
	"fmt"
	"io"
)

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Encoding returns the Content-Encoding token (e.g., "zstd", "gzip").
	// Returns "identity" for no compression.
	Encoding() string
}

// Encode compresses src with c.
func Encode(c Codec, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src) / 2)

	w, err := c.Writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("%s writer: %w", c.Encoding(), err)
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s encode: %w", c.Encoding(), err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s flush: %w", c.Encoding(), err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses src with c.
func Decode(c Codec, src []byte) ([]byte, error) {
	r, err := c.Reader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%s reader: %w", c.Encoding(), err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.Encoding(), err)
	}
	return out, nil
}
