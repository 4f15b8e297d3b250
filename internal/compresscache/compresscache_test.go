package compresscache

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/codec"
	"github.com/boundcache/boundcache/internal/codec/gzipcodec"
	"github.com/boundcache/boundcache/internal/codec/zstdcodec"
	"github.com/boundcache/boundcache/internal/mediatype"
)

func newCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	m, err := boundcache.New[[]byte](boundcache.WithCleanupInterval(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return New(m, opts...)
}

var page = []byte(strings.Repeat("<p>The quick brown fox jumps over the lazy dog.</p>\n", 100))

func TestKey(t *testing.T) {
	a := Key([]byte("body"), "gzip")
	b := Key([]byte("body"), "zstd")
	c := Key([]byte("other"), "gzip")

	if a == b || a == c {
		t.Errorf("keys collide: %q %q %q", a, b, c)
	}
	if !strings.HasSuffix(a, ":gzip") {
		t.Errorf("Key() = %q, want :gzip suffix", a)
	}
	if Key([]byte("body"), "gzip") != a {
		t.Error("Key() not deterministic")
	}
}

func TestCache_Encode(t *testing.T) {
	tests := []struct {
		encoding string
		codec    codec.Codec
	}{
		{"zstd", zstdcodec.New()},
		{"gzip", gzipcodec.New()},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			c := newCache(t)

			enc, ok, err := c.Encode(page, "text/html; charset=utf-8", tt.encoding)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !ok {
				t.Fatal("Encode() did not compress")
			}
			if len(enc) >= len(page) {
				t.Errorf("encoded %d bytes from %d", len(enc), len(page))
			}

			dec, err := codec.Decode(tt.codec, enc)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(dec, page) {
				t.Error("decoded body differs")
			}

			entries := c.Manager().Entries()
			if len(entries) != 1 {
				t.Fatalf("Entries() len = %d, want 1", len(entries))
			}
			if entries[0].Key != Key(page, tt.encoding) {
				t.Errorf("entry key = %q", entries[0].Key)
			}
			if entries[0].Priority != mediatype.PriorityMarkup {
				t.Errorf("entry priority = %d", entries[0].Priority)
			}
			if entries[0].Size != int64(len(enc)) {
				t.Errorf("entry size = %d, want %d", entries[0].Size, len(enc))
			}
		})
	}
}

func TestCache_EncodeHit(t *testing.T) {
	c := newCache(t)

	first, _, err := c.Encode(page, "text/css", "gzip")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, ok, err := c.Encode(page, "text/css", "gzip")
	if err != nil || !ok {
		t.Fatalf("Encode() = %v, %v", ok, err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached encoding differs")
	}
	if s := c.Manager().Stats(); s.Hits != 1 || s.Sets != 1 {
		t.Errorf("Stats() hits=%d sets=%d, want 1/1", s.Hits, s.Sets)
	}
}

func TestCache_EncodeSkips(t *testing.T) {
	random := make([]byte, 4096)
	rand.New(rand.NewSource(7)).Read(random)

	tests := []struct {
		name        string
		content     []byte
		contentType string
	}{
		{"too small", []byte("<p>hi</p>"), "text/html"},
		{"not compressible", page, "image/png"},
		{"does not shrink", random, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCache(t)
			got, ok, err := c.Encode(tt.content, tt.contentType, "zstd")
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if ok {
				t.Error("Encode() reported compression")
			}
			if !bytes.Equal(got, tt.content) {
				t.Error("Encode() changed skipped content")
			}
			if c.Manager().Len() != 0 {
				t.Errorf("manager Len() = %d, want 0", c.Manager().Len())
			}
		})
	}
}

func TestCache_UnsupportedEncoding(t *testing.T) {
	c := newCache(t)

	if _, _, err := c.Encode(page, "text/html", "br"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("Encode(br) error = %v, want ErrUnsupportedEncoding", err)
	}
}

func TestCache_Negotiate(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"gzip, deflate, br, zstd", "zstd"},
		{"GZIP;q=0.8, Zstd;q=0.5", "zstd"},
		{"zstd;q=0, gzip", "gzip"},
		{"zstd;q=0, gzip;q=0", ""},
		{"*", "zstd"},
		{"*;q=0", ""},
		{"zstd;q=0, *", "gzip"},
		{"identity", ""},
		{"br", ""},
		{"gzip;q=bogus", "gzip"},
	}

	c := newCache(t)
	for _, tt := range tests {
		if got := c.Negotiate(tt.header); got != tt.want {
			t.Errorf("Negotiate(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCache_WithCodecs(t *testing.T) {
	c := newCache(t, WithCodecs(gzipcodec.New()), WithMinSize(1))

	if got := c.Encodings(); len(got) != 1 || got[0] != "gzip" {
		t.Errorf("Encodings() = %v, want [gzip]", got)
	}
	if got := c.Negotiate("zstd, gzip"); got != "gzip" {
		t.Errorf("Negotiate() = %q, want gzip", got)
	}
	if _, _, err := c.Encode(page, "text/plain", "zstd"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("Encode(zstd) error = %v, want ErrUnsupportedEncoding", err)
	}
}
