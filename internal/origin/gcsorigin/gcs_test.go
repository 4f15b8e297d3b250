package gcsorigin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"

	"github.com/boundcache/boundcache/internal/origin"
)

// mockObjects implements objects over an in-memory map.
type mockObjects struct {
	data    map[string][]byte
	updated time.Time
}

func (m *mockObjects) attrs(_ context.Context, key string) (*storage.ObjectAttrs, error) {
	d, ok := m.data[key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return &storage.ObjectAttrs{Name: key, Size: int64(len(d)), Updated: m.updated}, nil
}

func (m *mockObjects) list(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockObjects) reader(_ context.Context, key string) (io.ReadCloser, error) {
	d, ok := m.data[key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c", "a/b/c/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			o := &Origin{}
			WithPrefix(tt.input)(o)
			if o.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", o.prefix, tt.want)
			}
		})
	}
}

func TestOrigin_objectKey(t *testing.T) {
	o := &Origin{prefix: "static/"}

	tests := []struct {
		name string
		want string
	}{
		{"index.html", "static/index.html"},
		{"/img/logo.png", "static/img/logo.png"},
		{"../../x.js", "static/x.js"},
	}

	for _, tt := range tests {
		got, _, err := o.objectKey(tt.name)
		if err != nil {
			t.Fatalf("objectKey(%q) error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("objectKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOrigin_StatRead(t *testing.T) {
	updated := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	o := &Origin{
		objects: &mockObjects{
			data:    map[string][]byte{"site/app.css": []byte("a{}")},
			updated: updated,
		},
		prefix: "site/",
	}
	ctx := context.Background()

	info, err := o.Stat(ctx, "app.css")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 3 || !info.ModTime.Equal(updated) {
		t.Errorf("Stat() = %+v", info)
	}

	data, err := o.Read(ctx, "app.css")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "a{}" {
		t.Errorf("Read() = %q", data)
	}
}

func TestOrigin_NotFound(t *testing.T) {
	o := &Origin{objects: &mockObjects{data: map[string][]byte{}}}
	ctx := context.Background()

	if _, err := o.Stat(ctx, "x"); !errors.Is(err, origin.ErrNotFound) {
		t.Errorf("Stat() error = %v, want ErrNotFound", err)
	}
	if _, err := o.Read(ctx, "x"); !errors.Is(err, origin.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestOrigin_Close_NoClient(t *testing.T) {
	if err := (&Origin{}).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOrigin_List(t *testing.T) {
	o := &Origin{
		prefix: "static/",
		objects: &mockObjects{data: map[string][]byte{
			"static/index.html":   []byte("a"),
			"static/css/site.css": []byte("b"),
			"static/css/":         nil,
			"other/x.js":          []byte("c"),
		}},
	}

	got, err := o.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"css/site.css", "index.html"}; !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	got, err = o.List(context.Background(), "/css")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"css/site.css"}; !slices.Equal(got, want) {
		t.Errorf("List(css) = %v, want %v", got, want)
	}
}
