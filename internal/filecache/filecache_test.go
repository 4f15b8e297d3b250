package filecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/mediatype"
	"github.com/boundcache/boundcache/internal/origin"
	"github.com/boundcache/boundcache/internal/origin/memorigin"
)

var mtime = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func newManager(t *testing.T, opts ...boundcache.Option) *boundcache.Manager[File] {
	t.Helper()
	opts = append([]boundcache.Option{boundcache.WithCleanupInterval(0)}, opts...)
	m, err := boundcache.New[File](opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestKey(t *testing.T) {
	got := Key("css/site.css", time.Unix(0, 1700000000123456789))
	if want := "css/site.css@1700000000123456789"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestCache_FetchHitMiss(t *testing.T) {
	o := memorigin.New()
	o.Put("index.html", []byte("<h1>home</h1>"), mtime)
	m := newManager(t)
	c := New(o, m)
	ctx := context.Background()

	first, err := c.Fetch(ctx, "/index.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if first.Cached {
		t.Error("first Fetch() reported cached")
	}
	if mediatype.Essence(first.ContentType) != "text/html" {
		t.Errorf("ContentType = %q", first.ContentType)
	}

	second, err := c.Fetch(ctx, "index.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !second.Cached {
		t.Error("second Fetch() not cached")
	}
	if string(second.Data) != "<h1>home</h1>" {
		t.Errorf("Data = %q", second.Data)
	}
	if o.Reads() != 1 {
		t.Errorf("origin Reads() = %d, want 1", o.Reads())
	}

	entries := m.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() len = %d, want 1", len(entries))
	}
	if entries[0].Priority != mediatype.PriorityMarkup {
		t.Errorf("Priority = %d, want %d", entries[0].Priority, mediatype.PriorityMarkup)
	}
	if entries[0].Size != 13 {
		t.Errorf("Size = %d, want 13", entries[0].Size)
	}
}

func TestCache_ModifiedFileRefetched(t *testing.T) {
	o := memorigin.New()
	o.Put("app.js", []byte("v1"), mtime)
	c := New(o, newManager(t))
	ctx := context.Background()

	if _, err := c.Fetch(ctx, "app.js"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	o.Put("app.js", []byte("v2"), mtime.Add(time.Second))

	f, err := c.Fetch(ctx, "app.js")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if f.Cached || string(f.Data) != "v2" {
		t.Errorf("Fetch() after modification = %q cached=%v, want v2 uncached", f.Data, f.Cached)
	}
}

func TestCache_TooLargeNotCached(t *testing.T) {
	o := memorigin.New()
	o.Put("video.bin", make([]byte, 2048), mtime)
	m := newManager(t)
	c := New(o, m, WithMaxFileSize(1024))
	ctx := context.Background()

	for range 2 {
		f, err := c.Fetch(ctx, "video.bin")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(f.Data) != 2048 || f.Cached {
			t.Errorf("Fetch() len=%d cached=%v", len(f.Data), f.Cached)
		}
	}
	if m.Len() != 0 {
		t.Errorf("manager Len() = %d, want 0", m.Len())
	}
	if o.Reads() != 2 {
		t.Errorf("origin Reads() = %d, want 2", o.Reads())
	}
}

func TestCache_TTL(t *testing.T) {
	o := memorigin.New()
	o.Put("a.txt", []byte("a"), mtime)
	m := newManager(t)
	c := New(o, m, WithTTL(time.Minute))

	if _, err := c.Fetch(context.Background(), "a.txt"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := m.Entries()[0].TTL; got != time.Minute {
		t.Errorf("TTL = %v, want 1m", got)
	}
}

func TestCache_NotFound(t *testing.T) {
	c := New(memorigin.New(), newManager(t))

	_, err := c.Fetch(context.Background(), "missing.css")
	if !errors.Is(err, origin.ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestCache_ClosedManagerStillServes(t *testing.T) {
	o := memorigin.New()
	o.Put("a.txt", []byte("a"), mtime)
	m := newManager(t)
	m.Close()
	c := New(o, m)

	f, err := c.Fetch(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(f.Data) != "a" {
		t.Errorf("Data = %q", f.Data)
	}
}

func TestCache_ConcurrentMissesShareRead(t *testing.T) {
	o := memorigin.New()
	o.Put("big.css", make([]byte, 4096), mtime)
	c := New(o, newManager(t))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), "big.css"); err != nil {
				t.Errorf("Fetch() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// Exact dedupe depends on scheduling; every fetch either shared the
	// in-flight read or hit the cache afterwards.
	if n := o.Reads(); n < 1 || n > 16 {
		t.Errorf("origin Reads() = %d", n)
	}
	if c.Manager().Len() != 1 {
		t.Errorf("manager Len() = %d, want 1", c.Manager().Len())
	}
}

// gatedOrigin blocks Read until release is closed or the read's context
// is done.
type gatedOrigin struct {
	*memorigin.Origin
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (o *gatedOrigin) Read(ctx context.Context, name string) ([]byte, error) {
	o.once.Do(func() { close(o.entered) })
	select {
	case <-o.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return o.Origin.Read(ctx, name)
}

func TestCache_CancelledCallerDoesNotFailSharedRead(t *testing.T) {
	mem := memorigin.New()
	mem.Put("app.js", []byte("console.log(1)"), mtime)
	o := &gatedOrigin{Origin: mem, entered: make(chan struct{}), release: make(chan struct{})}
	c := New(o, newManager(t))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "app.js")
		firstErr <- err
	}()
	<-o.entered

	type result struct {
		f   File
		err error
	}
	second := make(chan result, 1)
	go func() {
		f, err := c.Fetch(context.Background(), "app.js")
		second <- result{f, err}
	}()
	// Let the second caller join the in-flight read.
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Fetch() error = %v, want context.Canceled", err)
	}

	close(o.release)
	r := <-second
	if r.err != nil {
		t.Fatalf("Fetch() error = %v", r.err)
	}
	if string(r.f.Data) != "console.log(1)" {
		t.Errorf("Data = %q", r.f.Data)
	}
	if c.Manager().Len() != 1 {
		t.Errorf("manager Len() = %d, want 1", c.Manager().Len())
	}
}

func TestCache_Warm(t *testing.T) {
	o := memorigin.New()
	var names []string
	for i := range 20 {
		name := fmt.Sprintf("page%d.html", i)
		o.Put(name, []byte(name), mtime)
		names = append(names, name)
	}
	names = append(names, "missing.html")

	m := newManager(t)
	c := New(o, m, WithWarmConcurrency(4))

	n, err := c.Warm(context.Background(), names)
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if n != 20 {
		t.Errorf("Warm() = %d, want 20", n)
	}
	if m.Len() != 20 {
		t.Errorf("manager Len() = %d, want 20", m.Len())
	}

	f, err := c.Fetch(context.Background(), "page7.html")
	if err != nil || !f.Cached {
		t.Errorf("Fetch() after Warm = cached %v, err %v", f.Cached, err)
	}
}

func TestCache_WarmPrefix(t *testing.T) {
	o := memorigin.New()
	o.Put("docs/a.html", []byte("a"), mtime)
	o.Put("docs/b.html", []byte("b"), mtime)
	o.Put("blog/c.html", []byte("c"), mtime)

	m := newManager(t)
	c := New(o, m)

	n, err := c.WarmPrefix(context.Background(), "docs/")
	if err != nil {
		t.Fatalf("WarmPrefix() error = %v", err)
	}
	if n != 2 || m.Len() != 2 {
		t.Errorf("WarmPrefix() = %d, Len() = %d, want 2/2", n, m.Len())
	}
	if m.Has(Key("blog/c.html", mtime)) {
		t.Error("WarmPrefix() loaded a file outside the prefix")
	}

	// Embedding only the interface hides List.
	plain := New(struct{ origin.Origin }{o}, newManager(t))
	if _, err := plain.WarmPrefix(context.Background(), ""); !errors.Is(err, ErrNotListable) {
		t.Errorf("WarmPrefix() error = %v, want ErrNotListable", err)
	}
}

func TestCache_WarmCancelled(t *testing.T) {
	o := memorigin.New()
	o.Put("a.html", []byte("a"), mtime)
	c := New(o, newManager(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// memorigin ignores the context, so only check Warm returns.
	if _, err := c.Warm(ctx, []string{"a.html"}); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Warm() error = %v", err)
	}
}

func TestCache_PriorityEviction(t *testing.T) {
	o := memorigin.New()
	o.Put("index.html", make([]byte, 100), mtime)
	o.Put("app.js", make([]byte, 100), mtime)
	o.Put("logo.png", make([]byte, 100), mtime)
	o.Put("data.bin", make([]byte, 100), mtime)

	m := newManager(t,
		boundcache.WithMaxSize(300),
		boundcache.WithStrategy(boundcache.StrategyPriority),
	)
	c := New(o, m)
	ctx := context.Background()

	for _, name := range []string{"data.bin", "index.html", "app.js", "logo.png"} {
		if _, err := c.Fetch(ctx, name); err != nil {
			t.Fatalf("Fetch(%q) error = %v", name, err)
		}
	}

	if m.Has(Key("data.bin", mtime)) {
		t.Error("lowest priority file survived")
	}
	for _, name := range []string{"index.html", "app.js", "logo.png"} {
		if !m.Has(Key(name, mtime)) {
			t.Errorf("%s evicted", name)
		}
	}
}
