package boundcache

import (
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestEvents_Sequence(t *testing.T) {
	rec := &recorder{}
	m, clk := newTestManager[string](t, WithListener(rec), WithMaxEntries(2))

	mustSet(t, m, "a", "v")
	clk.Advance(time.Millisecond)
	mustSet(t, m, "b", "v")
	m.Get("b")
	m.Get("zzz")
	clk.Advance(time.Millisecond)
	mustSet(t, m, "c", "v")
	m.Delete("c")
	m.Get("a")
	m.Cleanup()
	m.Resize(100, 0)
	m.SetEvictionStrategy(StrategyLFU)
	m.Clear()

	want := []EventType{
		EventSet, EventSet, EventHit, EventMiss,
		EventEviction, EventSet,
		EventDelete, EventMiss,
		EventCleanup, EventResized, EventStrategyChanged, EventClear,
	}
	got := rec.types()
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v\nwant %v", got, want)
	}
}

func TestEvents_Payloads(t *testing.T) {
	rec := &recorder{}
	m, clk := newTestManager[string](t, WithListener(rec))

	mustSet(t, m, "k", "value", WithPriority(3))
	ev := rec.last()
	if ev.Key != "k" || ev.Entry.Size != 5 || ev.Entry.Priority != 3 {
		t.Errorf("set event = %+v", ev)
	}

	mustSet(t, m, "t", "v", WithTTL(time.Second))
	clk.Advance(2 * time.Second)
	m.Get("t")
	if ev := rec.last(); ev.Type != EventExpire || ev.Key != "t" {
		t.Errorf("last event = %v %q, want expire t", ev.Type, ev.Key)
	}

	m.Cleanup()
	if ev := rec.last(); ev.Type != EventCleanup || ev.Count != 0 {
		t.Errorf("cleanup event = %+v, want count 0", ev)
	}

	m.Clear()
	if ev := rec.last(); ev.Type != EventClear || ev.Count != 1 {
		t.Errorf("clear event = %+v, want count 1", ev)
	}

	m.Resize(512, 7)
	if ev := rec.last(); ev.MaxSize != 512 || ev.MaxEntries != 7 {
		t.Errorf("resized event = %+v", ev)
	}

	m.SetEvictionStrategy(StrategySize)
	if ev := rec.last(); ev.Strategy != StrategySize {
		t.Errorf("strategyChanged event = %+v", ev)
	}
}

func TestEvents_ListenerMayReenter(t *testing.T) {
	m, _ := newTestManager[string](t)

	var sizes []int64
	m.Subscribe(ListenerFunc(func(e Event) {
		if e.Type == EventSet {
			sizes = append(sizes, m.Stats().CurrentSize)
		}
	}))

	mustSet(t, m, "a", "xx")
	mustSet(t, m, "b", "yyy")

	if !slices.Equal(sizes, []int64{2, 5}) {
		t.Errorf("sizes seen by listener = %v, want [2 5]", sizes)
	}
}

func TestEvents_OrderedAcrossGoroutines(t *testing.T) {
	m, _ := newTestManager[string](t)

	setSeen := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{}
	m.Subscribe(ListenerFunc(func(e Event) {
		if e.Type == EventSet {
			close(setSeen)
			<-release
		}
		rec.OnEvent(e)
	}))

	done := make(chan error, 1)
	go func() { done <- m.Set("k", "v") }()

	<-setSeen
	deleted := m.Delete("k")
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if !deleted {
		t.Fatal("Delete() = false, want true")
	}
	if got := rec.types(); !slices.Equal(got, []EventType{EventSet, EventDelete}) {
		t.Errorf("events = %v, want [set delete]", got)
	}
}

func TestEvents_ListenerEventsFollowCurrent(t *testing.T) {
	m, _ := newTestManager[string](t)

	rec := &recorder{}
	m.Subscribe(ListenerFunc(func(e Event) {
		if e.Type == EventSet && e.Key == "a" {
			m.Delete("a")
		}
	}))
	m.Subscribe(rec)

	mustSet(t, m, "a", "v")

	if got := rec.types(); !slices.Equal(got, []EventType{EventSet, EventDelete}) {
		t.Errorf("events = %v, want [set delete]", got)
	}
	if m.Has("a") {
		t.Error("key deleted by listener still present")
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	m, _ := newTestManager[string](t)
	first, second := &recorder{}, &recorder{}

	cancel := m.Subscribe(first)
	m.Subscribe(second)
	mustSet(t, m, "a", "v")
	cancel()
	mustSet(t, m, "b", "v")

	if n := len(first.types()); n != 1 {
		t.Errorf("cancelled listener got %d events, want 1", n)
	}
	if n := len(second.types()); n != 2 {
		t.Errorf("listener got %d events, want 2", n)
	}
}

func TestEventType_String(t *testing.T) {
	if EventStrategyChanged.String() != "strategyChanged" {
		t.Errorf("String() = %q", EventStrategyChanged.String())
	}
	if EventType(99).String() != "EventType(99)" {
		t.Errorf("String() = %q", EventType(99).String())
	}
}
