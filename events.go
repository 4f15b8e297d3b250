package boundcache

import (
	"fmt"
	"time"
)

// EventType identifies what happened inside a manager.
type EventType int

const (
	EventHit EventType = iota + 1
	EventMiss
	EventSet
	EventDelete
	EventExpire
	EventEviction
	EventCleanup
	EventClear
	EventResized
	EventStrategyChanged
)

var eventNames = map[EventType]string{
	EventHit:             "hit",
	EventMiss:            "miss",
	EventSet:             "set",
	EventDelete:          "delete",
	EventExpire:          "expire",
	EventEviction:        "eviction",
	EventCleanup:         "cleanup",
	EventClear:           "clear",
	EventResized:         "resized",
	EventStrategyChanged: "strategyChanged",
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a notification emitted by a manager. Only the fields relevant to
// Type are set:
//
//	hit, miss                          Key
//	set, delete, expire, eviction      Key, Entry
//	cleanup                            Count (entries expired)
//	clear                              Count (entries dropped)
//	resized                            MaxSize, MaxEntries
//	strategyChanged                    Strategy
type Event struct {
	Type       EventType
	Time       time.Time
	Key        string
	Entry      EntrySummary
	Count      int
	MaxSize    int64
	MaxEntries int
	Strategy   Strategy
}

// Listener receives manager events. Events reach every listener in the
// order their operations took effect, one event at a time, and never while
// the manager's lock is held, so listeners may call back into the manager.
// Delivery normally happens on the goroutine that caused the event before
// the operation returns; when another goroutine is already delivering, that
// goroutine delivers it instead. Events caused by a listener are delivered
// after the listener returns.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// Compile-time check that ListenerFunc implements Listener.
var _ Listener = ListenerFunc(nil)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// batch collects events while the manager lock is held.
type batch []Event

func (b *batch) add(e Event) {
	*b = append(*b, e)
}
