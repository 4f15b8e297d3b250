// Package boundcache provides an in-process key/value cache bounded by both
// a byte budget and an entry-count budget, with pluggable eviction
// strategies and per-entry time-to-live.
//
// Example usage:
//
//	m, err := boundcache.New[[]byte](
//	    boundcache.WithMaxSize(64<<20),
//	    boundcache.WithMaxEntries(10_000),
//	    boundcache.WithStrategy(boundcache.StrategyCombined),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	m.Set("index.html", page, boundcache.WithPriority(4), boundcache.WithTTL(time.Hour))
//	if v, ok := m.Get("index.html"); ok {
//	    w.Write(v)
//	}
package boundcache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/boundcache/boundcache/internal/sizer"
	"github.com/boundcache/boundcache/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrEmptyKey indicates Set was called with an empty key.
	ErrEmptyKey = errors.New("boundcache: empty key")

	// ErrInvalidEntry indicates a negative size or TTL was supplied to Set.
	ErrInvalidEntry = errors.New("boundcache: invalid entry")

	// ErrUnknownStrategy indicates an eviction strategy outside the supported set.
	ErrUnknownStrategy = errors.New("boundcache: unknown eviction strategy")

	// ErrInvalidConfig indicates a manager option with an unusable value.
	ErrInvalidConfig = errors.New("boundcache: invalid configuration")

	// ErrClosed indicates the manager has been closed.
	ErrClosed = errors.New("boundcache: manager closed")
)

// Manager owns a set of entries and keeps them within its size and count
// budgets. A Manager is safe for concurrent use by multiple goroutines.
type Manager[V any] struct {
	mu             sync.RWMutex
	entries        map[string]*entry[V]
	currentSize    int64
	currentEntries int
	maxSize        int64
	maxEntries     int
	strategy       Strategy
	defaultTTL     time.Duration
	counters       counters
	closed         bool

	name   string
	now    func() time.Time
	stats  stats.Collector
	logger *zap.Logger

	lmu       sync.RWMutex
	listeners []*subscription

	// qmu guards the pending event queue. Events are appended while mu is
	// held and delivered by one goroutine at a time, in append order.
	qmu         sync.Mutex
	pending     []Event
	dispatching bool

	stop          chan struct{}
	wg            sync.WaitGroup
	sweepDelivery atomic.Bool
}

// counters are lifetime totals; Clear does not reset them.
type counters struct {
	hits        int64
	misses      int64
	sets        int64
	deletes     int64
	evictions   int64
	expirations int64
}

type subscription struct {
	l Listener
}

// New creates a Manager with the given options and starts its expiry sweep.
// If no options are provided, sensible defaults are used.
func New[V any](opts ...Option) (*Manager[V], error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size %d must be positive", ErrInvalidConfig, cfg.maxSize)
	}
	if cfg.maxEntries <= 0 {
		return nil, fmt.Errorf("%w: max entries %d must be positive", ErrInvalidConfig, cfg.maxEntries)
	}
	if cfg.defaultTTL < 0 {
		return nil, fmt.Errorf("%w: default TTL %s is negative", ErrInvalidConfig, cfg.defaultTTL)
	}
	if !cfg.strategy.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(cfg.strategy))
	}

	logger := cfg.logger
	if cfg.name != "" {
		logger = logger.With(zap.String("cache", cfg.name))
	}

	m := &Manager[V]{
		entries:    make(map[string]*entry[V]),
		maxSize:    cfg.maxSize,
		maxEntries: cfg.maxEntries,
		strategy:   cfg.strategy,
		defaultTTL: cfg.defaultTTL,
		name:       cfg.name,
		now:        cfg.now,
		stats:      cfg.stats,
		logger:     logger,
		stop:       make(chan struct{}),
	}
	for _, l := range cfg.listeners {
		m.listeners = append(m.listeners, &subscription{l: l})
	}

	if cfg.cleanupInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop(cfg.cleanupInterval)
	}

	m.logger.Debug("cache initialized",
		zap.Int64("maxSize", m.maxSize),
		zap.Int("maxEntries", m.maxEntries),
		zap.Stringer("strategy", m.strategy),
		zap.Duration("cleanupInterval", cfg.cleanupInterval),
	)

	return m, nil
}

// Set stores value under key, replacing any existing entry. Room is made by
// evicting entries one at a time under the active strategy. A value larger
// than the whole byte budget is still inserted once everything else has
// been evicted; callers needing a hard cap must check sizes themselves.
func (m *Manager[V]) Set(key string, value V, opts ...SetOption) error {
	if key == "" {
		return ErrEmptyKey
	}

	so := setOptions{priority: DefaultPriority}
	for _, opt := range opts {
		opt(&so)
	}
	if so.sizeSet && so.size < 0 {
		return fmt.Errorf("%w: negative size %d for %q", ErrInvalidEntry, so.size, key)
	}
	if so.ttl < 0 {
		return fmt.Errorf("%w: negative TTL %s for %q", ErrInvalidEntry, so.ttl, key)
	}

	size := so.size
	if !so.sizeSet {
		size = sizer.Estimate(value)
	}

	var b batch
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	ttl := m.defaultTTL
	if so.ttlSet {
		ttl = so.ttl
	}
	now := m.now()

	if old, ok := m.entries[key]; ok {
		reason := EventDelete
		if old.isExpired(now) {
			reason = EventExpire
		}
		m.removeLocked(old, reason, now, &b)
	}

	m.ensureCapacityLocked(size, 1, now, &b)

	e := newEntry(key, value, size, ttl, so.priority, now)
	m.entries[key] = e
	m.currentSize += size
	m.currentEntries++
	m.counters.sets++
	m.stats.IncCounter(stats.MetricSets, 1)
	m.recordOccupancyLocked()
	b.add(Event{Type: EventSet, Time: now, Key: key, Entry: e.summary()})

	m.assertLocked()
	m.publishLocked(b)
	m.mu.Unlock()

	m.dispatch()
	return nil
}

// Get returns the value stored under key. An entry whose TTL has elapsed is
// removed and reported as a miss.
func (m *Manager[V]) Get(key string) (V, bool) {
	var (
		b    batch
		zero V
	)

	m.mu.Lock()
	now := m.now()
	e, ok := m.entries[key]
	if !ok {
		m.recordMissLocked()
		b.add(Event{Type: EventMiss, Time: now, Key: key})
		m.publishLocked(b)
		m.mu.Unlock()
		m.dispatch()
		return zero, false
	}

	if e.isExpired(now) {
		m.removeLocked(e, EventExpire, now, &b)
		m.recordMissLocked()
		m.assertLocked()
		m.publishLocked(b)
		m.mu.Unlock()
		m.dispatch()
		return zero, false
	}

	e.recordAccess(now)
	m.counters.hits++
	m.stats.IncCounter(stats.MetricHits, 1)
	b.add(Event{Type: EventHit, Time: now, Key: key})
	value := e.value
	m.publishLocked(b)
	m.mu.Unlock()

	m.dispatch()
	return value, true
}

// Peek returns the value stored under key without recording an access or
// touching hit/miss statistics. Expired entries are reported absent but
// left for Get or the sweep to remove.
func (m *Manager[V]) Peek(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero V
	e, ok := m.entries[key]
	if !ok || e.isExpired(m.now()) {
		return zero, false
	}
	return e.value, true
}

// Has reports whether key is present and unexpired. It does not count
// toward hit/miss statistics and does not remove expired entries.
func (m *Manager[V]) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	return ok && !e.isExpired(m.now())
}

// Delete removes key and reports whether it was present.
func (m *Manager[V]) Delete(key string) bool {
	var b batch

	m.mu.Lock()
	e, ok := m.entries[key]
	if ok {
		m.removeLocked(e, EventDelete, m.now(), &b)
		m.assertLocked()
	}
	m.publishLocked(b)
	m.mu.Unlock()

	m.dispatch()
	return ok
}

// Clear drops every entry. Lifetime counters are kept.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	count := m.currentEntries
	m.entries = make(map[string]*entry[V])
	m.currentSize = 0
	m.currentEntries = 0
	m.recordOccupancyLocked()
	m.publishLocked(batch{{Type: EventClear, Time: m.now(), Count: count}})
	m.mu.Unlock()

	m.logger.Debug("cache cleared", zap.Int("entries", count))
	m.dispatch()
}

// EvictOne evicts the single worst entry under the active strategy.
// It returns false if the cache is empty.
func (m *Manager[V]) EvictOne() bool {
	var b batch

	m.mu.Lock()
	ok := m.evictOneLocked(m.now(), &b)
	m.assertLocked()
	m.publishLocked(b)
	m.mu.Unlock()

	m.dispatch()
	return ok
}

// Cleanup removes every expired entry and returns how many were removed.
// It runs periodically in the background and may also be called directly.
func (m *Manager[V]) Cleanup() int {
	n := m.sweep()
	m.dispatch()
	return n
}

// sweep removes expired entries and queues their events without
// delivering them.
func (m *Manager[V]) sweep() int {
	var b batch
	start := time.Now()

	m.mu.Lock()
	now := m.now()
	var expired []*entry[V]
	for _, e := range m.entries {
		if e.isExpired(now) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		m.removeLocked(e, EventExpire, now, &b)
	}
	b.add(Event{Type: EventCleanup, Time: now, Count: len(expired)})
	m.assertLocked()
	m.publishLocked(b)
	m.mu.Unlock()

	elapsed := time.Since(start)
	m.stats.ObserveHistogram(stats.MetricCleanupSeconds, elapsed.Seconds())
	if len(expired) > 0 {
		m.logger.Debug("expired entries swept",
			zap.Int("expired", len(expired)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return len(expired)
}

// Resize changes the budgets and evicts until the cache fits them.
// A non-positive argument keeps the current value. It returns the number
// of entries evicted.
func (m *Manager[V]) Resize(maxSize int64, maxEntries int) int {
	var b batch

	m.mu.Lock()
	if maxSize > 0 {
		m.maxSize = maxSize
	}
	if maxEntries > 0 {
		m.maxEntries = maxEntries
	}
	now := m.now()
	b.add(Event{Type: EventResized, Time: now, MaxSize: m.maxSize, MaxEntries: m.maxEntries})
	evicted := m.ensureCapacityLocked(0, 0, now, &b)
	m.assertLocked()
	newSize, newEntries := m.maxSize, m.maxEntries
	m.publishLocked(b)
	m.mu.Unlock()

	m.logger.Debug("cache resized",
		zap.Int64("maxSize", newSize),
		zap.Int("maxEntries", newEntries),
		zap.Int("evicted", evicted),
	)

	m.dispatch()
	return evicted
}

// SetEvictionStrategy switches the strategy used by subsequent evictions.
func (m *Manager[V]) SetEvictionStrategy(s Strategy) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}

	m.mu.Lock()
	prev := m.strategy
	m.strategy = s
	m.publishLocked(batch{{Type: EventStrategyChanged, Time: m.now(), Strategy: s}})
	m.mu.Unlock()

	m.logger.Debug("eviction strategy changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", s),
	)

	m.dispatch()
	return nil
}

// Strategy returns the active eviction strategy.
func (m *Manager[V]) Strategy() Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.strategy
}

// Len returns the number of stored entries, including expired entries not
// yet swept.
func (m *Manager[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentEntries
}

// Size returns the estimated bytes held by stored entries.
func (m *Manager[V]) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentSize
}

// Keys returns the stored keys in no particular order.
func (m *Manager[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Entries returns a summary of every stored entry in no particular order.
func (m *Manager[V]) Entries() []EntrySummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EntrySummary, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.summary())
	}
	return out
}

// Subscribe registers l and returns a function that unregisters it.
func (m *Manager[V]) Subscribe(l Listener) (cancel func()) {
	sub := &subscription{l: l}

	m.lmu.Lock()
	m.listeners = append(m.listeners, sub)
	m.lmu.Unlock()

	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		for i, s := range m.listeners {
			if s == sub {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close stops the background sweep. Stored entries stay readable but Set
// fails with ErrClosed. Calling Close twice returns ErrClosed.
//
// Close waits for the sweep goroutine to exit unless that goroutine is
// delivering events, as it is when a listener calls Close; it then exits
// once the listener returns.
func (m *Manager[V]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	if !m.sweepDelivery.Load() {
		m.wg.Wait()
	}
	m.logger.Debug("cache closed")
	return nil
}

func (m *Manager[V]) sweepLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
			m.sweepDelivery.Store(true)
			m.dispatch()
			m.sweepDelivery.Store(false)
		}
	}
}

// ensureCapacityLocked evicts until incomingEntries more entries and
// incomingSize more bytes fit, or the cache is empty.
func (m *Manager[V]) ensureCapacityLocked(incomingSize int64, incomingEntries int, now time.Time, b *batch) int {
	evicted := 0
	for m.currentEntries+incomingEntries > m.maxEntries {
		if !m.evictOneLocked(now, b) {
			return evicted
		}
		evicted++
	}
	// Written as a difference so a huge incomingSize cannot overflow.
	for m.currentSize > m.maxSize-incomingSize {
		if !m.evictOneLocked(now, b) {
			return evicted
		}
		evicted++
	}
	return evicted
}

// evictOneLocked removes the worst entry under the active strategy using a
// single linear scan. Ties go to whichever entry the map yields first.
func (m *Manager[V]) evictOneLocked(now time.Time, b *batch) bool {
	start := time.Now()

	var (
		victim    *entry[V]
		victimScr float64
	)
	for _, e := range m.entries {
		s := e.evictionScore(m.strategy, now)
		if victim == nil || m.strategy.worse(s, victimScr) {
			victim, victimScr = e, s
		}
	}

	m.stats.ObserveHistogram(stats.MetricEvictionScanSeconds, time.Since(start).Seconds())
	if victim == nil {
		return false
	}

	m.logger.Debug("entry evicted",
		zap.String("key", victim.key),
		zap.Int64("size", victim.size),
		zap.Stringer("strategy", m.strategy),
		zap.Float64("score", victimScr),
	)
	m.removeLocked(victim, EventEviction, now, b)
	return true
}

// removeLocked deletes e and accounts for it under reason, which must be
// EventDelete, EventExpire or EventEviction.
func (m *Manager[V]) removeLocked(e *entry[V], reason EventType, now time.Time, b *batch) {
	delete(m.entries, e.key)
	m.currentSize -= e.size
	m.currentEntries--

	switch reason {
	case EventDelete:
		m.counters.deletes++
		m.stats.IncCounter(stats.MetricDeletes, 1)
	case EventExpire:
		m.counters.expirations++
		m.stats.IncCounter(stats.MetricExpirations, 1)
	case EventEviction:
		m.counters.evictions++
		m.stats.IncCounter(stats.MetricEvictions, 1)
	}
	m.recordOccupancyLocked()

	b.add(Event{Type: reason, Time: now, Key: e.key, Entry: e.summary()})
}

func (m *Manager[V]) recordMissLocked() {
	m.counters.misses++
	m.stats.IncCounter(stats.MetricMisses, 1)
}

func (m *Manager[V]) recordOccupancyLocked() {
	m.stats.SetGauge(stats.MetricSizeBytes, m.currentSize)
	m.stats.SetGauge(stats.MetricEntries, int64(m.currentEntries))
}

// publishLocked queues b for delivery. Holding m.mu while queueing keeps
// the queue in the order operations took effect.
func (m *Manager[V]) publishLocked(b batch) {
	if len(b) == 0 {
		return
	}
	m.qmu.Lock()
	m.pending = append(m.pending, b...)
	m.qmu.Unlock()
}

// dispatch delivers queued events to every listener. Only one goroutine
// delivers at a time; a caller that finds delivery in progress returns and
// leaves its events to that goroutine, which drains the queue before it
// stops. It must be called without m.mu held.
func (m *Manager[V]) dispatch() {
	m.qmu.Lock()
	if m.dispatching || len(m.pending) == 0 {
		m.qmu.Unlock()
		return
	}
	m.dispatching = true

	for len(m.pending) > 0 {
		evs := m.pending
		m.pending = nil
		m.qmu.Unlock()

		m.lmu.RLock()
		subs := m.listeners
		m.lmu.RUnlock()
		for _, ev := range evs {
			for _, s := range subs {
				s.l.OnEvent(ev)
			}
		}

		m.qmu.Lock()
	}
	m.dispatching = false
	m.qmu.Unlock()
}
