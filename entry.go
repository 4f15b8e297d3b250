package boundcache

import "time"

// entry is one cached value plus the bookkeeping the strategies score.
// Its size is measured once at insertion and never recomputed.
type entry[V any] struct {
	key            string
	value          V
	size           int64
	createdAt      time.Time
	lastAccessedAt time.Time
	accessCount    int64
	ttl            time.Duration
	priority       int

	// lastScore is the score from the most recent eviction pass.
	// It is informational only; every pass recomputes.
	lastScore float64
}

func newEntry[V any](key string, value V, size int64, ttl time.Duration, priority int, now time.Time) *entry[V] {
	return &entry[V]{
		key:            key,
		value:          value,
		size:           size,
		createdAt:      now,
		lastAccessedAt: now,
		ttl:            ttl,
		priority:       priority,
	}
}

// isExpired reports whether the TTL has elapsed at now. An entry is still
// live at exactly createdAt+ttl.
func (e *entry[V]) isExpired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// recordAccess must be called exactly once per successful read.
func (e *entry[V]) recordAccess(now time.Time) {
	e.lastAccessedAt = now
	e.accessCount++
}

func (e *entry[V]) evictionScore(s Strategy, now time.Time) float64 {
	e.lastScore = s.score(e.lastAccessedAt, e.accessCount, e.size, e.priority, now)
	return e.lastScore
}

func (e *entry[V]) summary() EntrySummary {
	return EntrySummary{
		Key:            e.key,
		Size:           e.size,
		Priority:       e.priority,
		AccessCount:    e.accessCount,
		TTL:            e.ttl,
		CreatedAt:      e.createdAt,
		LastAccessedAt: e.lastAccessedAt,
		LastScore:      e.lastScore,
	}
}

// EntrySummary is a point-in-time copy of an entry's metadata.
type EntrySummary struct {
	Key            string        `json:"key"`
	Size           int64         `json:"size"`
	Priority       int           `json:"priority"`
	AccessCount    int64         `json:"access_count"`
	TTL            time.Duration `json:"ttl"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	LastScore      float64       `json:"last_score"`
}

// ExpiresAt returns when the entry expires, or the zero time if it never does.
func (s EntrySummary) ExpiresAt() time.Time {
	if s.TTL <= 0 {
		return time.Time{}
	}
	return s.CreatedAt.Add(s.TTL)
}

// Score returns the eviction score the entry had at now under strategy st.
func (s EntrySummary) Score(st Strategy, now time.Time) float64 {
	return st.score(s.LastAccessedAt, s.AccessCount, s.Size, s.Priority, now)
}
