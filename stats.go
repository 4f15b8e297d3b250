package boundcache

// Stats is a point-in-time snapshot of a manager's counters and occupancy.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Deletes     int64 `json:"deletes"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`

	// HitRate is hits/(hits+misses), or 0 before any reads.
	HitRate float64 `json:"hit_rate"`

	CurrentSize    int64 `json:"current_size"`
	CurrentEntries int   `json:"current_entries"`
	MaxSize        int64 `json:"max_size"`
	MaxEntries     int   `json:"max_entries"`

	// Utilization is CurrentSize as a percentage of MaxSize. It can exceed
	// 100 while a single oversized entry is held.
	Utilization float64 `json:"utilization"`

	Strategy Strategy `json:"strategy"`
}

// Stats returns a snapshot of the manager's counters and occupancy.
func (m *Manager[V]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		Hits:           m.counters.hits,
		Misses:         m.counters.misses,
		Sets:           m.counters.sets,
		Deletes:        m.counters.deletes,
		Evictions:      m.counters.evictions,
		Expirations:    m.counters.expirations,
		CurrentSize:    m.currentSize,
		CurrentEntries: m.currentEntries,
		MaxSize:        m.maxSize,
		MaxEntries:     m.maxEntries,
		Strategy:       m.strategy,
	}
	if reads := s.Hits + s.Misses; reads > 0 {
		s.HitRate = float64(s.Hits) / float64(reads)
	}
	if s.MaxSize > 0 {
		s.Utilization = float64(s.CurrentSize) / float64(s.MaxSize) * 100
	}
	return s
}
