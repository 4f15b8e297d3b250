package boundcache

import "fmt"

// Verify recomputes the running totals from the stored entries and returns
// an error describing the first mismatch found.
func (m *Manager[V]) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verifyLocked()
}

func (m *Manager[V]) verifyLocked() error {
	var size int64
	for k, e := range m.entries {
		if e.key != k {
			return fmt.Errorf("boundcache: entry %q stored under key %q", e.key, k)
		}
		if e.size < 0 {
			return fmt.Errorf("boundcache: entry %q has negative size %d", k, e.size)
		}
		size += e.size
	}
	if size != m.currentSize {
		return fmt.Errorf("boundcache: size drift: tracked %d, actual %d", m.currentSize, size)
	}
	if len(m.entries) != m.currentEntries {
		return fmt.Errorf("boundcache: entry drift: tracked %d, actual %d", m.currentEntries, len(m.entries))
	}
	return nil
}
