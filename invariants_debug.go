//go:build boundcachedebug

package boundcache

// assertLocked panics if the running totals drift from the stored entries.
func (m *Manager[V]) assertLocked() {
	if err := m.verifyLocked(); err != nil {
		panic(err)
	}
}
