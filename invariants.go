//go:build !boundcachedebug

package boundcache

// assertLocked is a no-op outside boundcachedebug builds.
func (m *Manager[V]) assertLocked() {}
