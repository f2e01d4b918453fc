package discover

import "time"

type timeoutEntry[V any] struct {
	value   V
	expires time.Time
}

// TimeoutMap is a map whose entries expire after a fixed TTL. It backs the
// IP-vote table: votes are ingested on every PONG but aggregation (see
// Reactor.recordIPVote) is left as a future extension, so entries simply
// age out rather than accumulating forever.
type TimeoutMap[K comparable, V any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[K]timeoutEntry[V]
}

// NewTimeoutMap creates an empty TimeoutMap with the given per-entry TTL.
func NewTimeoutMap[K comparable, V any](ttl time.Duration) *TimeoutMap[K, V] {
	return &TimeoutMap[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]timeoutEntry[V]),
	}
}

// Set stores v under k, resetting its TTL.
func (m *TimeoutMap[K, V]) Set(k K, v V) {
	m.entries[k] = timeoutEntry[V]{value: v, expires: m.now().Add(m.ttl)}
}

// Get returns the value stored under k, and false if k is absent or
// expired. An expired entry is evicted on lookup.
func (m *TimeoutMap[K, V]) Get(k K) (V, bool) {
	e, ok := m.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, k)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Prune evicts every expired entry and returns how many were removed.
func (m *TimeoutMap[K, V]) Prune() int {
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries currently stored, including any not
// yet pruned past their expiry.
func (m *TimeoutMap[K, V]) Len() int { return len(m.entries) }
