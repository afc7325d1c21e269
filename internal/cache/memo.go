// Package cache provides a thread-safe memo with per-entry expiration and a
// size bound.
package cache

import (
	"sync"
	"time"
)

// now is replaced in tests.
var now = time.Now

type entry[V any] struct {
	value  V
	stored time.Time
}

// Memo maps keys to computed values. Entries older than ttl are ignored
// (ttl <= 0 disables expiry). When more than max entries are stored the
// oldest insertion is evicted (max <= 0 disables the bound).
type Memo[K comparable, V any] struct {
	mu    sync.Mutex
	data  map[K]entry[V]
	order []K
	ttl   time.Duration
	max   int

	hits   int
	misses int
}

// New creates an empty Memo.
func New[K comparable, V any](ttl time.Duration, max int) *Memo[K, V] {
	return &Memo[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
		max:  max,
	}
}

func (c *Memo[K, V]) getLocked(key K) (V, bool) {
	e, ok := c.data[key]
	if !ok || c.expiredLocked(e) {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

func (c *Memo[K, V]) expiredLocked(e entry[V]) bool {
	return c.ttl > 0 && now().Sub(e.stored) >= c.ttl
}

func (c *Memo[K, V]) setLocked(key K, value V) {
	if c.data == nil {
		c.data = make(map[K]entry[V])
	}
	if _, ok := c.data[key]; !ok {
		c.order = append(c.order, key)
	}
	c.data[key] = entry[V]{value: value, stored: now()}

	for c.max > 0 && len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.data, oldest)
	}
}

// GetOrCompute returns the cached value for key or stores and returns the
// result of compute. Errors are not cached. compute runs under the lock,
// so concurrent callers for any key are serialized.
func (c *Memo[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.getLocked(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.setLocked(key, v)
	return v, false, nil
}

// Invalidate drops every entry and resets the counters.
func (c *Memo[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
	c.order = nil
	c.hits, c.misses = 0, 0
}

// Len returns the number of stored entries, expired ones included.
func (c *Memo[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns the hit and miss counters.
func (c *Memo[K, V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
