// Package cache implements the bounded, TTL-expiring dedupe caches used by
// the operator and canceler to avoid reprocessing the same xchain_hash_id.
// Every cache lives inside a single service task and is never shared across
// goroutines outside of its own mutex.
package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Key is the dedupe key type: an xchain_hash_id.
type Key = [32]byte

type entry[V any] struct {
	key        Key
	value      V
	insertedAt time.Time
}

// Bounded is a capacity- and TTL-bounded cache. Insertion past capacity
// evicts the oldest-inserted entry; entries older than ttl are treated as
// absent on lookup (lazy expiry, no background sweep).
type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = oldest insertion
	items    map[Key]*list.Element
	logger   *zap.Logger
	name     string
	warned   bool
}

// New builds a Bounded cache of the given capacity and per-entry TTL. name
// is used only in log output to identify which cache is nearing capacity.
func New[V any](capacity int, ttl time.Duration, logger *zap.Logger, name string) *Bounded[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bounded[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[Key]*list.Element, capacity),
		logger:   logger,
		name:     name,
	}
}

// Insert adds or refreshes key with value, evicting the oldest entry if the
// cache is at capacity.
func (c *Bounded[V]) Insert(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}

	if c.order.Len() >= c.capacity && c.capacity > 0 {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}

	el := c.order.PushBack(&entry[V]{key: key, value: value, insertedAt: time.Now()})
	c.items[key] = el

	c.maybeWarnLocked()
}

// Contains reports whether key is present and unexpired.
func (c *Bounded[V]) Contains(key Key) bool {
	_, ok := c.Get(key)
	return ok
}

// Get returns the value for key if present and unexpired.
func (c *Bounded[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Remove deletes key unconditionally.
func (c *Bounded[V]) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Len returns the current entry count, including any not-yet-lazily-expired
// entries.
func (c *Bounded[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the configured maximum size.
func (c *Bounded[V]) Capacity() int {
	return c.capacity
}

// Clear empties the cache, used on chain-reset (reorg) detection.
func (c *Bounded[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[Key]*list.Element, c.capacity)
	c.warned = false
}

// maybeWarnLocked logs once when the cache crosses 80% of capacity, and
// resets so it can warn again after a Clear.
func (c *Bounded[V]) maybeWarnLocked() {
	if c.capacity <= 0 || c.warned {
		return
	}
	if float64(c.order.Len())/float64(c.capacity) >= 0.8 {
		c.warned = true
		c.logger.Warn("dedupe cache approaching capacity",
			zap.String("cache", c.name),
			zap.Int("len", c.order.Len()),
			zap.Int("capacity", c.capacity),
		)
	}
}

// HashSet is a Bounded cache used purely for membership, keyed on
// xchain_hash_id with no associated metadata.
type HashSet struct {
	inner *Bounded[struct{}]
}

// NewHashSet builds a bounded, TTL-expiring set of xchain_hash_id values.
func NewHashSet(capacity int, ttl time.Duration, logger *zap.Logger, name string) *HashSet {
	return &HashSet{inner: New[struct{}](capacity, ttl, logger, name)}
}

func (s *HashSet) Insert(key Key)         { s.inner.Insert(key, struct{}{}) }
func (s *HashSet) Contains(key Key) bool  { return s.inner.Contains(key) }
func (s *HashSet) Remove(key Key)         { s.inner.Remove(key) }
func (s *HashSet) Len() int               { return s.inner.Len() }
func (s *HashSet) Capacity() int          { return s.inner.Capacity() }
func (s *HashSet) Clear()                 { s.inner.Clear() }

// PendingMap is a Bounded cache carrying arbitrary per-hash scheduling data,
// e.g. a scheduled execution time for an approved withdrawal.
type PendingMap[V any] struct {
	inner *Bounded[V]
}

// NewPendingMap builds a bounded, TTL-expiring map of xchain_hash_id to V.
func NewPendingMap[V any](capacity int, ttl time.Duration, logger *zap.Logger, name string) *PendingMap[V] {
	return &PendingMap[V]{inner: New[V](capacity, ttl, logger, name)}
}

func (m *PendingMap[V]) Insert(key Key, value V) { m.inner.Insert(key, value) }
func (m *PendingMap[V]) Get(key Key) (V, bool)   { return m.inner.Get(key) }
func (m *PendingMap[V]) Contains(key Key) bool   { return m.inner.Contains(key) }
func (m *PendingMap[V]) Remove(key Key)          { m.inner.Remove(key) }
func (m *PendingMap[V]) Len() int                { return m.inner.Len() }
func (m *PendingMap[V]) Capacity() int           { return m.inner.Capacity() }
func (m *PendingMap[V]) Clear()                  { m.inner.Clear() }
