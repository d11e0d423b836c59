package layout

import "container/list"

// DefaultCacheCapacity bounds the number of memoized levels. Tessellation is
// the expensive step, but entries hold full polygon sets, so retention is a
// bounded LRU rather than an unbounded map.
const DefaultCacheCapacity = 64

// Cache memoizes computed levels per [Key] with LRU eviction. It is owned by
// the render orchestrator and written by nothing else, so it needs no
// locking of its own.
type Cache struct {
	capacity int
	entries  map[Key]*list.Element
	order    *list.List // front = most recent
	version  uint64
}

// NewCache creates a cache bounded to capacity entries.
// Non-positive capacities select DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the memoized level for key, or nil on a miss. Two consecutive
// calls with the same key return the identical entry object.
func (c *Cache) Get(key Key) *Level {
	el, ok := c.entries[key]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*Level)
}

// NeedsRecompute reports whether a layout pass is required for key.
func (c *Cache) NeedsRecompute(key Key) bool {
	_, ok := c.entries[key]
	return !ok
}

// Put stores a level under key, overwriting (never merging with) any
// previous entry and stamping a monotonically increasing version. The least
// recently used entry is evicted when the cache is full.
func (c *Cache) Put(key Key, lvl *Level) {
	c.version++
	lvl.Key = key
	lvl.Version = c.version

	if el, ok := c.entries[key]; ok {
		el.Value = lvl
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*Level).Key)
		}
	}
	c.entries[key] = c.order.PushFront(lvl)
}

// Invalidate drops every entry belonging to a snapshot. Used when a snapshot
// is recomputed or removed.
func (c *Cache) Invalidate(snapshotID string) {
	for key, el := range c.entries {
		if key.SnapshotID == snapshotID {
			c.order.Remove(el)
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries, for the status readout.
func (c *Cache) Len() int { return c.order.Len() }

// Purge drops all entries.
func (c *Cache) Purge() {
	c.entries = make(map[Key]*list.Element, c.capacity)
	c.order.Init()
}
