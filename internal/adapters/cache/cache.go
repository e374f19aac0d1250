// Package cache keeps recently rendered artifacts keyed by plan content.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/drillsheet/pkg/metrics"
)

// Cache maps content keys to rendered bytes.
type Cache interface {
	// Get returns the bytes stored under key and whether they were present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put stores val under key, evicting the oldest entry when full.
	Put(ctx context.Context, key string, val []byte)

	// Remove drops key if present.
	Remove(ctx context.Context, key string)

	Size() int64
}

// node is one entry in the insertion-ordered list.
type node struct {
	key  string
	val  []byte
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.val = nil
	n.next = nil
}

// inMemoryCache is a bounded map whose entries are also linked newest-first,
// so eviction drops the tail (the oldest insert). maxSize <= 0 disables
// storage entirely.
type inMemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryCache creates a cache holding at most WithMaxSize entries.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[string]*node)
	c.nodePool = sync.Pool{New: func() any { return &node{} }}
	return c
}

// Get implements Cache.
func (c *inMemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		metrics.RecordRenderCacheLookup("miss")
		return nil, false
	}
	metrics.RecordRenderCacheLookup("hit")
	return n.val, true
}

// Put implements Cache. Re-putting an existing key replaces its value
// without changing its age.
func (c *inMemoryCache) Put(_ context.Context, key string, val []byte) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.val = val
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	n := c.nodePool.Get().(*node)
	n.key = key
	n.val = val
	n.next = c.head
	c.head = n
	c.entries[key] = n
	metrics.UpdateRenderCacheEntries(c.size.Add(1))
}

// Remove implements Cache.
func (c *inMemoryCache) Remove(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)

	if c.head == n {
		c.head = n.next
	} else {
		cur := c.head
		for cur != nil && cur.next != n {
			cur = cur.next
		}
		if cur != nil {
			cur.next = n.next
		}
	}
	n.reset()
	c.nodePool.Put(n)
	metrics.UpdateRenderCacheEntries(c.size.Add(-1))
}

// evictOldest removes the tail of the list. Caller holds c.mu.
func (c *inMemoryCache) evictOldest() {
	if c.head == nil {
		return
	}

	var prev *node
	cur := c.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		c.head = nil
	} else {
		prev.next = nil
	}
	delete(c.entries, cur.key)
	cur.reset()
	c.nodePool.Put(cur)
	metrics.UpdateRenderCacheEntries(c.size.Add(-1))
}

// Size returns the number of cached entries.
func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
