package cache

import (
	"bytes"
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

const defaultLocalEntries = 256

// LocalCache is the in-process response cache: a TTL map bounded by an LRU
// list. Values are copied in and out so callers may reuse their buffers.
type LocalCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
	now      func() time.Time

	hits, misses, evictions uint64
}

type localEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// LocalStats is a point-in-time view of the cache
type LocalStats struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Expired   int    `json:"expired"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Utilization is the share of capacity in use
func (s LocalStats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Entries) / float64(s.Capacity)
}

// NewLocalCache holds at most capacity entries; non-positive means 256
func NewLocalCache(capacity int) *LocalCache {
	if capacity <= 0 {
		capacity = defaultLocalEntries
	}
	return &LocalCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, ErrKeyNotFound
	}
	entry := el.Value.(*localEntry)
	if !c.now().Before(entry.expires) {
		c.remove(el)
		c.misses++
		return nil, ErrKeyNotFound
	}

	c.order.MoveToFront(el)
	c.hits++
	return bytes.Clone(entry.value), nil
}

func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*localEntry)
		entry.value = bytes.Clone(value)
		entry.expires = expires
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&localEntry{key: key, value: bytes.Clone(value), expires: expires})
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
		c.evictions++
	}
	return nil
}

func (c *LocalCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if el, ok := c.entries[key]; ok {
			c.remove(el)
		}
	}
	return nil
}

// InvalidatePattern drops key pattern exactly, or every key sharing its
// prefix when pattern ends in '*'
func (c *LocalCache) InvalidatePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix, wildcard := strings.CutSuffix(pattern, "*")
	for key, el := range c.entries {
		if key == pattern || (wildcard && strings.HasPrefix(key, prefix)) {
			c.remove(el)
		}
	}
	return nil
}

func (c *LocalCache) Ping(context.Context) error { return nil }

func (c *LocalCache) Close() error { return nil }

// Size counts entries including expired ones not yet collected
func (c *LocalCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CleanupExpired drops expired entries and reports how many went
func (c *LocalCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*localEntry).expires) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LocalCache) Stats() LocalStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if !now.Before(el.Value.(*localEntry).expires) {
			expired++
		}
	}
	return LocalStats{
		Entries:   c.order.Len(),
		Capacity:  c.capacity,
		Expired:   expired,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// AutoCleanup runs CleanupExpired every interval until ctx is done
func (c *LocalCache) AutoCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanupExpired()
			}
		}
	}()
}

func (c *LocalCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*localEntry).key)
}
