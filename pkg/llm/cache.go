package llm

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheCapacity bounds the response cache when no capacity is configured.
const DefaultCacheCapacity = 256

// HashFunc derives the cache key of a prompt.
type HashFunc func(prompt string) string

// XXHash is the default HashFunc.
func XXHash(prompt string) string {
	return strconv.FormatUint(xxhash.Sum64String(prompt), 16)
}

type cacheEntry struct {
	key      string
	value    string
	storedAt time.Time
}

// ResponseCache keeps completions keyed by a hash of the prompt. When full,
// the oldest stored entry is evicted. Entries never expire otherwise.
type ResponseCache struct {
	mu       sync.Mutex
	capacity int
	hash     HashFunc
	now      func() time.Time
	order    *list.List
	entries  map[string]*list.Element
	hits     uint64
	misses   uint64
}

// CacheOption configures a ResponseCache.
type CacheOption func(*ResponseCache)

// WithCacheClock overrides the clock used to stamp entries.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *ResponseCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheHash overrides the prompt hash.
func WithCacheHash(hash HashFunc) CacheOption {
	return func(c *ResponseCache) {
		if hash != nil {
			c.hash = hash
		}
	}
}

// NewResponseCache builds a cache holding at most capacity entries.
func NewResponseCache(capacity int, opts ...CacheOption) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &ResponseCache{
		capacity: capacity,
		hash:     XXHash,
		now:      time.Now,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached completion for prompt.
func (c *ResponseCache) Get(prompt string) (string, bool) {
	key := c.hash(prompt)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.hits++
		return el.Value.(*cacheEntry).value, true
	}
	c.misses++
	return "", false
}

// Put stores a completion. Re-storing a prompt refreshes its value and age.
func (c *ResponseCache) Put(prompt, value string) {
	key := c.hash(prompt)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.storedAt = c.now()
		c.order.MoveToBack(el)
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, value: value, storedAt: c.now()})
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Oldest reports when the next entry to be evicted was stored.
func (c *ResponseCache) Oldest() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if front := c.order.Front(); front != nil {
		return front.Value.(*cacheEntry).storedAt, true
	}
	return time.Time{}, false
}

// Stats returns hit and miss counts.
func (c *ResponseCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
