package selector

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// cacheKey derives a stable key from the normalized query, k, and platform
// filters. Queries are case-folded and whitespace-collapsed; platforms are
// sorted so filter order doesn't fragment the cache.
func cacheKey(query string, k int, platforms []string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	sorted := make([]string, len(platforms))
	copy(sorted, platforms)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// cacheEntry is one cached selection result.
type cacheEntry struct {
	key        string
	results    []string
	insertedAt time.Time
}

// resultCache is a TTL + LRU cache for selection results. All methods are
// safe for concurrent use. Evictions (expiry or capacity pressure) invoke
// the onEvict hook once per entry.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	onEvict func()
	now     func() time.Time
}

// newResultCache creates a cache with the given TTL and capacity.
// onEvict may be nil.
func newResultCache(ttl time.Duration, maxSize int, onEvict func()) *resultCache {
	if onEvict == nil {
		onEvict = func() {}
	}
	return &resultCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		onEvict: onEvict,
		now:     time.Now,
	}
}

// get returns the cached results for key, if present and unexpired.
// An expired entry is evicted on access.
func (c *resultCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		c.removeLocked(elem)
		c.onEvict()
		return nil, false
	}

	c.order.MoveToFront(elem)

	// Copy so callers can't mutate the cached slice.
	results := make([]string, len(entry.results))
	copy(results, entry.results)
	return results, true
}

// put stores results under key, evicting the least recently used entry when
// the cache is at capacity.
func (c *resultCache) put(key string, results []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]string, len(results))
	copy(stored, results)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.results = stored
		entry.insertedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.onEvict()
	}

	elem := c.order.PushFront(&cacheEntry{
		key:        key,
		results:    stored,
		insertedAt: c.now(),
	})
	c.entries[key] = elem
}

// len returns the current entry count.
func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// purgeExpired evicts every expired entry and returns how many were removed.
func (c *resultCache) purgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if c.now().Sub(entry.insertedAt) >= c.ttl {
			c.removeLocked(elem)
			c.onEvict()
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *resultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
