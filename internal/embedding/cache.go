package embedding

import (
	"container/list"
	"sync"
)

// EncodingCache keeps the most recently embedded texts. Cached encodings are
// shared between callers and must not be modified.
type EncodingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	hits     uint64
	misses   uint64
}

type cachedEncoding struct {
	text string
	enc  *Encoding
}

// CacheStats reports cache occupancy and lookup counters.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewEncodingCache returns a cache holding at most capacity texts. A capacity
// of zero or less disables caching, but lookups are still counted.
func NewEncodingCache(capacity int) *EncodingCache {
	return &EncodingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Lookup returns the encoding cached for text.
func (c *EncodingCache) Lookup(text string) (*Encoding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedEncoding).enc, true
}

// Store caches enc for text and drops the least recently used text when full.
// A text that is already cached keeps its first encoding, so every caller
// sees the same rows.
func (c *EncodingCache) Store(text string, enc *Encoding) *Encoding {
	if c.capacity <= 0 {
		return enc
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cachedEncoding).enc
	}
	c.entries[text] = c.order.PushFront(&cachedEncoding{text: text, enc: enc})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedEncoding).text)
	}
	return enc
}

// Stats returns a snapshot of the cache counters.
func (c *EncodingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: c.order.Len(), Hits: c.hits, Misses: c.misses}
}
