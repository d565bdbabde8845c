package headers

import "container/list"

// cacheEntry is one memoized normalization result.
type cacheEntry struct {
	key     cacheKey
	headers []string
	merged  bool
}

type cacheKey struct {
	path      string
	mtimeUnix int64
	sheet     string
	headerRow int
	skiprows  string
}

// lruCache is a fixed-capacity LRU map for header results. It is not safe
// for concurrent use; Normalizer serializes access.
type lruCache struct {
	capacity int
	order    *list.List
	items    map[cacheKey]*list.Element
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element, capacity),
	}
}

func (c *lruCache) get(key cacheKey) (*cacheEntry, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry), true
}

func (c *lruCache) put(entry *cacheEntry) {
	if elem, ok := c.items[entry.key]; ok {
		elem.Value = entry
		c.order.MoveToFront(elem)
		return
	}
	c.items[entry.key] = c.order.PushFront(entry)
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int { return c.order.Len() }
