package overpass

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
)

// CachedRoadSource wraps a RoadSource with an in-memory LRU cache keyed on
// the requested bounds.
type CachedRoadSource struct {
	inner   domain.RoadSource
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedRoadSource creates a cache decorator around a road source.
func NewCachedRoadSource(inner domain.RoadSource, maxEntries int, metrics *observability.Metrics) *CachedRoadSource {
	return &CachedRoadSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedRoadSource) FetchRoads(ctx context.Context, bound orb.Bound) ([]domain.RoadFeature, error) {
	key := boundKey(bound)
	if roads, ok := c.cache.get(key); ok {
		c.metrics.RoadFetchCache.WithLabelValues("hit").Inc()
		return roads, nil
	}
	c.metrics.RoadFetchCache.WithLabelValues("miss").Inc()

	roads, err := c.inner.FetchRoads(ctx, bound)
	if err != nil {
		return nil, err
	}
	// Empty results are not cached so a flaky upstream can be retried.
	if len(roads) > 0 {
		c.cache.put(key, roads)
	}
	return roads, nil
}

func boundKey(b orb.Bound) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
}

// lruCache is a simple thread-safe LRU cache of road sets.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	roads []domain.RoadFeature
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.RoadFeature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.roads, true
}

func (c *lruCache) put(key string, roads []domain.RoadFeature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.roads = roads
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, roads: roads}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictOldest() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
