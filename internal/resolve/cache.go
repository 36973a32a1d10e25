package resolve

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// entry is a cached resolution result. ok=false records that the
// address has no name, so repeated misses do not repeat the lookup.
type entry struct {
	hostname string
	ok       bool
}

// cache is a bounded LRU over resolution results. simplelru is not
// safe for concurrent use, so the cache owns the lock and the hit and
// miss counters live under it.
type cache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, entry]
	hits   uint64
	misses uint64
}

func newCache(size int) (*cache, error) {
	lru, err := simplelru.NewLRU[string, entry](size, nil)
	if err != nil {
		return nil, err
	}
	return &cache{lru: lru}, nil
}

func (c *cache) get(ip string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(ip)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

func (c *cache) add(ip string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(ip, e)
}

func (c *cache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: c.lru.Len()}
}
