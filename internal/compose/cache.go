package compose

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of results the default cache keeps.
const DefaultCacheSize = 256

// Cache stores composition results by cache key. Implementations must be
// safe for concurrent use. Stored results are shared and must not be
// modified.
type Cache interface {
	Get(key string) (*Result, bool)
	Add(key string, r *Result)
	Len() int
	Purge()
}

// LRUCache is a bounded cache that evicts the least recently used result.
type LRUCache struct {
	entries *lru.Cache[string, *Result]
}

// NewLRUCache returns a cache holding up to size results. A size of zero
// or less selects DefaultCacheSize.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, *Result](size)
	return &LRUCache{entries: entries}
}

func (c *LRUCache) Get(key string) (*Result, bool) {
	return c.entries.Get(key)
}

func (c *LRUCache) Add(key string, r *Result) {
	c.entries.Add(key, r)
}

func (c *LRUCache) Len() int {
	return c.entries.Len()
}

func (c *LRUCache) Purge() {
	c.entries.Purge()
}

// NoCache disables memoization.
type NoCache struct{}

func (NoCache) Get(string) (*Result, bool) { return nil, false }
func (NoCache) Add(string, *Result)        {}
func (NoCache) Len() int                   { return 0 }
func (NoCache) Purge()                     {}
