// Package access resolves the effective permissions and column grants of a
// principal, merging role grants with per-user overrides behind a TTL cache.
package access

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores resolved grant lists. Entries expire after TTL; there is no
// push-based invalidation, so revocations stay effective until expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]string, bool)
	Set(key string, values []string)
	TTL() time.Duration
}

// lruCache backs the default cache with an expirable LRU.
type lruCache struct {
	entries *lru.LRU[string, []string]
	ttl     time.Duration
}

// NewCache creates the default grant cache. size bounds the entry count and
// ttl bounds the staleness window of revoked grants.
func NewCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &lruCache{
		entries: lru.NewLRU[string, []string](size, nil, ttl),
		ttl:     ttl,
	}
}

func (c *lruCache) Get(key string) ([]string, bool) {
	return c.entries.Get(key)
}

func (c *lruCache) Set(key string, values []string) {
	c.entries.Add(key, values)
}

func (c *lruCache) TTL() time.Duration {
	return c.ttl
}
