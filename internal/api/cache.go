package api

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheExpiration = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// answerCache holds query answers that are expensive to rebuild. Every
// successful execute invalidates it. Entries computed before an
// invalidation are never stored after it.
type answerCache struct {
	mu         sync.Mutex
	generation uint64
	cache      *gocache.Cache
}

func newAnswerCache(expiration, cleanup time.Duration) *answerCache {
	return &answerCache{cache: gocache.New(expiration, cleanup)}
}

// Generation returns the token to pass to Set for an answer computed now.
func (c *answerCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Get returns the cached answer for key.
func (c *answerCache) Get(key string) (Answer, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	a, ok := v.(Answer)
	return a, ok
}

// Set stores a under key unless the cache was flushed after generation.
func (c *answerCache) Set(key string, a Answer, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return
	}
	c.cache.Set(key, a, gocache.DefaultExpiration)
}

// Flush drops every entry.
func (c *answerCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Flush()
}
