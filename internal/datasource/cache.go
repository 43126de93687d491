package datasource

import (
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/fairway-edge/internal/metrics"
)

// ResponseCache keeps decoded upstream responses that change slowly (schedule, field, ratings)
type ResponseCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewResponseCache creates a response cache; a zero ttl disables caching
func NewResponseCache(ttl time.Duration) *ResponseCache {
	cleanup := ttl * 2
	if ttl <= 0 {
		cleanup = time.Minute
	}
	return &ResponseCache{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func cacheKey(endpoint, tour string) string {
	return fmt.Sprintf("%s:%s", endpoint, tour)
}

// Get retrieves a cached value
func (rc *ResponseCache) Get(key string) (interface{}, bool) {
	if rc.ttl <= 0 {
		return nil, false
	}
	if v, found := rc.cache.Get(key); found {
		rc.hitCount.Add(1)
		metrics.RecordCacheLookup(true)
		return v, true
	}
	rc.missCount.Add(1)
	metrics.RecordCacheLookup(false)
	return nil, false
}

// Set stores a value for the configured ttl
func (rc *ResponseCache) Set(key string, value interface{}) {
	if rc.ttl <= 0 {
		return
	}
	rc.cache.Set(key, value, rc.ttl)
}

// Flush drops every cached response
func (rc *ResponseCache) Flush() {
	rc.cache.Flush()
}

// Stats returns hit and miss counts
func (rc *ResponseCache) Stats() (hits, misses uint64) {
	return rc.hitCount.Load(), rc.missCount.Load()
}
