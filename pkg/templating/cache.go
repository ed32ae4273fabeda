package templating

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// CacheConfig contains configuration options for the template cache.
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables
	// caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// TemplateCache caches compiled render functions with LRU eviction and
// optional expiry.
type TemplateCache struct {
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
}

type cacheEntry struct {
	key     string
	render  RenderFn
	expiry  time.Time
	element *list.Element
}

// NewTemplateCache creates a template cache sized from the global
// configuration.
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// NewTemplateCacheWithConfig creates a template cache with the given
// configuration.
func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		cache:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
	}
}

// cacheKey derives a cache key from the template source and the helper
// registry generation. Hashing the source keeps keys compact regardless of
// template size; folding in the generation means templates compiled against
// a superseded helper set are never resurrected.
func cacheKey(sourceName, source string, generation uint64) string {
	h := xxh3.HashString(source)
	h ^= xxh3.HashString(sourceName)
	h ^= xxh3.HashString(strconv.FormatUint(generation, 10))
	return strconv.FormatUint(h, 36)
}

// Get retrieves a compiled template, or nil when absent or expired.
func (tc *TemplateCache) Get(key string) (RenderFn, bool) {
	if tc.config.MaxSize == 0 {
		return nil, false
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, ok := tc.cache[key]
	if !ok {
		return nil, false
	}

	if tc.config.TTL > 0 && time.Now().After(entry.expiry) {
		delete(tc.cache, key)
		tc.lru.Remove(entry.element)
		return nil, false
	}

	tc.lru.MoveToFront(entry.element)
	return entry.render, true
}

// Set adds a compiled template to the cache, evicting the least recently
// used entry when full.
func (tc *TemplateCache) Set(key string, render RenderFn) {
	if tc.config.MaxSize == 0 {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if existing, ok := tc.cache[key]; ok {
		existing.render = render
		if tc.config.TTL > 0 {
			existing.expiry = time.Now().Add(tc.config.TTL)
		}
		tc.lru.MoveToFront(existing.element)
		return
	}

	if tc.lru.Len() >= tc.config.MaxSize {
		oldest := tc.lru.Back()
		if oldest != nil {
			oldEntry := oldest.Value.(*cacheEntry)
			delete(tc.cache, oldEntry.key)
			tc.lru.Remove(oldest)
		}
	}

	entry := &cacheEntry{
		key:    key,
		render: render,
	}
	if tc.config.TTL > 0 {
		entry.expiry = time.Now().Add(tc.config.TTL)
	}

	entry.element = tc.lru.PushFront(entry)
	tc.cache[key] = entry
}

// Clear removes all templates from the cache.
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.cache = make(map[string]*cacheEntry)
	tc.lru = list.New()
}

// Size returns the current number of cached templates.
func (tc *TemplateCache) Size() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.cache)
}
