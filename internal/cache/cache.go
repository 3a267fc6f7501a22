// Package cache memoizes resolved inheritance chains. Entries are keyed by
// template name plus a hash of the resolution context, expire by TTL, and
// are evicted least-recently-used when the cache is full.
package cache

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// Entry stores a cached chain with access metadata.
type Entry struct {
	Value        *rtbtypes.InheritanceChain
	Timestamp    time.Time
	TTL          time.Duration
	AccessCount  int64
	LastAccessed time.Time
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
}

// ChainCache is a TTL + LRU cache owned by a single store instance.
// Operations are cheap, so one mutex covers everything.
type ChainCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64

	// now is swappable for TTL tests.
	now func() time.Time
}

// New creates a cache holding at most maxSize entries with the given
// default TTL.
func New(maxSize int, ttl time.Duration) *ChainCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ChainCache{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key builds the composite cache key for a template name and resolution
// context: name + ":" + fnv64a(canonical context).
func Key(templateName string, rctx rtbtypes.ResolutionContext) string {
	h := fnv.New64a()
	h.Write([]byte(rctx.CanonicalKey()))
	return templateName + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached chain for key. Expired entries fail closed: the
// stale entry is evicted as a side effect and the lookup reports a miss.
// Hits bump the access counters used by LRU eviction and search ranking.
func (c *ChainCache) Get(key string) (*rtbtypes.InheritanceChain, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.Timestamp) > e.TTL {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		logging.CacheDebug("expired entry evicted: %s", key)
		return nil, false
	}

	e.AccessCount++
	e.LastAccessed = c.now()
	c.hits++
	return e.Value, true
}

// Set inserts a chain under key. When the cache is at capacity the single
// least-recently-used entry is evicted first (linear scan; the cache is
// small enough that an ordered structure is not worth the bookkeeping).
func (c *ChainCache) Set(key string, chain *rtbtypes.InheritanceChain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRULocked()
	}

	now := c.now()
	c.entries[key] = &Entry{
		Value:        chain,
		Timestamp:    now,
		TTL:          c.ttl,
		AccessCount:  0,
		LastAccessed: now,
	}
}

// evictLRULocked removes the entry with the oldest LastAccessed.
func (c *ChainCache) evictLRULocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.LastAccessed.Before(oldest) {
			oldestKey = k
			oldest = e.LastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
		logging.CacheDebug("LRU eviction: %s", oldestKey)
	}
}

// InvalidatePrefix removes every entry whose key begins with prefix.
// The store calls this with "name:" whenever a template is re-registered
// or removed.
func (c *ChainCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		logging.CacheDebug("invalidated %d entries with prefix %s", removed, prefix)
	}
	return removed
}

// AccessCount returns the total access count across entries for the given
// template name prefix. The index layer folds this into search relevance.
func (c *ChainCache) AccessCount(templateName string) int64 {
	prefix := templateName + ":"
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for k, e := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			total += e.AccessCount
		}
	}
	return total
}

// Clear drops every entry.
func (c *ChainCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Len returns the number of live entries (including any not yet expired).
func (c *ChainCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *ChainCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
	}
}

// SetClock swaps the time source. Test hook.
func (c *ChainCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
