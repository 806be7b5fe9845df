// Package cache is a bounded in-memory cache with TTL expiry and LRU
// eviction. The static resolver keeps file contents in it.
package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound indicates the key is absent or expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed indicates the cache has been closed.
	ErrClosed = errors.New("cache: closed")
)

// Cache maps keys to values with a per-entry expiry and an entry limit.
//
// Performance characteristics:
//   - Get/Set: one mutex, O(1) map plus list update
//   - Expired entries are dropped lazily on Get and by a periodic sweep
//
// Example:
//
//	c := cache.New[string, []byte](cache.Config{
//	    MaxEntries: 1024,
//	    TTL:        time.Minute,
//	})
//	defer c.Close()
//
//	c.Set("/srv/www/index.html", body)
//	body, err := c.Get("/srv/www/index.html")
type Cache[K comparable, V any] struct {
	config Config

	mu     sync.Mutex
	data   map[K]*entry[K, V]
	lru    lruList[K, V]
	closed bool

	metrics metrics

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config holds the cache limits.
type Config struct {
	// MaxEntries bounds the number of entries; the least recently used is
	// evicted on overflow. 0 means 1024.
	MaxEntries int

	// TTL is the lifetime of an entry. 0 means entries never expire.
	TTL time.Duration

	// CleanupInterval is how often expired entries are swept.
	// 0 means TTL (or no sweep when TTL is 0); negative disables the sweep.
	CleanupInterval time.Duration
}

// DefaultMaxEntries is used when Config.MaxEntries is not positive.
const DefaultMaxEntries = 1024

// Metrics is a snapshot of cache counters.
type Metrics struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Deletes     int64
	Evictions   int64
	Expirations int64
	Size        int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

type metrics struct {
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	deletes     atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means never
	prev      *entry[K, V]
	next      *entry[K, V]
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// New returns an empty cache and starts its sweeper when expiry is enabled.
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = config.TTL
	}

	c := &Cache[K, V]{
		config: config,
		data:   make(map[K]*entry[K, V]),
		stopCh: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop()
	}
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, error) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, ErrClosed
	}

	e, ok := c.data[key]
	if !ok {
		c.metrics.misses.Add(1)
		return zero, ErrNotFound
	}
	if e.expired(time.Now()) {
		c.removeLocked(e)
		c.metrics.expirations.Add(1)
		c.metrics.misses.Add(1)
		return zero, ErrNotFound
	}

	c.lru.moveToFront(e)
	c.metrics.hits.Add(1)
	return e.value, nil
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Set(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	expiresAt := c.expiration()
	c.metrics.sets.Add(1)

	if e, ok := c.data[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.lru.moveToFront(e)
		return nil
	}

	for len(c.data) >= c.config.MaxEntries {
		victim := c.lru.back()
		if victim == nil {
			break
		}
		c.removeLocked(victim)
		c.metrics.evictions.Add(1)
	}

	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	c.data[key] = e
	c.lru.pushFront(e)
	return nil
}

// Delete removes key. It reports whether the key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	c.metrics.deletes.Add(1)
	return true
}

// Purge removes every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[K]*entry[K, V])
	c.lru = lruList[K, V]{}
}

// Len returns the number of entries, expired ones included until swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Metrics returns a snapshot of the counters.
func (c *Cache[K, V]) Metrics() Metrics {
	return Metrics{
		Hits:        c.metrics.hits.Load(),
		Misses:      c.metrics.misses.Load(),
		Sets:        c.metrics.sets.Load(),
		Deletes:     c.metrics.deletes.Load(),
		Evictions:   c.metrics.evictions.Load(),
		Expirations: c.metrics.expirations.Load(),
		Size:        int64(c.Len()),
	}
}

// Close stops the sweeper. Later Get and Set calls return ErrClosed.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// removeLocked must be called with c.mu held.
func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.data, e.key)
	c.lru.remove(e)
}

func (c *Cache[K, V]) expiration() time.Time {
	if c.config.TTL <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.config.TTL)
}

func (c *Cache[K, V]) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// cleanup drops every expired entry.
func (c *Cache[K, V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, e := range c.data {
		if e.expired(now) {
			c.removeLocked(e)
			c.metrics.expirations.Add(1)
		}
	}
}
