package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jmcder000/semantic-diff/internal/metrics"
	"github.com/jmcder000/semantic-diff/internal/quote"
)

// Cache configuration constants
const (
	DefaultMaxEntries      = 32
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Config defines configuration options
type Config struct {
	MaxEntries      int
	TTL             time.Duration // 0 = entries never expire
	CleanupInterval time.Duration // 0 = no background cleanup
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxEntries:      DefaultMaxEntries,
		TTL:             DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
	}
}

type entry struct {
	key         uint64
	prepared    *quote.Prepared
	cachedAt    int64 // unix nano
	accessCount int64
}

// DocumentCache keeps recently used prepared documents, keyed by the xxhash
// of their text, so repeated requests against one document share its
// normalization and token index. A nil *DocumentCache prepares every
// document fresh.
type DocumentCache struct {
	mu      sync.Mutex
	entries map[uint64]*list.Element
	order   *list.List // front = most recently used

	maxEntries int
	ttlNanos   int64

	hits          int64
	misses        int64
	evictions     int64
	totalRequests int64
	lastCleanup   int64

	metrics   *metrics.Metrics
	createdAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a cache. When CleanupInterval is set a background goroutine
// drops expired entries until Close is called.
func New(config Config, m *metrics.Metrics) *DocumentCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}

	c := &DocumentCache{
		entries:     make(map[uint64]*list.Element),
		order:       list.New(),
		maxEntries:  config.MaxEntries,
		ttlNanos:    config.TTL.Nanoseconds(),
		metrics:     m,
		createdAt:   time.Now(),
		lastCleanup: time.Now().UnixNano(),
		stop:        make(chan struct{}),
	}

	if config.CleanupInterval > 0 && config.TTL > 0 {
		c.wg.Add(1)
		go c.startAutoCleanup(config.CleanupInterval)
	}

	return c
}

// Get returns the prepared form of document, preparing and caching it on a
// miss.
func (c *DocumentCache) Get(document string) *quote.Prepared {
	if c == nil {
		return quote.Prepare(document)
	}

	atomic.AddInt64(&c.totalRequests, 1)
	key := xxhash.Sum64String(document)
	now := time.Now().UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		// a hash collision or an expired entry both count as a miss
		if e.prepared.Document() == document && !c.expired(e, now) {
			e.accessCount++
			c.order.MoveToFront(el)
			atomic.AddInt64(&c.hits, 1)
			c.metrics.RecordCacheLookup(true)
			return e.prepared
		}
		c.removeElement(el)
	}

	atomic.AddInt64(&c.misses, 1)
	c.metrics.RecordCacheLookup(false)

	p := quote.Prepare(document)
	c.entries[key] = c.order.PushFront(&entry{key: key, prepared: p, cachedAt: now, accessCount: 1})

	for c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
		atomic.AddInt64(&c.evictions, 1)
	}
	c.metrics.SetCacheEntries(c.order.Len())

	return p
}

func (c *DocumentCache) expired(e *entry, now int64) bool {
	return c.ttlNanos > 0 && now-e.cachedAt > c.ttlNanos
}

// removeElement must be called with mu held
func (c *DocumentCache) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.entries, e.key)
}

// CleanExpired removes entries older than the TTL and returns how many
func (c *DocumentCache) CleanExpired() int {
	if c == nil || c.ttlNanos <= 0 {
		return 0
	}

	now := time.Now().UnixNano()
	removed := 0

	c.mu.Lock()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry), now) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	c.metrics.SetCacheEntries(c.order.Len())
	c.mu.Unlock()

	atomic.StoreInt64(&c.lastCleanup, now)
	return removed
}

func (c *DocumentCache) startAutoCleanup(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanExpired()
		case <-c.stop:
			return
		}
	}
}

// Len returns the number of cached documents
func (c *DocumentCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry
func (c *DocumentCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[uint64]*list.Element)
	c.order.Init()
	c.metrics.SetCacheEntries(0)
	c.mu.Unlock()
}

// Close stops the background cleanup goroutine
func (c *DocumentCache) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// Stats contains cache statistics
type Stats struct {
	Hits          int64         `json:"hits"`
	Misses        int64         `json:"misses"`
	Evictions     int64         `json:"evictions"`
	TotalRequests int64         `json:"total_requests"`
	HitRate       float64       `json:"hit_rate"`
	Entries       int           `json:"entries"`
	MaxEntries    int           `json:"max_entries"`
	Health        string        `json:"health"`
	LastCleanup   time.Time     `json:"last_cleanup"`
	Uptime        time.Duration `json:"uptime"`
}

// Stats returns a snapshot of the cache counters
func (c *DocumentCache) Stats() Stats {
	if c == nil {
		return Stats{Health: "disabled"}
	}

	hits := atomic.LoadInt64(&c.hits)
	totalRequests := atomic.LoadInt64(&c.totalRequests)

	hitRate := float64(0)
	if totalRequests > 0 {
		hitRate = float64(hits) / float64(totalRequests)
	}

	return Stats{
		Hits:          hits,
		Misses:        atomic.LoadInt64(&c.misses),
		Evictions:     atomic.LoadInt64(&c.evictions),
		TotalRequests: totalRequests,
		HitRate:       hitRate,
		Entries:       c.Len(),
		MaxEntries:    c.maxEntries,
		Health:        getHealthStatus(hitRate, totalRequests),
		LastCleanup:   time.Unix(0, atomic.LoadInt64(&c.lastCleanup)),
		Uptime:        time.Since(c.createdAt),
	}
}

func getHealthStatus(hitRate float64, requests int64) string {
	switch {
	case requests == 0:
		return "idle"
	case hitRate >= 0.95:
		return "excellent"
	case hitRate >= 0.85:
		return "good"
	case hitRate >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}
