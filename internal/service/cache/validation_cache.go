package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"TradeGate/internal/domain/models"
	"TradeGate/pkg/util"
)

// ValidationCache memoizes per-claim validation results for a single trading
// day. Capacity-bounded with least-recently-used eviction; keys are
// hash(claim_text, day) so a claim re-validated on a new date is never
// served a stale verdict. Safe for concurrent use.
type ValidationCache struct {
	mu       sync.Mutex
	day      string
	items    map[uint64]*list.Element
	order    *list.List // front = most recently used
	capacity int
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	key    uint64
	result models.ValidationResult
}

// NewValidationCache creates a cache bounded to capacity entries.
func NewValidationCache(capacity int) *ValidationCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ValidationCache{
		items:    make(map[uint64]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// Key derives the cache key from claim text and the evaluation day.
func Key(claimText string, asOf time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(claimText))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(util.DayKey(asOf)))
	return h.Sum64()
}

// Get returns the memoized result for (claimText, asOf) if present.
// Moving to a later day rotates the cache before lookup.
func (c *ValidationCache) Get(claimText string, asOf time.Time) (models.ValidationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rotateLocked(asOf)
	el, ok := c.items[Key(claimText, asOf)]
	if !ok {
		c.misses++
		return models.ValidationResult{}, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*cacheEntry).result, true
}

// Put stores a result for (claimText, asOf), evicting the least recently
// used entry when at capacity.
func (c *ValidationCache) Put(claimText string, asOf time.Time, res models.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rotateLocked(asOf)
	key := Key(claimText, asOf)
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).result = res
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, result: res})
}

// Rotate clears the cache when day moves past the current scope. Called by
// the daily scheduler; Get/Put also rotate on access so a late scheduler
// never causes unbounded carry-over.
func (c *ValidationCache) Rotate(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotateLocked(day)
}

func (c *ValidationCache) rotateLocked(asOf time.Time) {
	dk := util.DayKey(asOf)
	// Keys are day-scoped, so an entry from another day can never be served;
	// rotation only reclaims capacity. Rotating forward only keeps
	// interleaved evaluations for different dates from clearing each other
	// on every access. Day keys are YYYY-MM-DD, so string order is date order.
	if dk <= c.day {
		return
	}
	c.day = dk
	c.items = make(map[uint64]*list.Element)
	c.order.Init()
}

// Len returns the current number of entries.
func (c *ValidationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cumulative hit/miss counters.
func (c *ValidationCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
