package cache

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

const numShards = 16

// Quote is the last observed price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceCache keeps the latest price per symbol, sharded to keep feed
// writers and placement readers off a single lock.
type PriceCache struct {
	shards [numShards]*priceShard
	now    func() time.Time
}

type priceShard struct {
	mu    sync.RWMutex
	items map[string]Quote
}

// NewPriceCache creates an empty cache.
func NewPriceCache() *PriceCache {
	c := &PriceCache{now: time.Now}
	for i := range c.shards {
		c.shards[i] = &priceShard{items: make(map[string]Quote)}
	}
	return c
}

func (c *PriceCache) shard(symbol string) *priceShard {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return c.shards[h.Sum32()%numShards]
}

// Set records price for symbol, stamped with the current time.
func (c *PriceCache) Set(symbol string, price float64) {
	c.SetAt(symbol, price, c.now())
}

// SetAt records price for symbol at a caller-supplied time. Older
// observations never overwrite newer ones.
func (c *PriceCache) SetAt(symbol string, price float64, at time.Time) {
	s := c.shard(symbol)
	s.mu.Lock()
	if cur, ok := s.items[symbol]; !ok || !at.Before(cur.UpdatedAt) {
		s.items[symbol] = Quote{Symbol: symbol, Price: price, UpdatedAt: at}
	}
	s.mu.Unlock()
}

// Get returns the last price for symbol.
func (c *PriceCache) Get(symbol string) (float64, bool) {
	q, ok := c.Quote(symbol)
	return q.Price, ok
}

// Quote returns the full cache entry for symbol.
func (c *PriceCache) Quote(symbol string) (Quote, bool) {
	s := c.shard(symbol)
	s.mu.RLock()
	q, ok := s.items[symbol]
	s.mu.RUnlock()
	return q, ok
}

// Len returns the number of cached symbols.
func (c *PriceCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Snapshot returns every quote sorted by symbol.
func (c *PriceCache) Snapshot() []Quote {
	var out []Quote
	for _, s := range c.shards {
		s.mu.RLock()
		for _, q := range s.items {
			out = append(out, q)
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Stale lists symbols whose last update is older than maxAge.
func (c *PriceCache) Stale(maxAge time.Duration) []string {
	cutoff := c.now().Add(-maxAge)
	var out []string
	for _, q := range c.Snapshot() {
		if q.UpdatedAt.Before(cutoff) {
			out = append(out, q.Symbol)
		}
	}
	return out
}
