package nutrition

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

// CacheLink identifies one link of a container for cache hashing.
type CacheLink struct {
	ID        int64
	QuantityG float64
	Macros    Vector
}

// AggregateCache memoizes AggregateFromLinks per container. An entry is only
// reused while the content hash of the links is unchanged; stored aggregates
// remain the source of truth.
type AggregateCache struct {
	engine *Engine

	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	sum   [sha256.Size]byte
	value Vector
}

func NewAggregateCache(e *Engine) *AggregateCache {
	return &AggregateCache{engine: e, entries: map[string]cacheEntry{}}
}

func (c *AggregateCache) Aggregate(container string, links []CacheLink) Vector {
	sum := hashLinks(links)

	c.mu.Lock()
	if entry, ok := c.entries[container]; ok && entry.sum == sum {
		c.hits++
		c.mu.Unlock()
		return entry.value.clone()
	}
	c.misses++
	c.mu.Unlock()

	vectors := make([]Vector, 0, len(links))
	for _, l := range links {
		vectors = append(vectors, l.Macros)
	}
	value := c.engine.AggregateFromLinks(vectors)

	c.mu.Lock()
	c.entries[container] = cacheEntry{sum: sum, value: value.clone()}
	c.mu.Unlock()
	return value
}

func (c *AggregateCache) Invalidate(container string) {
	c.mu.Lock()
	delete(c.entries, container)
	c.mu.Unlock()
}

func (c *AggregateCache) Reset() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

func (c *AggregateCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func hashLinks(links []CacheLink) [sha256.Size]byte {
	h := sha256.New()
	buf := make([]byte, 8)
	put := func(x uint64) {
		binary.LittleEndian.PutUint64(buf, x)
		h.Write(buf)
	}
	put(uint64(len(links)))
	for _, l := range links {
		put(uint64(l.ID))
		put(math.Float64bits(l.QuantityG))
		for _, f := range []float64{l.Macros.Calories, l.Macros.CarbsG, l.Macros.ProteinG, l.Macros.FatG} {
			put(math.Float64bits(f))
		}
		if l.Macros.SugarG != nil {
			put(1)
			put(math.Float64bits(*l.Macros.SugarG))
		} else {
			put(0)
		}
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
