package memorystore

import "sync"

// PriceCache holds the latest Tick per symbol. Writes are last-write-wins and
// no history is kept.
//
// A single lock guards the whole map so DrainAll can swap it out in one step:
// a Put lands either in the drained snapshot or in the fresh map, never both.
type PriceCache struct {
	mu   sync.RWMutex
	data map[string]Tick
}

func NewPriceCache() *PriceCache {
	return &PriceCache{
		data: make(map[string]Tick),
	}
}

// Put overwrites the entry for t.Symbol.
func (c *PriceCache) Put(t Tick) {
	c.mu.Lock()
	c.data[t.Symbol] = t
	c.mu.Unlock()
}

// Get returns the current entry for symbol.
func (c *PriceCache) Get(symbol string) (Tick, bool) {
	c.mu.RLock()
	t, ok := c.data[symbol]
	c.mu.RUnlock()
	return t, ok
}

// DrainAll returns every entry and leaves the cache empty.
func (c *PriceCache) DrainAll() map[string]Tick {
	fresh := make(map[string]Tick)

	c.mu.Lock()
	drained := c.data
	c.data = fresh
	c.mu.Unlock()

	return drained
}

// Len returns the number of symbols currently held.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
