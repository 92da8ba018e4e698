package memorystore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestPriceCacheLastWriteWins
func TestPriceCacheLastWriteWins(t *testing.T) {
	cache := NewPriceCache()

	cache.Put(Tick{Symbol: "btcusdt", Price: "43000.1", EventTime: 1})
	cache.Put(Tick{Symbol: "btcusdt", Price: "43001.2", EventTime: 2})
	cache.Put(Tick{Symbol: "ethusdt", Price: "2300", EventTime: 3})

	got, ok := cache.Get("btcusdt")
	require.True(t, ok)
	assert.Equal(t, "43001.2", got.Price)
	assert.Equal(t, int64(2), got.EventTime)
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get("solusdt")
	assert.False(t, ok)
}

// go test -v --run TestPriceCacheDrainAll
func TestPriceCacheDrainAll(t *testing.T) {
	cache := NewPriceCache()
	cache.Put(Tick{Symbol: "btcusdt", Price: "1"})
	cache.Put(Tick{Symbol: "ethusdt", Price: "2"})

	drained := cache.DrainAll()
	require.Len(t, drained, 2)
	assert.Equal(t, "2", drained["ethusdt"].Price)

	for symbol := range drained {
		_, ok := cache.Get(symbol)
		assert.False(t, ok, "symbol %s still present after drain", symbol)
	}
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.DrainAll())

	// the drained snapshot is detached from the cache
	cache.Put(Tick{Symbol: "btcusdt", Price: "3"})
	assert.Equal(t, "1", drained["btcusdt"].Price)
}

// Every put must be observed exactly once across all drains.
// go test -race -v --run TestPriceCacheConcurrentDrain
func TestPriceCacheConcurrentDrain(t *testing.T) {
	const (
		writers   = 8
		perWriter = 2000
	)
	cache := NewPriceCache()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		seen    = make(map[string]int)
		stopped = make(chan struct{})
	)

	collect := func(m map[string]Tick) {
		mu.Lock()
		defer mu.Unlock()
		for sym := range m {
			seen[sym]++
		}
	}

	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for {
			select {
			case <-stopped:
				return
			default:
				collect(cache.DrainAll())
			}
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				// unique symbols so no overwrite hides a lost write
				cache.Put(Tick{Symbol: fmt.Sprintf("s%d-%d", w, i), Price: "1"})
			}
		}(w)
	}

	wg.Wait()
	close(stopped)
	<-drainDone
	collect(cache.DrainAll())

	require.Len(t, seen, writers*perWriter)
	for sym, n := range seen {
		if n != 1 {
			t.Fatalf("symbol %s observed %d times", sym, n)
		}
	}
}
