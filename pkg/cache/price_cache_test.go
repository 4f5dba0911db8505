package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceCacheSetGet(t *testing.T) {
	c := NewPriceCache()
	_, ok := c.Get("AAPLx")
	assert.False(t, ok)

	c.Set("AAPLx", 190.5)
	p, ok := c.Get("AAPLx")
	require.True(t, ok)
	assert.Equal(t, 190.5, p)
	assert.Equal(t, 1, c.Len())
}

func TestPriceCacheIgnoresOlderObservation(t *testing.T) {
	c := NewPriceCache()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	c.SetAt("TSLAx", 250, now)
	c.SetAt("TSLAx", 240, now.Add(-time.Second))
	p, _ := c.Get("TSLAx")
	assert.Equal(t, 250.0, p)

	c.SetAt("TSLAx", 255, now)
	p, _ = c.Get("TSLAx")
	assert.Equal(t, 255.0, p)
}

func TestPriceCacheStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewPriceCache()
	c.now = func() time.Time { return now }

	c.SetAt("NVDAx", 1, now.Add(-time.Hour))
	c.SetAt("SPYx", 2, now.Add(-time.Second))

	assert.Equal(t, []string{"NVDAx"}, c.Stale(time.Minute))
	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "NVDAx", snap[0].Symbol)
}

func TestPriceCacheConcurrentWriters(t *testing.T) {
	c := NewPriceCache()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(fmt.Sprintf("SYM%d", i), float64(j))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, c.Len())
}
