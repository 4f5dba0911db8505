package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/pkg/cache"
	binance "github.com/patruff/moltapp-sub001/pkg/market/binance"
)

func TestBusSourceDeliversTicks(t *testing.T) {
	bus := events.NewBus()
	ticks, unsub := BusSource{Bus: bus}.Subscribe(8)

	now := time.Now()
	bus.Publish(events.EventPriceTick, "not a tick")
	bus.Publish(events.EventPriceTick, Tick{Symbol: "AAPLx", Price: 1, Time: now})
	bus.Publish(events.EventPriceTick, &Tick{Symbol: "TSLAx", Price: 2, Time: now})

	select {
	case got := <-ticks:
		assert.Equal(t, "AAPLx", got.Symbol)
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}
	got := <-ticks
	assert.Equal(t, "TSLAx", got.Symbol)

	unsub()
	unsub()
	_, open := <-ticks
	for open {
		_, open = <-ticks
	}
	assert.Zero(t, bus.Subscribers(events.EventPriceTick))
}

func TestMockFeedWalk(t *testing.T) {
	bus := events.NewBus()
	raw, unsub := bus.Subscribe(events.EventPriceTick, 16)
	defer unsub()
	pc := cache.NewPriceCache()

	feed := &MockFeed{Bus: bus, Cache: pc, Symbols: []string{"AAPLx", "NVDAx"}, StartPrice: 1, Step: 5, Seed: 7}
	now := time.Now()
	for i := 0; i < 20; i++ {
		ticks := feed.Advance(now.Add(time.Duration(i) * time.Second))
		require.Len(t, ticks, 2)
		for _, tk := range ticks {
			assert.GreaterOrEqual(t, tk.Price, minMockPrice)
		}
	}

	assert.Len(t, raw, 16)
	p, ok := pc.Get("NVDAx")
	assert.True(t, ok)
	assert.Greater(t, p, 0.0)
}

func TestMockFeedDefaults(t *testing.T) {
	feed := &MockFeed{Seed: 1}
	ticks := feed.Advance(time.Now())
	assert.Len(t, ticks, len(DefaultSymbols))
	assert.Equal(t, time.Second, feed.Interval)
}

func TestBinanceFeedPublish(t *testing.T) {
	bus := events.NewBus()
	raw, unsub := bus.Subscribe(events.EventPriceTick, 1)
	defer unsub()
	pc := cache.NewPriceCache()

	f := &BinanceFeed{Bus: bus, Cache: pc}
	f.publish("BTCUSDT", binance.Trade{Symbol: "BTCUSDT", Price: 64000, Time: 1700000000000})

	tick := (<-raw).(Tick)
	assert.Equal(t, 64000.0, tick.Price)
	assert.Equal(t, time.UnixMilli(1700000000000), tick.Time)
	q, ok := pc.Quote("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, tick.Time, q.UpdatedAt)
}
