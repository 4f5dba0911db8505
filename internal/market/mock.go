package market

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/pkg/cache"
)

const minMockPrice = 0.01

// MockFeed generates synthetic random-walk ticks for local development.
type MockFeed struct {
	Bus        *events.Bus
	Cache      *cache.PriceCache
	Symbols    []string
	StartPrice float64
	Step       float64
	Interval   time.Duration
	Seed       int64

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

func (m *MockFeed) init() {
	if len(m.Symbols) == 0 {
		m.Symbols = DefaultSymbols
	}
	if m.StartPrice <= 0 {
		m.StartPrice = 100.0
	}
	if m.Step == 0 {
		m.Step = 0.5
	}
	if m.Interval <= 0 {
		m.Interval = time.Second
	}
	if m.rng == nil {
		seed := m.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		m.rng = rand.New(rand.NewSource(seed))
	}
	if m.prices == nil {
		m.prices = make(map[string]float64, len(m.Symbols))
		for _, sym := range m.Symbols {
			m.prices[sym] = m.StartPrice
		}
	}
}

// Start publishes one tick per symbol every Interval until ctx is done.
func (m *MockFeed) Start(ctx context.Context) {
	if m.Bus == nil {
		log.Println("mock feed: bus not set")
		return
	}
	m.mu.Lock()
	m.init()
	m.mu.Unlock()

	go func() {
		t := time.NewTicker(m.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				m.Advance(now)
			}
		}
	}()
}

// Advance advances every symbol's walk once and publishes the ticks.
func (m *MockFeed) Advance(now time.Time) []Tick {
	m.mu.Lock()
	m.init()
	ticks := make([]Tick, 0, len(m.Symbols))
	for _, sym := range m.Symbols {
		price := m.prices[sym] + (m.rng.Float64()*2-1)*m.Step
		if price < minMockPrice {
			price = minMockPrice
		}
		m.prices[sym] = price
		ticks = append(ticks, Tick{Symbol: sym, Price: price, Time: now})
	}
	m.mu.Unlock()

	for _, tick := range ticks {
		if m.Cache != nil {
			m.Cache.SetAt(tick.Symbol, tick.Price, tick.Time)
		}
		if m.Bus != nil {
			m.Bus.Publish(events.EventPriceTick, tick)
		}
	}
	return ticks
}
