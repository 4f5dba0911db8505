package market

import (
	"context"
	"log"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/pkg/cache"
	market "github.com/patruff/moltapp-sub001/pkg/market/binance"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// BinanceFeed streams trade prices from Binance and publishes them to the bus.
type BinanceFeed struct {
	Client  *market.Client
	Stream  *market.StreamClient
	Bus     *events.Bus
	Cache   *cache.PriceCache
	Symbols []string
}

// Start seeds the price cache from REST snapshots and opens one trade
// stream per symbol. Streams reconnect with backoff until ctx is done.
func (f *BinanceFeed) Start(ctx context.Context) {
	if f.Bus == nil || f.Client == nil || f.Stream == nil {
		log.Println("market feed not fully configured; skipping start")
		return
	}
	f.seed(ctx)
	for _, sym := range f.Symbols {
		go f.run(ctx, sym)
	}
}

func (f *BinanceFeed) seed(ctx context.Context) {
	if f.Cache == nil {
		return
	}
	for _, sym := range f.Symbols {
		tp, err := f.Client.GetTickerPrice(ctx, sym)
		if err != nil {
			log.Printf("market feed snapshot %s error: %v", sym, err)
			continue
		}
		f.Cache.Set(sym, tp.Price)
	}
}

func (f *BinanceFeed) run(ctx context.Context, symbol string) {
	backoff := reconnectMin
	for {
		ch, stop, err := f.Stream.SubscribeTrades(ctx, symbol)
		if err != nil {
			log.Printf("market feed: ws subscribe %s error: %v", symbol, err)
		} else {
			backoff = reconnectMin
			for tr := range ch {
				f.publish(symbol, tr)
			}
			stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		log.Printf("market feed: reconnecting %s", symbol)
		if backoff *= 2; backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (f *BinanceFeed) publish(symbol string, tr market.Trade) {
	at := time.Now()
	if tr.Time > 0 {
		at = time.UnixMilli(tr.Time)
	}
	tick := Tick{Symbol: symbol, Price: tr.Price, Time: at}
	if f.Cache != nil {
		f.Cache.SetAt(tick.Symbol, tick.Price, tick.Time)
	}
	f.Bus.Publish(events.EventPriceTick, tick)
}
