package market

import (
	"sync"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
)

// Tick is one price update for one symbol.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// DefaultSymbols is the tokenised-equity catalogue the mock feed walks when
// no symbols are configured.
var DefaultSymbols = []string{"AAPLx", "TSLAx", "NVDAx", "MSFTx", "GOOGLx", "AMZNx", "METAx", "SPYx"}

// BusSource exposes the bus price_tick topic as a typed tick stream.
type BusSource struct {
	Bus *events.Bus
}

// Subscribe returns a channel of ticks and a function that ends the
// subscription and closes the channel. Payloads that are not ticks are skipped.
func (s BusSource) Subscribe(buffer int) (<-chan Tick, func()) {
	raw, unsub := s.Bus.Subscribe(events.EventPriceTick, buffer)
	out := make(chan Tick, buffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}
				var tick Tick
				switch v := payload.(type) {
				case Tick:
					tick = v
				case *Tick:
					tick = *v
				default:
					continue
				}
				select {
				case out <- tick:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			unsub()
		})
	}
}
