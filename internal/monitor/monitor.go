// Package monitor tracks evaluation performance, exports Prometheus
// collectors and raises engine alerts.
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
)

// EngineSource is the engine surface the watchdog reads.
type EngineSource interface {
	Metrics() engine.Metrics
	ActiveSymbols() []string
}

// PriceAges reports symbols whose last price is older than maxAge.
type PriceAges interface {
	Stale(maxAge time.Duration) []string
}

// Monitor watches the bus and the engine and emits alerts.
type Monitor struct {
	Bus     *events.Bus
	Sink    AlertSink
	Metrics *SystemMetrics

	// Watchdog; disabled when Engine is nil.
	Engine      EngineSource
	Prices      PriceAges
	Rules       RuleEvaluator
	Interval    time.Duration
	MaxPriceAge time.Duration
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Sink == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	alerts, unsubAlerts := m.Bus.Subscribe(events.EventEngineAlert, 50)
	results, unsubResults := m.Bus.Subscribe(events.EventExecutionResult, 256)
	go func() {
		defer unsubAlerts()
		defer unsubResults()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-alerts:
				if !ok {
					return
				}
				if err := m.Sink.Send(formatAlert(msg)); err != nil {
					log.Printf("⚠️ alert delivery failed: %v", err)
				}
			case msg, ok := <-results:
				if !ok {
					return
				}
				if r, isResult := msg.(events.ExecutionResult); isResult && m.Metrics != nil {
					m.Metrics.ExecutionFinished(r)
				}
			}
		}
	}()

	if m.Engine != nil {
		go m.watch(ctx)
	}
}

func (m *Monitor) watch(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := m.Engine.Metrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev = m.Check(prev)
		}
	}
}

// Check runs the rules against a fresh snapshot, publishes any alerts and
// returns the snapshot for the next round.
func (m *Monitor) Check(prev engine.Metrics) engine.Metrics {
	cur := m.Engine.Metrics()
	LiveOrders.Set(float64(cur.LiveOrders))

	alerts := m.Rules.Check(prev, cur)
	if m.Prices != nil && m.MaxPriceAge > 0 {
		live := make(map[string]bool)
		for _, sym := range m.Engine.ActiveSymbols() {
			live[sym] = true
		}
		if a, ok := StaleAlert(m.Prices.Stale(m.MaxPriceAge), live); ok {
			alerts = append(alerts, a)
		}
	}
	for _, a := range alerts {
		m.Bus.Publish(events.EventEngineAlert, a)
	}
	return cur
}
