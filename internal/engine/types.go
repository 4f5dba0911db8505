package engine

import (
	"errors"
	"time"

	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/market"
	"github.com/patruff/moltapp-sub001/internal/order"
)

var (
	ErrAlreadyRunning = errors.New("evaluation loop already running")
	ErrNoPriceFeed    = errors.New("no price feed configured")
)

// PriceFeed delivers ticks until the returned function is called.
type PriceFeed interface {
	Subscribe(buffer int) (<-chan market.Tick, func())
}

// Publisher is the outbound event channel. Publish must not block and
// returns how many subscribers received the payload.
type Publisher interface {
	Publish(e events.Event, payload any) int
}

// Persister is the write-through store for order snapshots.
type Persister interface {
	SaveOrder(v order.View) error
}

// PriceCache holds the last observed price per symbol.
type PriceCache interface {
	Get(symbol string) (float64, bool)
	Set(symbol string, price float64)
}

// Clock abstracts wall-clock time for expiry checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Observer receives evaluation telemetry.
type Observer interface {
	TickEvaluated(symbol string, orders int, took time.Duration)
	OrderTriggered(t order.Type)
}

// Config holds the collaborators of an Engine. Only Feed is required to
// start the loop; the rest default to no-ops.
type Config struct {
	Feed      PriceFeed
	Bus       Publisher
	Audit     audit.Sink
	Persister Persister
	Prices    PriceCache
	Clock     Clock
	Observer  Observer
	NewID     func() string

	HistoryCapacity int
	TickBuffer      int

	// Static fields reported by SystemStatus.
	Meta SystemStatus
}

// Metrics is a point-in-time view of the engine.
type Metrics struct {
	ByStatus         map[order.Status]int `json:"by_status"`
	ByType           map[order.Type]int   `json:"by_type"`
	ByAgent          map[string]int       `json:"by_agent"`
	Subscribed       bool                 `json:"subscribed"`
	LastEvaluationAt *time.Time           `json:"last_evaluation_at,omitempty"`
	TicksProcessed   uint64               `json:"ticks_processed"`
	TicksDropped     uint64               `json:"ticks_dropped"`
	Triggers         uint64               `json:"triggers"`
	Expired          uint64               `json:"expired"`
	Cancelled        uint64               `json:"cancelled"`
	EvalFaults       uint64               `json:"eval_faults"`
	EmitFailures     uint64               `json:"emit_failures"`
	Undelivered      uint64               `json:"undelivered"`
	AuditFailures    uint64               `json:"audit_failures"`
	PersistFailures  uint64               `json:"persist_failures"`
	LiveOrders       int                  `json:"live_orders"`
	ActiveSymbols    int                  `json:"active_symbols"`
	HistorySize      int                  `json:"history_size"`
	HistoryCapacity  int                  `json:"history_capacity"`
}

// SystemStatus represents the system runtime status.
type SystemStatus struct {
	NodeID     string    `json:"node_id"`
	PriceFeed  string    `json:"price_feed"`
	Symbols    []string  `json:"symbols"`
	Version    string    `json:"version"`
	Running    bool      `json:"running"`
	ServerTime time.Time `json:"server_time"`
}
