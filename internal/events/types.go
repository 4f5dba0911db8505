package events

import "github.com/patruff/moltapp-sub001/internal/order"

// Event enumerates topics published inside the trigger engine.
type Event string

const (
	EventPriceTick       Event = "price_tick"
	EventOrderPlaced     Event = "order_placed"
	EventOrderCancelled  Event = "order_cancelled"
	EventOrderExpired    Event = "order_expired"
	EventOrderTriggered  Event = "order_triggered"
	EventExecutionResult Event = "execution_result"
	EventEngineAlert     Event = "engine_alert"
)

// Topics lists every topic the bus knows about.
var Topics = []Event{
	EventPriceTick,
	EventOrderPlaced,
	EventOrderCancelled,
	EventOrderExpired,
	EventOrderTriggered,
	EventExecutionResult,
	EventEngineAlert,
}

// TriggeredEvent is the payload of EventOrderTriggered, handed to the
// downstream executor.
type TriggeredEvent struct {
	order.Decision
	OrderType order.Type `json:"order_type"`
	Notes     string     `json:"notes,omitempty"`
	RoundID   string     `json:"round_id,omitempty"`
	AssetID   string     `json:"asset_id,omitempty"`
}

// OrderEvent carries a snapshot for placement, cancellation and expiry.
type OrderEvent struct {
	Order  order.View `json:"order"`
	Reason string     `json:"reason,omitempty"`
}

// ExecutionResult reports the outcome of a triggered order's execution.
type ExecutionResult struct {
	OrderID    string  `json:"order_id"`
	AgentID    string  `json:"agent_id"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Success    bool    `json:"success"`
	FillPrice  float64 `json:"fill_price,omitempty"`
	FilledQty  float64 `json:"filled_qty,omitempty"`
	Fee        float64 `json:"fee,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"duration_ms"`
}

// Alert is published on EventEngineAlert.
type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
