// Package engine holds conditional orders in memory, evaluates them against
// the price feed and emits trigger events. The API layer talks to it only
// through Service.
package engine

import (
	"context"

	"github.com/patruff/moltapp-sub001/internal/order"
)

// Service defines the operations exposed to the API layer.
type Service interface {
	// Placement
	Place(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceLimitBuy(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceLimitSell(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceStopLoss(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceTrailingStop(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceTakeProfit(ctx context.Context, req order.PlaceRequest) (order.View, error)
	PlaceBracket(ctx context.Context, req order.PlaceRequest) (order.View, error)

	// Cancellation
	Cancel(id string) bool
	CancelAllForAgent(agentID string) int

	// Queries
	GetOrder(id string) (order.View, bool)
	AgentOrders(agentID string) []order.View
	SymbolOrders(symbol string) []order.View
	AllOrders() []order.View
	History(limit int) []order.View
	Metrics() Metrics

	// Evaluation loop
	Start(ctx context.Context) error
	Stop()
	Running() bool

	// System
	SystemStatus(ctx context.Context) *SystemStatus
}

var _ Service = (*Engine)(nil)
