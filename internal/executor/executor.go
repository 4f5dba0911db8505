// Package executor turns triggered orders into (simulated) executions and
// reports the outcome back to the engine.
package executor

import (
	"context"

	"github.com/patruff/moltapp-sub001/internal/events"
)

// Fill describes a completed execution.
type Fill struct {
	Price    float64
	Quantity float64 // asset units
	Fee      float64 // USDC
}

// Executor executes one triggered order.
type Executor interface {
	Execute(ctx context.Context, ev events.TriggeredEvent) (Fill, error)
}

// Recorder receives execution progress for a triggered order.
type Recorder interface {
	MarkExecuting(id string) bool
	MarkFilled(id string) bool
	MarkFailed(id, reason string) bool
}

// Publisher is the subset of the event bus the executor publishes on.
type Publisher interface {
	Publish(e events.Event, payload any) int
}
