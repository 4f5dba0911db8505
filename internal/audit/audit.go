// Package audit records the order lifecycle trail: placements,
// cancellations and triggers.
package audit

import (
	"errors"
	"time"
)

// Kind names an audited lifecycle event.
type Kind string

const (
	KindOrderPlaced    Kind = "order_placed"
	KindOrderCancelled Kind = "order_cancelled"
	KindOrderTriggered Kind = "order_triggered"
)

// Entry is one audit record.
type Entry struct {
	Kind    Kind
	Message string
	AgentID string
	RoundID string
	OrderID string
	Fields  map[string]any
	At      time.Time
}

// Sink receives audit entries.
type Sink interface {
	LogEvent(Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry) error

func (f SinkFunc) LogEvent(e Entry) error { return f(e) }

// Nop discards every entry.
var Nop Sink = SinkFunc(func(Entry) error { return nil })

// Multi fans an entry out to every sink and joins their errors.
type Multi []Sink

func (m Multi) LogEvent(e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.LogEvent(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
