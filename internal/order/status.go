package order

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusTriggered Status = "triggered"
	StatusExecuting Status = "executing"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending, StatusActive, StatusTriggered, StatusExecuting,
	StatusFilled, StatusCancelled, StatusExpired, StatusFailed,
}

// ErrIllegalTransition is returned when a status change is not an edge of the lifecycle.
var ErrIllegalTransition = errors.New("illegal status transition")

var transitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusTriggered, StatusCancelled, StatusExpired},
	StatusTriggered: {StatusExecuting},
	StatusExecuting: {StatusFilled, StatusFailed},
}

// Valid reports whether s is one of the eight defined statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition can leave s.
func IsTerminal(s Status) bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Cancellable reports whether an order in s may still be cancelled.
func Cancellable(s Status) bool {
	return s == StatusPending || s == StatusActive
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves o to status to, stamping UpdatedAt.
func Transition(o Order, to Status, at time.Time) error {
	b := o.base()
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s (order %s)", ErrIllegalTransition, b.Status, to, b.ID)
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}
