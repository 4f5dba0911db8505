package order

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownOrderType is returned by Evaluate for a variant it does not know.
var ErrUnknownOrderType = errors.New("unknown order type")

// Decision is emitted when an order's trigger condition is satisfied.
type Decision struct {
	OrderID      string    `json:"order_id"`
	Type         Type      `json:"type"`
	TriggerPrice float64   `json:"trigger_price"`
	Symbol       string    `json:"symbol"`
	AgentID      string    `json:"agent_id"`
	Action       Action    `json:"action"`
	Quantity     float64   `json:"quantity"`
	Timestamp    time.Time `json:"timestamp"`
	Leg          Leg       `json:"leg,omitempty"`
}

// Evaluate runs the trigger predicate for o at price. Trailing stops are
// ratcheted first, whether or not they fire. Comparisons are inclusive and
// carry no epsilon. A nil decision means the order stays armed.
func Evaluate(o Order, price float64, now time.Time) (*Decision, error) {
	var (
		fired bool
		leg   Leg
	)
	switch v := o.(type) {
	case *LimitBuy:
		fired = price <= v.LimitPrice
	case *LimitSell:
		fired = price >= v.LimitPrice
	case *StopLoss:
		fired = price <= v.StopPrice
	case *TakeProfit:
		fired = price >= v.TargetPrice
	case *TrailingStop:
		if v.ratchet(price) {
			v.UpdatedAt = now
		}
		fired = price <= v.CurrentStopPrice
	case *Bracket:
		switch {
		case price <= v.StopPrice:
			fired, leg = true, LegStopLoss
		case price >= v.TargetPrice:
			fired, leg = true, LegTakeProfit
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOrderType, o)
	}
	if !fired {
		return nil, nil
	}

	b := o.base()
	return &Decision{
		OrderID:      b.ID,
		Type:         o.Type(),
		TriggerPrice: price,
		Symbol:       b.Symbol,
		AgentID:      b.AgentID,
		Action:       ActionOf(o.Type()),
		Quantity:     b.Quantity,
		Timestamp:    now,
		Leg:          leg,
	}, nil
}

// MarkTriggered commits a decision to its order: the status moves to
// triggered and, for brackets, the firing leg is recorded.
func MarkTriggered(o Order, d *Decision, at time.Time) error {
	if err := Transition(o, StatusTriggered, at); err != nil {
		return err
	}
	o.base().TriggerPrice = d.TriggerPrice
	if br, ok := o.(*Bracket); ok {
		br.TriggeredLeg = d.Leg
	}
	return nil
}
