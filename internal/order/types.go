package order

import "time"

// Type identifies one of the six conditional order kinds. It never changes after creation.
type Type string

const (
	TypeLimitBuy     Type = "limit_buy"
	TypeLimitSell    Type = "limit_sell"
	TypeStopLoss     Type = "stop_loss"
	TypeTrailingStop Type = "trailing_stop"
	TypeTakeProfit   Type = "take_profit"
	TypeBracket      Type = "bracket"
)

// Types lists every order type in a stable order.
var Types = []Type{TypeLimitBuy, TypeLimitSell, TypeStopLoss, TypeTrailingStop, TypeTakeProfit, TypeBracket}

// Valid reports whether t is a known order type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Action is the side of the downstream execution request.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ActionOf derives the execution side from the order type.
func ActionOf(t Type) Action {
	if t == TypeLimitBuy {
		return ActionBuy
	}
	return ActionSell
}

// Leg names the bracket leg that fired.
type Leg string

const (
	LegNone       Leg = ""
	LegStopLoss   Leg = "stop_loss"
	LegTakeProfit Leg = "take_profit"
)

// Base holds the fields shared by every order variant.
type Base struct {
	ID        string
	AgentID   string
	Symbol    string
	AssetID   string
	Status    Status
	Quantity  float64 // USDC for buys, asset units for sells
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
	RoundID   string
	Notes     string

	// Set once the order leaves the active set through a trigger or a
	// failed execution.
	TriggerPrice float64
	FailReason   string
}

func (b *Base) base() *Base { return b }

// Expired reports whether the deadline has passed at now.
func (b *Base) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}

// Order is the closed set of conditional order variants.
type Order interface {
	Type() Type
	base() *Base
}

// Common returns the shared fields of any order.
func Common(o Order) *Base { return o.base() }

// LimitBuy fires when the price falls to or below LimitPrice.
type LimitBuy struct {
	Base
	LimitPrice float64
}

// LimitSell fires when the price rises to or above LimitPrice.
type LimitSell struct {
	Base
	LimitPrice float64
}

// StopLoss fires when the price falls to or below StopPrice.
type StopLoss struct {
	Base
	StopPrice          float64
	EntryPrice         float64
	TriggerLossPercent float64 // fixed at creation
}

// TrailingStop ratchets HighWaterMark upward and fires once the price
// falls to or below CurrentStopPrice.
type TrailingStop struct {
	Base
	TrailPercent     float64
	EntryPrice       float64
	HighWaterMark    float64
	CurrentStopPrice float64
}

// TakeProfit fires when the price rises to or above TargetPrice.
type TakeProfit struct {
	Base
	TargetPrice         float64
	EntryPrice          float64
	TargetProfitPercent float64
}

// Bracket pairs a stop-loss and a take-profit leg; only one leg may ever fire.
type Bracket struct {
	Base
	EntryPrice   float64
	StopPrice    float64
	TargetPrice  float64
	TriggeredLeg Leg
}

func (*LimitBuy) Type() Type     { return TypeLimitBuy }
func (*LimitSell) Type() Type    { return TypeLimitSell }
func (*StopLoss) Type() Type     { return TypeStopLoss }
func (*TrailingStop) Type() Type { return TypeTrailingStop }
func (*TakeProfit) Type() Type   { return TypeTakeProfit }
func (*Bracket) Type() Type      { return TypeBracket }

// ratchet raises the high-water mark and recomputes the stop from it.
func (t *TrailingStop) ratchet(price float64) bool {
	if price <= t.HighWaterMark {
		return false
	}
	t.HighWaterMark = price
	t.CurrentStopPrice = trailStop(t.HighWaterMark, t.TrailPercent)
	return true
}

func trailStop(hwm, trailPercent float64) float64 {
	return hwm * (1 - trailPercent/100)
}

// Clone returns a deep copy so callers never share the live order.
func Clone(o Order) Order {
	var out Order
	switch v := o.(type) {
	case *LimitBuy:
		c := *v
		out = &c
	case *LimitSell:
		c := *v
		out = &c
	case *StopLoss:
		c := *v
		out = &c
	case *TrailingStop:
		c := *v
		out = &c
	case *TakeProfit:
		c := *v
		out = &c
	case *Bracket:
		c := *v
		out = &c
	default:
		return nil
	}
	if exp := o.base().ExpiresAt; exp != nil {
		t := *exp
		out.base().ExpiresAt = &t
	}
	return out
}
