package order

import (
	"fmt"
	"time"
)

// View is the flat, serialisable snapshot of any order variant.
type View struct {
	ID        string     `json:"order_id"`
	AgentID   string     `json:"agent_id"`
	Symbol    string     `json:"symbol"`
	AssetID   string     `json:"asset_id,omitempty"`
	Type      Type       `json:"type"`
	Status    Status     `json:"status"`
	Action    Action     `json:"action"`
	Quantity  float64    `json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RoundID   string     `json:"round_id,omitempty"`
	Notes     string     `json:"notes,omitempty"`

	LimitPrice          float64 `json:"limit_price,omitempty"`
	StopPrice           float64 `json:"stop_price,omitempty"`
	EntryPrice          float64 `json:"entry_price,omitempty"`
	TargetPrice         float64 `json:"target_price,omitempty"`
	TriggerLossPercent  float64 `json:"trigger_loss_percent,omitempty"`
	TargetProfitPercent float64 `json:"target_profit_percent,omitempty"`
	TrailPercent        float64 `json:"trail_percent,omitempty"`
	HighWaterMark       float64 `json:"high_water_mark,omitempty"`
	CurrentStopPrice    float64 `json:"current_stop_price,omitempty"`
	TriggeredLeg        Leg     `json:"triggered_leg,omitempty"`

	TriggerPrice float64 `json:"trigger_price,omitempty"`
	FailReason   string  `json:"fail_reason,omitempty"`
}

// ToView flattens o. The caller must hold whatever lock guards o.
func ToView(o Order) View {
	b := o.base()
	v := View{
		ID:        b.ID,
		AgentID:   b.AgentID,
		Symbol:    b.Symbol,
		AssetID:   b.AssetID,
		Type:      o.Type(),
		Status:    b.Status,
		Action:    ActionOf(o.Type()),
		Quantity:  b.Quantity,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
		RoundID:   b.RoundID,
		Notes:     b.Notes,

		TriggerPrice: b.TriggerPrice,
		FailReason:   b.FailReason,
	}
	if b.ExpiresAt != nil {
		exp := *b.ExpiresAt
		v.ExpiresAt = &exp
	}
	switch t := o.(type) {
	case *LimitBuy:
		v.LimitPrice = t.LimitPrice
	case *LimitSell:
		v.LimitPrice = t.LimitPrice
	case *StopLoss:
		v.StopPrice = t.StopPrice
		v.EntryPrice = t.EntryPrice
		v.TriggerLossPercent = t.TriggerLossPercent
	case *TakeProfit:
		v.TargetPrice = t.TargetPrice
		v.EntryPrice = t.EntryPrice
		v.TargetProfitPercent = t.TargetProfitPercent
	case *TrailingStop:
		v.TrailPercent = t.TrailPercent
		v.EntryPrice = t.EntryPrice
		v.HighWaterMark = t.HighWaterMark
		v.CurrentStopPrice = t.CurrentStopPrice
	case *Bracket:
		v.EntryPrice = t.EntryPrice
		v.StopPrice = t.StopPrice
		v.TargetPrice = t.TargetPrice
		v.TriggeredLeg = t.TriggeredLeg
	}
	return v
}

// FromView rebuilds the typed order described by v, including mutable
// trailing-stop state. It is the inverse of ToView.
func FromView(v View) (Order, error) {
	if !v.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrderType, v.Type)
	}
	if !v.Status.Valid() {
		return nil, fmt.Errorf("order %s: unknown status %q", v.ID, v.Status)
	}
	b := Base{
		ID:        v.ID,
		AgentID:   v.AgentID,
		Symbol:    v.Symbol,
		AssetID:   v.AssetID,
		Status:    v.Status,
		Quantity:  v.Quantity,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
		RoundID:   v.RoundID,
		Notes:     v.Notes,

		TriggerPrice: v.TriggerPrice,
		FailReason:   v.FailReason,
	}
	if v.ExpiresAt != nil {
		exp := *v.ExpiresAt
		b.ExpiresAt = &exp
	}
	switch v.Type {
	case TypeLimitBuy:
		return &LimitBuy{Base: b, LimitPrice: v.LimitPrice}, nil
	case TypeLimitSell:
		return &LimitSell{Base: b, LimitPrice: v.LimitPrice}, nil
	case TypeStopLoss:
		return &StopLoss{Base: b, StopPrice: v.StopPrice, EntryPrice: v.EntryPrice, TriggerLossPercent: v.TriggerLossPercent}, nil
	case TypeTakeProfit:
		return &TakeProfit{Base: b, TargetPrice: v.TargetPrice, EntryPrice: v.EntryPrice, TargetProfitPercent: v.TargetProfitPercent}, nil
	case TypeTrailingStop:
		t := &TrailingStop{
			Base:          b,
			TrailPercent:  v.TrailPercent,
			EntryPrice:    v.EntryPrice,
			HighWaterMark: v.HighWaterMark,
		}
		if t.HighWaterMark <= 0 {
			t.HighWaterMark = t.EntryPrice
		}
		t.CurrentStopPrice = trailStop(t.HighWaterMark, t.TrailPercent)
		return t, nil
	default:
		return &Bracket{Base: b, EntryPrice: v.EntryPrice, StopPrice: v.StopPrice, TargetPrice: v.TargetPrice, TriggeredLeg: v.TriggeredLeg}, nil
	}
}
