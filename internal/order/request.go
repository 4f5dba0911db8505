package order

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRequest wraps every placement validation failure.
var ErrInvalidRequest = errors.New("invalid order request")

// PlaceRequest carries the parameters of a placement call. Only the fields
// relevant to Type are read.
type PlaceRequest struct {
	Type         Type       `json:"type" yaml:"type"`
	AgentID      string     `json:"agent_id" yaml:"agent_id"`
	Symbol       string     `json:"symbol" yaml:"symbol"`
	AssetID      string     `json:"asset_id" yaml:"asset_id"`
	Quantity     float64    `json:"quantity" yaml:"quantity"`
	LimitPrice   float64    `json:"limit_price,omitempty" yaml:"limit_price"`
	StopPrice    float64    `json:"stop_price,omitempty" yaml:"stop_price"`
	EntryPrice   float64    `json:"entry_price,omitempty" yaml:"entry_price"`
	TargetPrice  float64    `json:"target_price,omitempty" yaml:"target_price"`
	TrailPercent float64    `json:"trail_percent,omitempty" yaml:"trail_percent"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" yaml:"expires_at"`
	RoundID      string     `json:"round_id,omitempty" yaml:"round_id"`
	Notes        string     `json:"notes,omitempty" yaml:"notes"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid("%s must be > 0", name)
	}
	return nil
}

// Validate checks the request for the fields its type needs.
func (r PlaceRequest) Validate() error {
	if !r.Type.Valid() {
		return invalid("unknown order type %q", r.Type)
	}
	if strings.TrimSpace(r.AgentID) == "" {
		return invalid("agent_id is required")
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return invalid("symbol is required")
	}
	if err := positive("quantity", r.Quantity); err != nil {
		return err
	}

	var checks []error
	switch r.Type {
	case TypeLimitBuy, TypeLimitSell:
		checks = append(checks, positive("limit_price", r.LimitPrice))
	case TypeStopLoss:
		checks = append(checks, positive("stop_price", r.StopPrice), positive("entry_price", r.EntryPrice))
	case TypeTakeProfit:
		checks = append(checks, positive("target_price", r.TargetPrice), positive("entry_price", r.EntryPrice))
	case TypeTrailingStop:
		checks = append(checks, positive("entry_price", r.EntryPrice))
		if math.IsNaN(r.TrailPercent) || r.TrailPercent <= 0 || r.TrailPercent >= 100 {
			checks = append(checks, invalid("trail_percent must be within (0, 100)"))
		}
	case TypeBracket:
		checks = append(checks,
			positive("entry_price", r.EntryPrice),
			positive("stop_price", r.StopPrice),
			positive("target_price", r.TargetPrice),
		)
		if r.StopPrice >= r.TargetPrice {
			checks = append(checks, invalid("stop_price must be below target_price"))
		}
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// percentOf returns (a-b)/base*100 rounded to two decimals.
func percentOf(a, b, base float64) float64 {
	d := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).
		Div(decimal.NewFromFloat(base)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return d.InexactFloat64()
}

// New builds the typed order for a validated request. refPrice is the last
// observed feed price for the symbol (0 when unknown); trailing stops seed
// their high-water mark from it.
func New(r PlaceRequest, id string, now time.Time, refPrice float64) (Order, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	b := Base{
		ID:        id,
		AgentID:   r.AgentID,
		Symbol:    r.Symbol,
		AssetID:   r.AssetID,
		Status:    StatusActive,
		Quantity:  r.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
		RoundID:   r.RoundID,
		Notes:     r.Notes,
	}
	if r.ExpiresAt != nil {
		exp := *r.ExpiresAt
		b.ExpiresAt = &exp
	}

	switch r.Type {
	case TypeLimitBuy:
		return &LimitBuy{Base: b, LimitPrice: r.LimitPrice}, nil
	case TypeLimitSell:
		return &LimitSell{Base: b, LimitPrice: r.LimitPrice}, nil
	case TypeStopLoss:
		return &StopLoss{
			Base:               b,
			StopPrice:          r.StopPrice,
			EntryPrice:         r.EntryPrice,
			TriggerLossPercent: percentOf(r.EntryPrice, r.StopPrice, r.EntryPrice),
		}, nil
	case TypeTakeProfit:
		return &TakeProfit{
			Base:                b,
			TargetPrice:         r.TargetPrice,
			EntryPrice:          r.EntryPrice,
			TargetProfitPercent: percentOf(r.TargetPrice, r.EntryPrice, r.EntryPrice),
		}, nil
	case TypeTrailingStop:
		hwm := r.EntryPrice
		if refPrice > 0 && !math.IsInf(refPrice, 0) {
			hwm = refPrice
		}
		return &TrailingStop{
			Base:             b,
			TrailPercent:     r.TrailPercent,
			EntryPrice:       r.EntryPrice,
			HighWaterMark:    hwm,
			CurrentStopPrice: trailStop(hwm, r.TrailPercent),
		}, nil
	case TypeBracket:
		return &Bracket{
			Base:        b,
			EntryPrice:  r.EntryPrice,
			StopPrice:   r.StopPrice,
			TargetPrice: r.TargetPrice,
		}, nil
	}
	return nil, invalid("unknown order type %q", r.Type)
}
