package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/order"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// PaperConfig tunes the paper executor.
type PaperConfig struct {
	FeeRate        float64 // decimal, e.g. 0.001 = 10 bps
	SlippageBps    float64 // worst-case adverse slippage
	LatencyMinMs   int
	LatencyMaxMs   int
	InitialBalance float64 // USDC per agent; 0 disables the balance check
	Seed           int64   // 0 seeds from the clock
}

// Position is a simulated holding.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// PaperExecutor fills triggered orders at the trigger price adjusted by
// random adverse slippage, and keeps per-agent cash and positions.
type PaperExecutor struct {
	cfg PaperConfig

	mu        sync.Mutex
	rng       *rand.Rand
	balances  map[string]decimal.Decimal
	positions map[string]map[string]*Position
}

// NewPaperExecutor creates a paper executor.
func NewPaperExecutor(cfg PaperConfig) *PaperExecutor {
	if cfg.LatencyMaxMs > 0 && cfg.LatencyMinMs > cfg.LatencyMaxMs {
		cfg.LatencyMinMs, cfg.LatencyMaxMs = cfg.LatencyMaxMs, cfg.LatencyMinMs
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &PaperExecutor{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		balances:  make(map[string]decimal.Decimal),
		positions: make(map[string]map[string]*Position),
	}
}

// Execute simulates gateway latency and fills ev.
func (p *PaperExecutor) Execute(ctx context.Context, ev events.TriggeredEvent) (Fill, error) {
	if err := p.sleep(ctx); err != nil {
		return Fill{}, err
	}
	if ev.TriggerPrice <= 0 || ev.Quantity <= 0 {
		return Fill{}, fmt.Errorf("order %s: nothing to fill", ev.OrderID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price := decimal.NewFromFloat(ev.TriggerPrice)
	if slip := p.cfg.SlippageBps / 10000; slip > 0 {
		noise := decimal.NewFromFloat(p.rng.Float64() * slip)
		if ev.Action == order.ActionBuy {
			price = price.Mul(decimal.NewFromInt(1).Add(noise))
		} else {
			price = price.Mul(decimal.NewFromInt(1).Sub(noise))
		}
	}
	price = price.Round(6)
	feeRate := decimal.NewFromFloat(p.cfg.FeeRate)
	qty := decimal.NewFromFloat(ev.Quantity)
	cash := p.balance(ev.AgentID)

	var units, fee decimal.Decimal
	if ev.Action == order.ActionBuy {
		// buy quantity is denominated in USDC
		fee = qty.Mul(feeRate)
		if p.cfg.InitialBalance > 0 && qty.Add(fee).GreaterThan(cash) {
			return Fill{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, qty.Add(fee).StringFixed(2), cash.StringFixed(2))
		}
		units = qty.Div(price)
		p.balances[ev.AgentID] = cash.Sub(qty).Sub(fee)
		p.addPosition(ev.AgentID, ev.Symbol, units, price)
	} else {
		units = qty
		proceeds := qty.Mul(price)
		fee = proceeds.Mul(feeRate)
		p.balances[ev.AgentID] = cash.Add(proceeds).Sub(fee)
		p.addPosition(ev.AgentID, ev.Symbol, units.Neg(), price)
	}

	return Fill{
		Price:    price.InexactFloat64(),
		Quantity: units.Round(8).InexactFloat64(),
		Fee:      fee.Round(6).InexactFloat64(),
	}, nil
}

func (p *PaperExecutor) sleep(ctx context.Context) error {
	lo, hi := p.cfg.LatencyMinMs, p.cfg.LatencyMaxMs
	if hi <= 0 {
		return ctx.Err()
	}
	if lo < 0 {
		lo = 0
	}
	ms := lo
	p.mu.Lock()
	if span := hi - lo; span > 0 {
		ms += p.rng.Intn(span + 1)
	}
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}

func (p *PaperExecutor) balance(agentID string) decimal.Decimal {
	if b, ok := p.balances[agentID]; ok {
		return b
	}
	return decimal.NewFromFloat(p.cfg.InitialBalance)
}

func (p *PaperExecutor) addPosition(agentID, symbol string, units, price decimal.Decimal) {
	book, ok := p.positions[agentID]
	if !ok {
		book = make(map[string]*Position)
		p.positions[agentID] = book
	}
	pos, ok := book[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		book[symbol] = pos
	}
	held := decimal.NewFromFloat(pos.Quantity)
	next := held.Add(units)
	if units.IsPositive() && next.IsPositive() {
		cost := held.Mul(decimal.NewFromFloat(pos.AvgPrice)).Add(units.Mul(price))
		pos.AvgPrice = cost.Div(next).Round(6).InexactFloat64()
	}
	pos.Quantity = next.Round(8).InexactFloat64()
	if next.IsZero() {
		delete(book, symbol)
	}
}

// Balance returns the simulated USDC balance of agentID.
func (p *PaperExecutor) Balance(agentID string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance(agentID).InexactFloat64()
}

// Positions returns a copy of agentID's simulated holdings.
func (p *PaperExecutor) Positions(agentID string) []Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, 0, len(p.positions[agentID]))
	for _, pos := range p.positions[agentID] {
		out = append(out, *pos)
	}
	return out
}
