package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/pkg/i18n"
)

// Place validates req, builds the typed order and makes it live.
func (e *Engine) Place(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	if err := ctx.Err(); err != nil {
		return order.View{}, err
	}
	if err := req.Validate(); err != nil {
		return order.View{}, err
	}

	var ref float64
	if e.cfg.Prices != nil {
		if p, ok := e.cfg.Prices.Get(req.Symbol); ok {
			ref = p
		}
	}

	mu := e.symbolLock(req.Symbol)
	mu.Lock()
	defer mu.Unlock()

	now := e.cfg.Clock.Now()
	o, err := order.New(req, e.cfg.NewID(), now, ref)
	if err != nil {
		return order.View{}, err
	}
	e.store.Put(o)
	v := order.ToView(o)
	e.persistView(v)

	log.Printf("📝 "+i18n.M().OrderPlaced, v.ID, v.Type, v.Symbol, v.Quantity, v.AgentID)
	e.emit(events.EventOrderPlaced, v.ID, events.OrderEvent{Order: v})
	e.record(audit.Entry{
		Kind:    audit.KindOrderPlaced,
		Message: fmt.Sprintf("%s %s %s qty=%g", v.Type, v.Action, v.Symbol, v.Quantity),
		AgentID: v.AgentID,
		RoundID: v.RoundID,
		OrderID: v.ID,
		Fields:  placedFields(v),
		At:      now,
	})
	return v, nil
}

func placedFields(v order.View) map[string]any {
	f := map[string]any{
		"type":     v.Type,
		"symbol":   v.Symbol,
		"action":   v.Action,
		"quantity": v.Quantity,
	}
	set := func(k string, x float64) {
		if x != 0 {
			f[k] = x
		}
	}
	set("limit_price", v.LimitPrice)
	set("stop_price", v.StopPrice)
	set("entry_price", v.EntryPrice)
	set("target_price", v.TargetPrice)
	set("trail_percent", v.TrailPercent)
	set("current_stop_price", v.CurrentStopPrice)
	if v.ExpiresAt != nil {
		f["expires_at"] = *v.ExpiresAt
	}
	return f
}

func (e *Engine) placeAs(ctx context.Context, t order.Type, req order.PlaceRequest) (order.View, error) {
	req.Type = t
	return e.Place(ctx, req)
}

func (e *Engine) PlaceLimitBuy(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeLimitBuy, req)
}

func (e *Engine) PlaceLimitSell(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeLimitSell, req)
}

func (e *Engine) PlaceStopLoss(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeStopLoss, req)
}

func (e *Engine) PlaceTrailingStop(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeTrailingStop, req)
}

func (e *Engine) PlaceTakeProfit(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeTakeProfit, req)
}

func (e *Engine) PlaceBracket(ctx context.Context, req order.PlaceRequest) (order.View, error) {
	return e.placeAs(ctx, order.TypeBracket, req)
}

// Cancel cancels a pending or active order. It returns false when the order
// is unknown or has already left the cancellable states.
func (e *Engine) Cancel(id string) bool {
	o, ok := e.store.Get(id)
	if !ok {
		return false
	}
	mu := e.symbolLock(order.Common(o).Symbol)
	mu.Lock()
	defer mu.Unlock()

	// a trigger or expiry may have won the lock
	o, ok = e.store.Get(id)
	if !ok {
		return false
	}
	b := order.Common(o)
	if !order.Cancellable(b.Status) {
		return false
	}
	now := e.cfg.Clock.Now()
	if err := order.Transition(o, order.StatusCancelled, now); err != nil {
		return false
	}
	e.cancelled.Add(1)

	log.Printf("🚫 "+i18n.M().OrderCancelled, b.ID, b.AgentID)
	v := order.ToView(o)
	e.emit(events.EventOrderCancelled, b.ID, events.OrderEvent{Order: v, Reason: "cancelled"})
	e.record(audit.Entry{
		Kind:    audit.KindOrderCancelled,
		Message: fmt.Sprintf("%s %s cancelled", v.Type, v.Symbol),
		AgentID: b.AgentID,
		RoundID: b.RoundID,
		OrderID: b.ID,
		Fields:  map[string]any{"type": v.Type, "symbol": v.Symbol},
		At:      now,
	})
	e.archive(o)
	return true
}

// CancelAllForAgent cancels every cancellable order owned by agentID and
// returns how many were cancelled.
func (e *Engine) CancelAllForAgent(agentID string) int {
	n := 0
	for _, o := range e.store.ByAgent(agentID) {
		if e.Cancel(order.Common(o).ID) {
			n++
		}
	}
	return n
}

// MarkExecuting records that the executor picked up a triggered order.
func (e *Engine) MarkExecuting(id string) bool {
	return e.advance(id, order.StatusExecuting, "")
}

// MarkFilled records a successful execution.
func (e *Engine) MarkFilled(id string) bool {
	return e.advance(id, order.StatusFilled, "")
}

// MarkFailed records a failed execution and its reason.
func (e *Engine) MarkFailed(id, reason string) bool {
	return e.advance(id, order.StatusFailed, reason)
}

// advance moves an archived order along the execution edges. Orders that
// were evicted from history, or whose move is illegal, report false.
func (e *Engine) advance(id string, to order.Status, reason string) bool {
	// A trigger publishes before archiving, so an executor can get here
	// while the order is still in the store. The symbol lock waits it out.
	if o, ok := e.store.Get(id); ok {
		mu := e.symbolLock(order.Common(o).Symbol)
		mu.Lock()
		_, live := e.store.Get(id)
		mu.Unlock()
		if live {
			return false
		}
	}

	var snapshot order.View
	found, err := e.history.Update(id, func(o order.Order) error {
		if err := order.Transition(o, to, e.cfg.Clock.Now()); err != nil {
			return err
		}
		if reason != "" {
			order.Common(o).FailReason = reason
		}
		snapshot = order.ToView(o)
		return nil
	})
	if !found || err != nil {
		return false
	}
	e.persistView(snapshot)
	return true
}

// Restore re-inserts persisted active orders. Rows that are not active or
// whose id is already known are skipped. It returns the number restored.
func (e *Engine) Restore(views []order.View) int {
	n := 0
	for _, v := range views {
		if v.Status != order.StatusActive {
			continue
		}
		if _, ok := e.store.Get(v.ID); ok {
			continue
		}
		if _, ok := e.history.Get(v.ID); ok {
			continue
		}
		o, err := order.FromView(v)
		if err != nil {
			log.Printf("⚠️ "+i18n.M().OrdersRestoreError, err)
			continue
		}
		mu := e.symbolLock(v.Symbol)
		mu.Lock()
		e.store.Put(o)
		mu.Unlock()
		n++
	}
	if n > 0 {
		log.Printf("♻️ "+i18n.M().OrdersRestored, n)
	}
	return n
}
