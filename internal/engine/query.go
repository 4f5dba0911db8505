package engine

import (
	"sort"
	"time"

	"github.com/patruff/moltapp-sub001/internal/order"
)

// view snapshots a live order under its symbol lock. Archived orders move
// under the history lock, so a pointer that left the store reports false.
func (e *Engine) view(o order.Order) (order.View, bool) {
	b := order.Common(o)
	mu := e.symbolLock(b.Symbol)
	mu.Lock()
	defer mu.Unlock()
	if cur, ok := e.store.Get(b.ID); !ok || cur != o {
		return order.View{}, false
	}
	return order.ToView(o), true
}

func (e *Engine) views(orders []order.Order) []order.View {
	out := make([]order.View, 0, len(orders))
	for _, o := range orders {
		if v, ok := e.view(o); ok {
			out = append(out, v)
		}
	}
	return out
}

// GetOrder looks in the live store first, then in history.
func (e *Engine) GetOrder(id string) (order.View, bool) {
	if o, ok := e.store.Get(id); ok {
		if v, live := e.view(o); live {
			return v, true
		}
	}
	if o, ok := e.history.Get(id); ok {
		return order.ToView(o), true
	}
	return order.View{}, false
}

// AgentOrders returns the live orders of agentID, oldest first.
func (e *Engine) AgentOrders(agentID string) []order.View {
	return e.views(e.store.ByAgent(agentID))
}

// SymbolOrders returns the active orders on symbol, oldest first.
func (e *Engine) SymbolOrders(symbol string) []order.View {
	var orders []order.Order
	for _, id := range e.store.BySymbol(symbol) {
		if o, ok := e.store.Get(id); ok {
			orders = append(orders, o)
		}
	}
	out := e.views(orders)
	sortViews(out)
	return out
}

// AllOrders returns every live order, oldest first.
func (e *Engine) AllOrders() []order.View {
	return e.views(e.store.All())
}

// History returns up to limit archived orders, newest first. A limit of
// zero or less returns the whole archive.
func (e *Engine) History(limit int) []order.View {
	recent := e.history.Recent(limit)
	out := make([]order.View, 0, len(recent))
	for _, o := range recent {
		out = append(out, order.ToView(o))
	}
	return out
}

// Metrics aggregates the live store and the archive.
func (e *Engine) Metrics() Metrics {
	m := Metrics{
		ByStatus:        make(map[order.Status]int),
		ByType:          make(map[order.Type]int),
		ByAgent:         make(map[string]int),
		Subscribed:      e.Running(),
		TicksProcessed:  e.ticksProcessed.Load(),
		TicksDropped:    e.ticksDropped.Load(),
		Triggers:        e.triggers.Load(),
		Expired:         e.expired.Load(),
		Cancelled:       e.cancelled.Load(),
		EvalFaults:      e.evalFaults.Load(),
		EmitFailures:    e.emitFailures.Load(),
		Undelivered:     e.undelivered.Load(),
		AuditFailures:   e.auditFailures.Load(),
		PersistFailures: e.persistFailures.Load(),
		ActiveSymbols:   len(e.store.Symbols()),
		HistorySize:     e.history.Len(),
		HistoryCapacity: e.history.Cap(),
	}
	if ns := e.lastEvalNano.Load(); ns != 0 {
		at := time.Unix(0, ns).UTC()
		m.LastEvaluationAt = &at
	}

	count := func(v order.View) {
		m.ByStatus[v.Status]++
		m.ByType[v.Type]++
		m.ByAgent[v.AgentID]++
	}
	live := e.AllOrders()
	m.LiveOrders = len(live)
	seen := make(map[string]struct{}, len(live))
	for _, v := range live {
		seen[v.ID] = struct{}{}
		count(v)
	}
	// an order archived since the live snapshot is counted once
	e.history.Each(func(o order.Order) {
		if _, dup := seen[order.Common(o).ID]; !dup {
			count(order.ToView(o))
		}
	})
	return m
}

func sortViews(vs []order.View) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].ID < vs[j].ID
		}
		return vs[i].CreatedAt.Before(vs[j].CreatedAt)
	})
}

// ActiveSymbols returns the symbols that have at least one active order.
func (e *Engine) ActiveSymbols() []string {
	return e.store.Symbols()
}
