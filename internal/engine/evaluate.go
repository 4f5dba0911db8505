package engine

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/pkg/i18n"
)

type fired struct {
	o order.Order
	d *order.Decision
}

// ProcessTick evaluates every active order on symbol against price. Every
// order sees the same price. Expiry is checked before the trigger predicate.
func (e *Engine) ProcessTick(symbol string, price float64) {
	if symbol == "" || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		e.ticksDropped.Add(1)
		return
	}
	now := e.cfg.Clock.Now()
	e.ticksProcessed.Add(1)
	e.lastEvalNano.Store(now.UnixNano())
	if e.cfg.Prices != nil {
		e.cfg.Prices.Set(symbol, price)
	}

	if !e.store.HasSymbol(symbol) {
		return
	}

	start := time.Now()
	mu := e.symbolLock(symbol)
	mu.Lock()
	defer mu.Unlock()

	ids := e.store.BySymbol(symbol)
	var hits []fired
	for _, id := range ids {
		o, ok := e.store.Get(id)
		if !ok {
			continue
		}
		b := order.Common(o)
		if b.Status != order.StatusActive {
			continue
		}
		if b.Expired(now) {
			e.expire(o, now)
			continue
		}

		before := b.UpdatedAt
		d, err := e.safeEval(o, price, now)
		if err != nil {
			e.evalFaults.Add(1)
			log.Printf("⚠️ "+i18n.M().EvaluationFault, id, err)
			continue
		}
		if d != nil {
			hits = append(hits, fired{o: o, d: d})
		} else if !b.UpdatedAt.Equal(before) {
			// trailing stop ratcheted
			e.persist(o)
		}
	}

	for _, h := range hits {
		e.fire(h.o, h.d, now)
	}

	if e.cfg.Observer != nil {
		e.cfg.Observer.TickEvaluated(symbol, len(ids), time.Since(start))
	}
}

func (e *Engine) safeEval(o order.Order, price float64, now time.Time) (d *order.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.eval(o, price, now)
}

// fire commits a trigger and runs its side effects in order:
// transition, emit, audit, archive. Caller holds the symbol lock.
func (e *Engine) fire(o order.Order, d *order.Decision, now time.Time) {
	if err := order.MarkTriggered(o, d, now); err != nil {
		e.evalFaults.Add(1)
		log.Printf("⚠️ "+i18n.M().EvaluationFault, d.OrderID, err)
		return
	}
	e.triggers.Add(1)
	b := order.Common(o)
	log.Printf("🎯 "+i18n.M().OrderTriggered, b.ID, o.Type(), d.Action, b.Symbol, d.TriggerPrice, b.AgentID)

	e.emit(events.EventOrderTriggered, b.ID, events.TriggeredEvent{
		Decision:  *d,
		OrderType: o.Type(),
		Notes:     b.Notes,
		RoundID:   b.RoundID,
		AssetID:   b.AssetID,
	})

	fields := map[string]any{
		"type":          o.Type(),
		"symbol":        b.Symbol,
		"action":        d.Action,
		"quantity":      d.Quantity,
		"trigger_price": d.TriggerPrice,
	}
	if d.Leg != order.LegNone {
		fields["leg"] = d.Leg
	}
	e.record(audit.Entry{
		Kind:    audit.KindOrderTriggered,
		Message: fmt.Sprintf("%s %s %s triggered at %.4f", o.Type(), d.Action, b.Symbol, d.TriggerPrice),
		AgentID: b.AgentID,
		RoundID: b.RoundID,
		OrderID: b.ID,
		Fields:  fields,
		At:      now,
	})

	e.archive(o)
	if e.cfg.Observer != nil {
		e.cfg.Observer.OrderTriggered(o.Type())
	}
}

// expire retires an order whose deadline passed. Caller holds the symbol lock.
func (e *Engine) expire(o order.Order, now time.Time) {
	if err := order.Transition(o, order.StatusExpired, now); err != nil {
		return
	}
	e.expired.Add(1)
	b := order.Common(o)
	log.Printf("⌛ "+i18n.M().OrderExpired, b.ID, b.AgentID)
	e.emit(events.EventOrderExpired, b.ID, events.OrderEvent{Order: order.ToView(o), Reason: "expired"})
	e.archive(o)
}

// archive moves o from the live store into the history ring and persists
// its final snapshot.
func (e *Engine) archive(o order.Order) {
	e.persist(o)
	e.store.Remove(order.Common(o).ID)
	e.history.Append(o)
}

func (e *Engine) emit(ev events.Event, orderID string, payload any) {
	if e.cfg.Bus == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.emitFailures.Add(1)
			log.Printf("⚠️ "+i18n.M().EmitFailed, orderID, r)
		}
	}()
	if e.cfg.Bus.Publish(ev, payload) == 0 {
		e.undelivered.Add(1)
	}
}

func (e *Engine) record(entry audit.Entry) {
	defer func() {
		if r := recover(); r != nil {
			e.auditFailures.Add(1)
			log.Printf("⚠️ "+i18n.M().AuditFailed, entry.Kind, r)
		}
	}()
	if err := e.cfg.Audit.LogEvent(entry); err != nil {
		e.auditFailures.Add(1)
		log.Printf("⚠️ "+i18n.M().AuditFailed, entry.Kind, err)
	}
}

func (e *Engine) persist(o order.Order) {
	e.persistView(order.ToView(o))
}

func (e *Engine) persistView(v order.View) {
	if e.cfg.Persister == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.persistFailures.Add(1)
			log.Printf("⚠️ "+i18n.M().PersistFailed, v.ID, r)
		}
	}()
	if err := e.cfg.Persister.SaveOrder(v); err != nil {
		e.persistFailures.Add(1)
		log.Printf("⚠️ "+i18n.M().PersistFailed, v.ID, err)
	}
}
