package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/market"
	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/pkg/cache"
)

var t0 = time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type published struct {
	topic   events.Event
	payload any
}

type recordingBus struct {
	mu        sync.Mutex
	out       []published
	panicOn   events.Event
	onPublish func(events.Event, any)
}

func (b *recordingBus) Publish(e events.Event, payload any) int {
	if e == b.panicOn {
		panic("bus down")
	}
	if b.onPublish != nil {
		b.onPublish(e, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = append(b.out, published{e, payload})
	return 1
}

func (b *recordingBus) topic(e events.Event) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, p := range b.out {
		if p.topic == e {
			out = append(out, p.payload)
		}
	}
	return out
}

func (b *recordingBus) triggered() []events.TriggeredEvent {
	var out []events.TriggeredEvent
	for _, p := range b.topic(events.EventOrderTriggered) {
		out = append(out, p.(events.TriggeredEvent))
	}
	return out
}

type auditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
	onLog   func(audit.Entry)
}

func (a *auditLog) LogEvent(e audit.Entry) error {
	if a.onLog != nil {
		a.onLog(e)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return a.err
}

func (a *auditLog) kinds() []audit.Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Kind, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Kind)
	}
	return out
}

type persisterFunc func(order.View) error

func (f persisterFunc) SaveOrder(v order.View) error { return f(v) }

type chanFeed struct {
	ch     chan market.Tick
	subs   atomic.Int32
	unsubs atomic.Int32
}

func (f *chanFeed) Subscribe(int) (<-chan market.Tick, func()) {
	f.subs.Add(1)
	return f.ch, func() { f.unsubs.Add(1) }
}

type harness struct {
	*Engine
	bus    *recordingBus
	clock  *fakeClock
	audit  *auditLog
	prices *cache.PriceCache
}

func newHarness(t *testing.T, mut ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		bus:    &recordingBus{},
		clock:  &fakeClock{now: t0},
		audit:  &auditLog{},
		prices: cache.NewPriceCache(),
	}
	var seq atomic.Int64
	cfg := Config{
		Bus:    h.bus,
		Audit:  h.audit,
		Prices: h.prices,
		Clock:  h.clock,
		NewID:  func() string { return fmt.Sprintf("ord-%d", seq.Add(1)) },
	}
	for _, m := range mut {
		m(&cfg)
	}
	h.Engine = New(cfg)
	return h
}

func (h *harness) status(t *testing.T, id string) order.Status {
	t.Helper()
	v, ok := h.GetOrder(id)
	require.True(t, ok, "order %s not found", id)
	return v.Status
}

var ctx = context.Background()

func TestStopLossTriggersOnce(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceStopLoss(ctx, order.PlaceRequest{
		AgentID: "agent-claude", Symbol: "TSLAx", Quantity: 5, StopPrice: 90, EntryPrice: 100, RoundID: "round-7",
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.TriggerLossPercent)
	assert.Equal(t, order.StatusActive, v.Status)

	h.ProcessTick("TSLAx", 91)
	assert.Empty(t, h.bus.triggered())

	h.ProcessTick("TSLAx", 89)
	got := h.bus.triggered()
	require.Len(t, got, 1)
	assert.Equal(t, v.ID, got[0].OrderID)
	assert.Equal(t, order.ActionSell, got[0].Action)
	assert.Equal(t, 5.0, got[0].Quantity)
	assert.Equal(t, 89.0, got[0].TriggerPrice)
	assert.Equal(t, order.TypeStopLoss, got[0].OrderType)
	assert.Equal(t, "round-7", got[0].RoundID)

	assert.Equal(t, order.StatusTriggered, h.status(t, v.ID))
	assert.Empty(t, h.AllOrders())
	require.Len(t, h.History(0), 1)
	assert.Equal(t, []audit.Kind{audit.KindOrderPlaced, audit.KindOrderTriggered}, h.audit.kinds())

	// archived orders are no longer evaluated
	h.ProcessTick("TSLAx", 80)
	assert.Len(t, h.bus.triggered(), 1)
}

func TestTrailingStopRatchetsAndFires(t *testing.T) {
	h := newHarness(t)
	h.prices.Set("NVDAx", 50)

	v, err := h.PlaceTrailingStop(ctx, order.PlaceRequest{
		AgentID: "agent-gpt", Symbol: "NVDAx", Quantity: 2, EntryPrice: 50, TrailPercent: 5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 47.5, v.CurrentStopPrice, 1e-9)

	h.ProcessTick("NVDAx", 60)
	live, ok := h.GetOrder(v.ID)
	require.True(t, ok)
	assert.Equal(t, 60.0, live.HighWaterMark)
	assert.InDelta(t, 57.0, live.CurrentStopPrice, 1e-9)
	assert.Empty(t, h.bus.triggered())

	h.ProcessTick("NVDAx", 56)
	got := h.bus.triggered()
	require.Len(t, got, 1)
	assert.Equal(t, 56.0, got[0].TriggerPrice)
	assert.Equal(t, order.StatusTriggered, h.status(t, v.ID))
}

func TestLimitBuyBoundaryIsInclusive(t *testing.T) {
	h := newHarness(t)
	at, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 100, LimitPrice: 10})
	require.NoError(t, err)
	above, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "a", Symbol: "MSFTx", Quantity: 100, LimitPrice: 10})
	require.NoError(t, err)

	h.ProcessTick("AAPLx", 10.0)
	h.ProcessTick("MSFTx", 10.01)

	assert.Equal(t, order.StatusTriggered, h.status(t, at.ID))
	assert.Equal(t, order.StatusActive, h.status(t, above.ID))
	require.Len(t, h.bus.triggered(), 1)
	assert.Equal(t, order.ActionBuy, h.bus.triggered()[0].Action)
}

func TestExpiryIsLazy(t *testing.T) {
	h := newHarness(t)
	past := t0.Add(-time.Minute)
	v, err := h.PlaceLimitSell(ctx, order.PlaceRequest{
		AgentID: "a", Symbol: "GOOGLx", Quantity: 1, LimitPrice: 100, ExpiresAt: &past,
	})
	require.NoError(t, err)

	// no tick for the symbol: the order stays active however long we wait
	h.clock.Advance(24 * time.Hour)
	h.ProcessTick("AAPLx", 150)
	assert.Equal(t, order.StatusActive, h.status(t, v.ID))

	// a tick that would trigger it expires it instead
	h.ProcessTick("GOOGLx", 150)
	assert.Equal(t, order.StatusExpired, h.status(t, v.ID))
	assert.Empty(t, h.bus.triggered())
	assert.Len(t, h.bus.topic(events.EventOrderExpired), 1)
	assert.EqualValues(t, 1, h.Metrics().Expired)
	assert.False(t, h.Cancel(v.ID))
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceTakeProfit(ctx, order.PlaceRequest{AgentID: "a", Symbol: "METAx", Quantity: 3, TargetPrice: 120, EntryPrice: 100})
	require.NoError(t, err)

	assert.False(t, h.Cancel("missing"))
	assert.True(t, h.Cancel(v.ID))
	assert.False(t, h.Cancel(v.ID))
	assert.Equal(t, order.StatusCancelled, h.status(t, v.ID))

	// cancelled orders never trigger
	h.ProcessTick("METAx", 130)
	assert.Empty(t, h.bus.triggered())
	assert.Equal(t, []audit.Kind{audit.KindOrderPlaced, audit.KindOrderCancelled}, h.audit.kinds())
}

func TestCancelAfterTriggerIsRejected(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "SPYx", Quantity: 1, LimitPrice: 500})
	require.NoError(t, err)
	h.ProcessTick("SPYx", 501)

	before, _ := h.GetOrder(v.ID)
	assert.False(t, h.Cancel(v.ID))
	after, _ := h.GetOrder(v.ID)
	assert.Equal(t, before, after)
}

func TestCancelRacingTriggerHasOneWinner(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := newHarness(t)
		v, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 10})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			cancelled bool
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancelled = h.Cancel(v.ID)
		}()
		go func() {
			defer wg.Done()
			h.ProcessTick("AAPLx", 11)
		}()
		wg.Wait()

		if cancelled {
			assert.Equal(t, order.StatusCancelled, h.status(t, v.ID))
			assert.Empty(t, h.bus.triggered())
		} else {
			assert.Equal(t, order.StatusTriggered, h.status(t, v.ID))
			assert.Len(t, h.bus.triggered(), 1)
		}
	}
}

func TestBracketFiresOneLeg(t *testing.T) {
	h := newHarness(t)
	req := order.PlaceRequest{AgentID: "a", Symbol: "AMZNx", Quantity: 4, EntryPrice: 100, StopPrice: 90, TargetPrice: 120}
	v, err := h.PlaceBracket(ctx, req)
	require.NoError(t, err)

	h.ProcessTick("AMZNx", 100)
	live, _ := h.GetOrder(v.ID)
	assert.Equal(t, order.LegNone, live.TriggeredLeg)

	h.ProcessTick("AMZNx", 125)
	h.ProcessTick("AMZNx", 85)

	got := h.bus.triggered()
	require.Len(t, got, 1)
	assert.Equal(t, order.LegTakeProfit, got[0].Leg)

	final, _ := h.GetOrder(v.ID)
	assert.Equal(t, order.StatusTriggered, final.Status)
	assert.Equal(t, order.LegTakeProfit, final.TriggeredLeg)
	assert.Equal(t, 125.0, final.TriggerPrice)
}

func TestTriggerSideEffectOrder(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceStopLoss(ctx, order.PlaceRequest{AgentID: "a", Symbol: "TSLAx", Quantity: 1, StopPrice: 90, EntryPrice: 100})
	require.NoError(t, err)

	// hooks run on the tick goroutine while it holds the symbol lock, so
	// they read the store directly
	var steps []string
	liveStatus := func() string {
		o, ok := h.store.Get(v.ID)
		if !ok {
			return "archived"
		}
		return string(order.Common(o).Status)
	}
	h.bus.onPublish = func(e events.Event, _ any) {
		if e == events.EventOrderTriggered {
			steps = append(steps, "emit:"+liveStatus())
		}
	}
	h.audit.onLog = func(e audit.Entry) {
		if e.Kind == audit.KindOrderTriggered {
			steps = append(steps, "audit:"+liveStatus())
		}
	}

	h.ProcessTick("TSLAx", 89)

	assert.Equal(t, []string{"emit:triggered", "audit:triggered"}, steps)
	_, live := h.store.Get(v.ID)
	assert.False(t, live)
	archived, ok := h.history.Get(v.ID)
	require.True(t, ok)
	assert.Equal(t, order.StatusTriggered, order.Common(archived).Status)
}

func TestBracketLegSurvivesExecution(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceBracket(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AMZNx", Quantity: 4, EntryPrice: 100, StopPrice: 90, TargetPrice: 120})
	require.NoError(t, err)

	h.ProcessTick("AMZNx", 88)
	require.True(t, h.MarkExecuting(v.ID))
	got, _ := h.GetOrder(v.ID)
	assert.Equal(t, order.StatusExecuting, got.Status)
	assert.Equal(t, order.LegStopLoss, got.TriggeredLeg)

	require.True(t, h.MarkFilled(v.ID))
	got, _ = h.GetOrder(v.ID)
	assert.Equal(t, order.StatusFilled, got.Status)
	assert.Equal(t, order.LegStopLoss, got.TriggeredLeg)
	assert.Equal(t, 88.0, got.TriggerPrice)
}

func TestEvaluationPanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	bad, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "TSLAx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)
	good, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "TSLAx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)

	h.eval = func(o order.Order, price float64, now time.Time) (*order.Decision, error) {
		if order.Common(o).ID == bad.ID {
			panic("boom")
		}
		return order.Evaluate(o, price, now)
	}
	h.ProcessTick("TSLAx", 12)

	assert.Equal(t, order.StatusActive, h.status(t, bad.ID))
	assert.Equal(t, order.StatusTriggered, h.status(t, good.ID))
	assert.EqualValues(t, 1, h.Metrics().EvalFaults)
}

func TestSinkFailuresAreSwallowedAndCounted(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Persister = persisterFunc(func(order.View) error { return errors.New("disk full") })
	})
	h.bus.panicOn = events.EventOrderTriggered
	h.audit.err = errors.New("audit unavailable")

	v, err := h.PlaceStopLoss(ctx, order.PlaceRequest{AgentID: "a", Symbol: "TSLAx", Quantity: 1, StopPrice: 90, EntryPrice: 100})
	require.NoError(t, err)
	h.ProcessTick("TSLAx", 90)

	assert.Equal(t, order.StatusTriggered, h.status(t, v.ID))
	m := h.Metrics()
	assert.EqualValues(t, 1, m.Triggers)
	assert.EqualValues(t, 1, m.EmitFailures)
	assert.EqualValues(t, 2, m.AuditFailures)
	assert.EqualValues(t, 2, m.PersistFailures)
}

func TestInvalidTicksAreDropped(t *testing.T) {
	h := newHarness(t)
	_, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)

	for _, p := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		h.ProcessTick("AAPLx", p)
	}
	h.ProcessTick("", 5)

	m := h.Metrics()
	assert.EqualValues(t, 5, m.TicksDropped)
	assert.Zero(t, m.TicksProcessed)
	assert.Nil(t, m.LastEvaluationAt)
	assert.Empty(t, h.bus.triggered())
}

func TestStartIsExclusiveAndStopIdempotent(t *testing.T) {
	feed := &chanFeed{ch: make(chan market.Tick, 4)}
	h := newHarness(t, func(c *Config) { c.Feed = feed })
	v, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)

	require.NoError(t, h.Start(ctx))
	assert.ErrorIs(t, h.Start(ctx), ErrAlreadyRunning)
	assert.True(t, h.Running())
	assert.True(t, h.Metrics().Subscribed)

	feed.ch <- market.Tick{Symbol: "AAPLx", Price: 11}
	require.Eventually(t, func() bool {
		got, _ := h.GetOrder(v.ID)
		return got.Status == order.StatusTriggered
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
	assert.False(t, h.Running())
	assert.EqualValues(t, 1, feed.subs.Load())
	assert.EqualValues(t, 1, feed.unsubs.Load())

	require.NoError(t, h.Start(ctx))
	h.Stop()
	assert.EqualValues(t, 2, feed.subs.Load())
}

func TestStartAfterContextEnds(t *testing.T) {
	feed := &chanFeed{ch: make(chan market.Tick)}
	h := newHarness(t, func(c *Config) { c.Feed = feed })

	runCtx, cancel := context.WithCancel(ctx)
	require.NoError(t, h.Start(runCtx))
	cancel()
	require.Eventually(t, func() bool { return !h.Running() }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Start(ctx))
	assert.EqualValues(t, 1, feed.unsubs.Load())
	h.Stop()
}

func TestStartWithoutFeed(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.Start(ctx), ErrNoPriceFeed)
	assert.False(t, h.Running())
}

func TestExecutionFollowThrough(t *testing.T) {
	h := newHarness(t)
	v, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)

	assert.False(t, h.MarkExecuting(v.ID), "active orders cannot execute")
	h.ProcessTick("AAPLx", 10)

	assert.False(t, h.MarkFilled(v.ID), "triggered must pass through executing")
	assert.True(t, h.MarkExecuting(v.ID))
	assert.True(t, h.MarkFailed(v.ID, "insufficient liquidity"))
	assert.False(t, h.MarkFilled(v.ID))

	got, _ := h.GetOrder(v.ID)
	assert.Equal(t, order.StatusFailed, got.Status)
	assert.Equal(t, "insufficient liquidity", got.FailReason)
	assert.False(t, h.MarkExecuting("missing"))
}

func TestReadsDuringExecutionFollowThrough(t *testing.T) {
	const n = 300
	h := newHarness(t)
	for i := 0; i < n; i++ {
		_, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "a", Symbol: fmt.Sprintf("SYM%dx", i), Quantity: 1, LimitPrice: 10})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, v := range h.AllOrders() {
				assert.Equal(t, order.StatusActive, v.Status)
			}
			m := h.Metrics()
			total := 0
			for _, c := range m.ByStatus {
				total += c
			}
			assert.LessOrEqual(t, total, n, "an order is counted at most once")
		}
	}()

	for i := 0; i < n; i++ {
		sym := fmt.Sprintf("SYM%dx", i)
		h.ProcessTick(sym, 11)
		id := fmt.Sprintf("ord-%d", i+1)
		assert.True(t, h.MarkExecuting(id))
		assert.True(t, h.MarkFilled(id))
	}
	close(done)
	wg.Wait()

	m := h.Metrics()
	assert.Equal(t, n, m.ByStatus[order.StatusFilled])
	assert.Zero(t, m.LiveOrders)
}

func TestCancelAllForAgent(t *testing.T) {
	h := newHarness(t)
	for _, sym := range []string{"AAPLx", "TSLAx", "NVDAx"} {
		_, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "agent-1", Symbol: sym, Quantity: 1, LimitPrice: 1})
		require.NoError(t, err)
	}
	other, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "agent-2", Symbol: "AAPLx", Quantity: 1, LimitPrice: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, h.CancelAllForAgent("agent-1"))
	assert.Equal(t, 0, h.CancelAllForAgent("agent-1"))
	assert.Empty(t, h.AgentOrders("agent-1"))
	assert.Equal(t, order.StatusActive, h.status(t, other.ID))
	assert.Len(t, h.SymbolOrders("AAPLx"), 1)
	assert.Empty(t, h.SymbolOrders("TSLAx"))
}

func TestHistoryIsBounded(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.HistoryCapacity = 2 })
	var ids []string
	for i := 0; i < 3; i++ {
		v, err := h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 1})
		require.NoError(t, err)
		require.True(t, h.Cancel(v.ID))
		ids = append(ids, v.ID)
	}

	hist := h.History(0)
	require.Len(t, hist, 2)
	assert.Equal(t, ids[2], hist[0].ID)
	assert.Equal(t, ids[1], hist[1].ID)
	_, ok := h.GetOrder(ids[0])
	assert.False(t, ok)
	assert.Len(t, h.History(1), 1)
}

func TestRestore(t *testing.T) {
	src := newHarness(t)
	v, err := src.PlaceTrailingStop(ctx, order.PlaceRequest{AgentID: "a", Symbol: "NVDAx", Quantity: 1, EntryPrice: 50, TrailPercent: 10})
	require.NoError(t, err)
	src.ProcessTick("NVDAx", 70)
	active, _ := src.GetOrder(v.ID)

	done := active
	done.ID = "ord-done"
	done.Status = order.StatusCancelled

	dst := newHarness(t)
	assert.Equal(t, 1, dst.Restore([]order.View{active, active, done}))

	got, ok := dst.GetOrder(v.ID)
	require.True(t, ok)
	assert.Equal(t, 70.0, got.HighWaterMark)
	_, ok = dst.GetOrder("ord-done")
	assert.False(t, ok)

	dst.ProcessTick("NVDAx", 62)
	assert.Equal(t, order.StatusTriggered, dst.status(t, v.ID))
}

func TestMetrics(t *testing.T) {
	h := newHarness(t)
	sell, err := h.PlaceLimitSell(ctx, order.PlaceRequest{AgentID: "agent-1", Symbol: "AAPLx", Quantity: 1, LimitPrice: 10})
	require.NoError(t, err)
	_, err = h.PlaceLimitBuy(ctx, order.PlaceRequest{AgentID: "agent-1", Symbol: "AAPLx", Quantity: 1, LimitPrice: 5})
	require.NoError(t, err)
	gone, err := h.PlaceStopLoss(ctx, order.PlaceRequest{AgentID: "agent-2", Symbol: "TSLAx", Quantity: 1, StopPrice: 9, EntryPrice: 10})
	require.NoError(t, err)

	require.True(t, h.Cancel(gone.ID))
	h.ProcessTick("AAPLx", 12)

	m := h.Metrics()
	assert.Equal(t, 1, m.ByStatus[order.StatusActive])
	assert.Equal(t, 1, m.ByStatus[order.StatusTriggered])
	assert.Equal(t, 1, m.ByStatus[order.StatusCancelled])
	assert.Equal(t, 1, m.ByType[order.TypeStopLoss])
	assert.Equal(t, 2, m.ByAgent["agent-1"])
	assert.Equal(t, 1, m.LiveOrders)
	assert.Equal(t, 1, m.ActiveSymbols)
	assert.Equal(t, 2, m.HistorySize)
	assert.Equal(t, order.DefaultHistoryCapacity, m.HistoryCapacity)
	assert.EqualValues(t, 1, m.TicksProcessed)
	require.NotNil(t, m.LastEvaluationAt)
	assert.True(t, t0.Equal(*m.LastEvaluationAt))
	assert.False(t, m.Subscribed)
	assert.Equal(t, order.StatusTriggered, h.status(t, sell.ID))
}

func TestPlaceRejectsInvalidRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.PlaceBracket(ctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, EntryPrice: 10, StopPrice: 12, TargetPrice: 11})
	assert.ErrorIs(t, err, order.ErrInvalidRequest)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = h.PlaceLimitBuy(cctx, order.PlaceRequest{AgentID: "a", Symbol: "AAPLx", Quantity: 1, LimitPrice: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.AllOrders())
}
