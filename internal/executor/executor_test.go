package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/order"
)

func triggered(id string, action order.Action, price, qty float64) events.TriggeredEvent {
	return events.TriggeredEvent{
		Decision: order.Decision{
			OrderID: id, AgentID: "agent-1", Symbol: "AAPLx",
			Action: action, TriggerPrice: price, Quantity: qty,
		},
	}
}

func TestPaperSellFill(t *testing.T) {
	p := NewPaperExecutor(PaperConfig{FeeRate: 0.001, InitialBalance: 1000})
	fill, err := p.Execute(context.Background(), triggered("o1", order.ActionSell, 100, 2))
	require.NoError(t, err)

	assert.Equal(t, 100.0, fill.Price)
	assert.Equal(t, 2.0, fill.Quantity)
	assert.InDelta(t, 0.2, fill.Fee, 1e-9)
	assert.InDelta(t, 1199.8, p.Balance("agent-1"), 1e-9)
}

func TestPaperBuyConvertsUSDC(t *testing.T) {
	p := NewPaperExecutor(PaperConfig{FeeRate: 0.001, InitialBalance: 1000})
	fill, err := p.Execute(context.Background(), triggered("o1", order.ActionBuy, 50, 500))
	require.NoError(t, err)

	assert.Equal(t, 10.0, fill.Quantity)
	assert.InDelta(t, 0.5, fill.Fee, 1e-9)
	assert.InDelta(t, 499.5, p.Balance("agent-1"), 1e-9)

	pos := p.Positions("agent-1")
	require.Len(t, pos, 1)
	assert.Equal(t, 10.0, pos[0].Quantity)
	assert.Equal(t, 50.0, pos[0].AvgPrice)

	_, err = p.Execute(context.Background(), triggered("o2", order.ActionBuy, 50, 600))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestPaperSlippageIsAdverseAndBounded(t *testing.T) {
	p := NewPaperExecutor(PaperConfig{SlippageBps: 50, Seed: 7})
	for i := 0; i < 50; i++ {
		sell, err := p.Execute(context.Background(), triggered("s", order.ActionSell, 100, 1))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sell.Price, 99.5)
		assert.LessOrEqual(t, sell.Price, 100.0)

		buy, err := p.Execute(context.Background(), triggered("b", order.ActionBuy, 100, 100))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, buy.Price, 100.0)
		assert.LessOrEqual(t, buy.Price, 100.5)
	}
}

func TestPaperLatencyHonoursContext(t *testing.T) {
	p := NewPaperExecutor(PaperConfig{LatencyMinMs: 5000, LatencyMaxMs: 5000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Execute(ctx, triggered("o1", order.ActionSell, 10, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

type recorder struct {
	mu        sync.Mutex
	calls     []string
	executing bool
	reason    string
}

func (r *recorder) MarkExecuting(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "executing")
	return r.executing
}

func (r *recorder) MarkFilled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "filled")
	return true
}

func (r *recorder) MarkFailed(id, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "failed")
	r.reason = reason
	return true
}

type execFunc func(context.Context, events.TriggeredEvent) (Fill, error)

func (f execFunc) Execute(ctx context.Context, ev events.TriggeredEvent) (Fill, error) {
	return f(ctx, ev)
}

func TestAsyncExecutorOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		exec      execFunc
		executing bool
		calls     []string
		success   bool
	}{
		{
			name:      "filled",
			exec:      func(context.Context, events.TriggeredEvent) (Fill, error) { return Fill{Price: 9.9, Quantity: 1}, nil },
			executing: true,
			calls:     []string{"executing", "filled"},
			success:   true,
		},
		{
			name:      "failed",
			exec:      func(context.Context, events.TriggeredEvent) (Fill, error) { return Fill{}, errors.New("venue rejected") },
			executing: true,
			calls:     []string{"executing", "failed"},
		},
		{
			name:      "panic",
			exec:      func(context.Context, events.TriggeredEvent) (Fill, error) { panic("nil gateway") },
			executing: true,
			calls:     []string{"executing", "failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{executing: tt.executing}
			bus := events.NewBus()
			results, unsub := bus.Subscribe(events.EventExecutionResult, 4)
			defer unsub()

			a := NewAsyncExecutor(tt.exec, rec, bus, 2)
			a.ExecuteAsync(context.Background(), triggered("o1", order.ActionSell, 10, 1))
			a.Close()

			assert.Equal(t, tt.calls, rec.calls)
			res := (<-results).(events.ExecutionResult)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, "o1", res.OrderID)
			if !tt.success {
				assert.NotEmpty(t, res.Error)
				assert.Equal(t, res.Error, rec.reason)
			}

			got, ok := <-a.Results()
			require.True(t, ok)
			assert.Equal(t, res, got)
		})
	}
}

func TestAsyncExecutorSkipsUnclaimedOrders(t *testing.T) {
	rec := &recorder{executing: false}
	called := false
	a := NewAsyncExecutor(execFunc(func(context.Context, events.TriggeredEvent) (Fill, error) {
		called = true
		return Fill{}, nil
	}), rec, nil, 1)

	a.ExecuteAsync(context.Background(), triggered("o1", order.ActionSell, 10, 1))
	a.Close()

	assert.False(t, called)
	_, _, skipped := a.Stats()
	assert.EqualValues(t, 1, skipped)

	a.ExecuteAsync(context.Background(), triggered("o2", order.ActionSell, 10, 1))
	assert.Equal(t, []string{"executing"}, rec.calls)
}

func TestAsyncExecutorSubmitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	a := NewAsyncExecutor(execFunc(func(context.Context, events.TriggeredEvent) (Fill, error) {
		<-release
		return Fill{Price: 10, Quantity: 1}, nil
	}), nil, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	a.ExecuteAsync(ctx, triggered("o1", order.ActionSell, 10, 1))

	triggers := make(chan any, 1)
	triggers <- triggered("o2", order.ActionSell, 10, 1)
	stopped := make(chan struct{})
	go func() {
		a.Run(ctx, triggers)
		close(stopped)
	}()

	// o2 is waiting on the only worker
	require.Eventually(t, func() bool { return len(triggers) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel with a saturated pool")
	}

	close(release)
	a.Close()
	filled, _, skipped := a.Stats()
	assert.EqualValues(t, 1, filled)
	assert.EqualValues(t, 1, skipped)
}

func TestTriggeredOrderIsFilledEndToEnd(t *testing.T) {
	bus := events.NewBus()
	eng := engine.New(engine.Config{Bus: bus})
	exec := NewAsyncExecutor(NewPaperExecutor(PaperConfig{FeeRate: 0.001}), eng, bus, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	triggers, unsub := bus.Subscribe(events.EventOrderTriggered, 8)
	defer unsub()
	go exec.Run(ctx, triggers)

	v, err := eng.PlaceStopLoss(ctx, order.PlaceRequest{AgentID: "agent-1", Symbol: "TSLAx", Quantity: 3, StopPrice: 90, EntryPrice: 100})
	require.NoError(t, err)
	eng.ProcessTick("TSLAx", 88)

	require.Eventually(t, func() bool {
		got, _ := eng.GetOrder(v.ID)
		return got.Status == order.StatusFilled
	}, 2*time.Second, 5*time.Millisecond)

	filled, failed, _ := exec.Stats()
	assert.EqualValues(t, 1, filled)
	assert.Zero(t, failed)
}
