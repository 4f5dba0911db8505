package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/pkg/i18n"
)

// AsyncExecutor runs triggered orders on a bounded worker pool.
type AsyncExecutor struct {
	executor   Executor
	recorder   Recorder
	bus        Publisher
	resultCh   chan events.ExecutionResult
	workerPool chan struct{}
	wg         sync.WaitGroup
	closed     bool
	mu         sync.Mutex

	filled  atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64
}

// NewAsyncExecutor creates an async executor with the given worker count.
// recorder and bus may be nil.
func NewAsyncExecutor(exec Executor, recorder Recorder, bus Publisher, workers int) *AsyncExecutor {
	if workers <= 0 {
		workers = 4
	}
	return &AsyncExecutor{
		executor:   exec,
		recorder:   recorder,
		bus:        bus,
		resultCh:   make(chan events.ExecutionResult, 100),
		workerPool: make(chan struct{}, workers),
	}
}

// Run feeds order_triggered payloads from triggers into the pool until ctx
// is done or the channel closes.
func (a *AsyncExecutor) Run(ctx context.Context, triggers <-chan any) {
	log.Printf("🧾 "+i18n.M().ExecutorStarted, cap(a.workerPool))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-triggers:
			if !ok {
				return
			}
			switch ev := msg.(type) {
			case events.TriggeredEvent:
				a.ExecuteAsync(ctx, ev)
			case *events.TriggeredEvent:
				a.ExecuteAsync(ctx, *ev)
			}
		}
	}
}

// ExecuteAsync submits a triggered order. It blocks while every worker is
// busy and gives up when ctx ends first.
func (a *AsyncExecutor) ExecuteAsync(ctx context.Context, ev events.TriggeredEvent) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		log.Printf("❌ AsyncExecutor closed, order rejected: %s", ev.OrderID)
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	select {
	case a.workerPool <- struct{}{}:
	case <-ctx.Done():
		a.wg.Done()
		a.skipped.Add(1)
		log.Printf("❌ AsyncExecutor stopping, order not submitted: %s", ev.OrderID)
		return
	}
	go func() {
		defer a.wg.Done()
		defer func() { <-a.workerPool }()
		a.execute(ctx, ev)
	}()
}

func (a *AsyncExecutor) execute(ctx context.Context, ev events.TriggeredEvent) {
	if a.recorder != nil && !a.recorder.MarkExecuting(ev.OrderID) {
		// cancelled, already handled or evicted
		a.skipped.Add(1)
		return
	}

	start := time.Now()
	fill, err := a.safeExecute(ctx, ev)
	latency := time.Since(start)

	result := events.ExecutionResult{
		OrderID:    ev.OrderID,
		AgentID:    ev.AgentID,
		Symbol:     ev.Symbol,
		Action:     string(ev.Action),
		Success:    err == nil,
		DurationMs: latency.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		a.failed.Add(1)
		log.Printf("❌ "+i18n.M().ExecutionFailed, ev.OrderID, err, latency)
		if a.recorder != nil {
			a.recorder.MarkFailed(ev.OrderID, err.Error())
		}
	} else {
		result.FillPrice = fill.Price
		result.FilledQty = fill.Quantity
		result.Fee = fill.Fee
		a.filled.Add(1)
		log.Printf("✅ "+i18n.M().ExecutionFilled, ev.OrderID, fill.Price, latency)
		if a.recorder != nil {
			a.recorder.MarkFilled(ev.OrderID)
		}
	}

	if a.bus != nil {
		a.bus.Publish(events.EventExecutionResult, result)
	}
	select {
	case a.resultCh <- result:
	default:
		log.Printf("⚠️ Result channel full, dropping result for %s", ev.OrderID)
	}
}

func (a *AsyncExecutor) safeExecute(ctx context.Context, ev events.TriggeredEvent) (fill Fill, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 "+i18n.M().ExecutorPanic, ev.OrderID, r)
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return a.executor.Execute(ctx, ev)
}

// Results returns the result channel for monitoring.
func (a *AsyncExecutor) Results() <-chan events.ExecutionResult {
	return a.resultCh
}

// Pending returns the number of busy workers.
func (a *AsyncExecutor) Pending() int {
	return len(a.workerPool)
}

// Stats returns filled, failed and skipped counts.
func (a *AsyncExecutor) Stats() (filled, failed, skipped uint64) {
	return a.filled.Load(), a.failed.Load(), a.skipped.Load()
}

// WaitAll waits for all pending executions to complete.
func (a *AsyncExecutor) WaitAll() {
	a.wg.Wait()
}

// Close rejects new work, waits for in-flight executions and closes the
// result channel.
func (a *AsyncExecutor) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.wg.Wait()
	close(a.resultCh)
}
