package audit

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

// ErrQueueFull is returned when the async queue cannot take another entry.
var ErrQueueFull = errors.New("audit queue full")

// Async hands entries to a wrapped sink on a background goroutine. LogEvent
// never blocks; entries arriving while the queue is full are dropped.
type Async struct {
	next    Sink
	queue   chan Entry
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	mu      sync.RWMutex
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsync starts the drain goroutine for next.
func NewAsync(next Sink, size int) *Async {
	if size <= 0 {
		size = 1024
	}
	a := &Async{next: next, queue: make(chan Entry, size)}
	a.wg.Add(1)
	go a.drain()
	return a
}

func (a *Async) LogEvent(e Entry) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed.Load() {
		a.dropped.Add(1)
		return ErrQueueFull
	}
	select {
	case a.queue <- e:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

func (a *Async) drain() {
	defer a.wg.Done()
	for e := range a.queue {
		if err := a.next.LogEvent(e); err != nil {
			a.failed.Add(1)
			log.Printf("⚠️  audit sink error (%s): %v", e.Kind, err)
		}
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (a *Async) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed.Store(true)
		close(a.queue)
		a.mu.Unlock()
		a.wg.Wait()
	})
}

// Stats returns dropped and failed entry counts.
func (a *Async) Stats() (dropped, failed uint64) {
	return a.dropped.Load(), a.failed.Load()
}
