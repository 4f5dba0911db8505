package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/pkg/i18n"
)

// DefaultTickBuffer is the subscription buffer used when none is configured.
const DefaultTickBuffer = 1024

// Engine owns the live order store, the archive and the evaluation loop.
type Engine struct {
	cfg     Config
	store   *order.Store
	history *order.History
	eval    func(order.Order, float64, time.Time) (*order.Decision, error)

	// One lock per symbol serialises evaluation against placement,
	// cancellation and expiry of that symbol's orders.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	runMu       sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}

	ticksProcessed  atomic.Uint64
	ticksDropped    atomic.Uint64
	triggers        atomic.Uint64
	expired         atomic.Uint64
	cancelled       atomic.Uint64
	evalFaults      atomic.Uint64
	emitFailures    atomic.Uint64
	undelivered     atomic.Uint64
	auditFailures   atomic.Uint64
	persistFailures atomic.Uint64
	lastEvalNano    atomic.Int64
}

// New creates an engine. Missing collaborators are replaced with no-ops.
func New(cfg Config) *Engine {
	if cfg.Audit == nil {
		cfg.Audit = audit.Nop
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.TickBuffer <= 0 {
		cfg.TickBuffer = DefaultTickBuffer
	}
	return &Engine{
		cfg:     cfg,
		store:   order.NewStore(),
		history: order.NewHistory(cfg.HistoryCapacity),
		eval:    order.Evaluate,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	mu, ok := e.locks[symbol]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[symbol] = mu
	}
	return mu
}

// Start subscribes to the price feed and evaluates ticks on a dedicated
// goroutine until Stop is called or ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.done != nil {
		select {
		case <-e.done:
			// loop ended on its own (ctx or feed closed); release it
			e.release()
		default:
			return ErrAlreadyRunning
		}
	}
	if e.cfg.Feed == nil {
		return ErrNoPriceFeed
	}

	ticks, unsubscribe := e.cfg.Feed.Subscribe(e.cfg.TickBuffer)
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.unsubscribe = unsubscribe
	e.done = make(chan struct{})
	e.running.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		defer e.running.Store(false)
		for {
			select {
			case <-runCtx.Done():
				return
			case t, ok := <-ticks:
				if !ok {
					return
				}
				e.ProcessTick(t.Symbol, t.Price)
			}
		}
	}(e.done)

	log.Println("▶️ " + i18n.M().EngineStarted)
	return nil
}

// Stop unsubscribes and waits for the loop to exit. Safe to call repeatedly.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done == nil {
		return
	}
	e.cancel()
	<-e.done
	e.release()
	log.Println("⏹️ " + i18n.M().EngineStopped)
}

func (e *Engine) release() {
	e.cancel()
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.cancel, e.unsubscribe, e.done = nil, nil, nil
	e.running.Store(false)
}

// Running reports whether the loop is subscribed to the feed.
func (e *Engine) Running() bool { return e.running.Load() }

// SystemStatus returns the configured metadata stamped with the server time.
func (e *Engine) SystemStatus(ctx context.Context) *SystemStatus {
	status := e.cfg.Meta
	status.Running = e.Running()
	status.ServerTime = time.Now().UTC()
	return &status
}
