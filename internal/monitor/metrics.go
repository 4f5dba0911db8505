package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/order"
)

// SystemMetrics tracks evaluation and execution performance. It satisfies
// the engine's Observer and mirrors every sample into Prometheus.
type SystemMetrics struct {
	// Latency histograms
	TickLatency      *LatencyHistogram
	ExecutionLatency *LatencyHistogram

	// Counters
	ticksEvaluated  uint64
	ordersTriggered uint64
	executionsOK    uint64
	executionsFail  uint64

	startedAt time.Time
}

// LatencyHistogram keeps the most recent samples in a ring and computes
// percentiles lazily.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	next        int
	full        bool
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		TickLatency:      NewLatencyHistogram(1000),
		ExecutionLatency: NewLatencyHistogram(1000),
		startedAt:        time.Now(),
	}
}

// NewLatencyHistogram creates a histogram over the last size samples.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{samples: make([]float64, size), dirty: true}
}

// Record adds a latency sample in milliseconds, overwriting the oldest
// once the window is full.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[h.next] = latencyMs
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99 over the window.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return h.cachedStats
	}
	n := h.next
	if h.full {
		n = len(h.samples)
	}
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples[:n])
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false
	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// TickEvaluated records one tick scan.
func (m *SystemMetrics) TickEvaluated(symbol string, orders int, took time.Duration) {
	atomic.AddUint64(&m.ticksEvaluated, 1)
	m.TickLatency.RecordDuration(took)
	TicksTotal.WithLabelValues(symbol).Inc()
	TickEvaluationDuration.Observe(took.Seconds())
}

// OrderTriggered records one trigger.
func (m *SystemMetrics) OrderTriggered(t order.Type) {
	atomic.AddUint64(&m.ordersTriggered, 1)
	OrdersTriggeredTotal.WithLabelValues(string(t)).Inc()
}

// ExecutionFinished records the outcome of a downstream execution.
func (m *SystemMetrics) ExecutionFinished(r events.ExecutionResult) {
	m.ExecutionLatency.RecordDuration(time.Duration(r.DurationMs) * time.Millisecond)
	if r.Success {
		atomic.AddUint64(&m.executionsOK, 1)
		ExecutionsTotal.WithLabelValues("filled").Inc()
		return
	}
	atomic.AddUint64(&m.executionsFail, 1)
	ExecutionsTotal.WithLabelValues("failed").Inc()
}

// MetricsSnapshot is a point-in-time copy of SystemMetrics.
type MetricsSnapshot struct {
	TickLatency      LatencyStats `json:"tick_latency"`
	ExecutionLatency LatencyStats `json:"execution_latency"`
	TicksEvaluated   uint64       `json:"ticks_evaluated"`
	OrdersTriggered  uint64       `json:"orders_triggered"`
	ExecutionsFilled uint64       `json:"executions_filled"`
	ExecutionsFailed uint64       `json:"executions_failed"`
	GoroutineCount   int          `json:"goroutine_count"`
	HeapAlloc        uint64       `json:"heap_alloc_bytes"`
	HeapSys          uint64       `json:"heap_sys_bytes"`
	Uptime           string       `json:"uptime"`
	Timestamp        time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		TickLatency:      m.TickLatency.Stats(),
		ExecutionLatency: m.ExecutionLatency.Stats(),
		TicksEvaluated:   atomic.LoadUint64(&m.ticksEvaluated),
		OrdersTriggered:  atomic.LoadUint64(&m.ordersTriggered),
		ExecutionsFilled: atomic.LoadUint64(&m.executionsOK),
		ExecutionsFailed: atomic.LoadUint64(&m.executionsFail),
		GoroutineCount:   runtime.NumGoroutine(),
		HeapAlloc:        memStats.HeapAlloc,
		HeapSys:          memStats.HeapSys,
		Uptime:           time.Since(m.startedAt).Round(time.Second).String(),
		Timestamp:        time.Now(),
	}
}
