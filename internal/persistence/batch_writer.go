package persistence

import (
	"database/sql"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// WriteOp is one buffered statement.
type WriteOp struct {
	Query string
	Args  []any
}

// BatchWriter buffers writes and flushes them in one transaction when the
// buffer fills or the interval elapses.
type BatchWriter struct {
	db          *sql.DB
	mu          sync.Mutex
	buffer      []WriteOp
	maxSize     int
	flushIntval time.Duration
	done        chan struct{}
	flushNow    chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup

	totalWrites  atomic.Uint64
	totalBatches atomic.Uint64
	totalErrors  atomic.Uint64
	lastMu       sync.Mutex
	lastSize     int
	lastFlush    time.Time
}

// BatchWriterMetrics provides statistics about batch operations.
type BatchWriterMetrics struct {
	TotalWrites   uint64    `json:"total_writes"`
	TotalBatches  uint64    `json:"total_batches"`
	TotalErrors   uint64    `json:"total_errors"`
	Pending       int       `json:"pending"`
	LastBatchSize int       `json:"last_batch_size"`
	LastFlushTime time.Time `json:"last_flush_time"`
}

// NewBatchWriter creates a batch writer.
// maxSize: max operations before auto-flush
// interval: time-based flush interval
func NewBatchWriter(db *sql.DB, maxSize int, interval time.Duration) *BatchWriter {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	bw := &BatchWriter{
		db:          db,
		buffer:      make([]WriteOp, 0, maxSize),
		maxSize:     maxSize,
		flushIntval: interval,
		done:        make(chan struct{}),
		flushNow:    make(chan struct{}, 1),
	}

	bw.wg.Add(1)
	go bw.backgroundFlush()

	return bw
}

// Write adds a write operation to the batch. A full buffer wakes the
// background loop so callers never wait on the database.
func (bw *BatchWriter) Write(op WriteOp) {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, op)
	shouldFlush := len(bw.buffer) >= bw.maxSize
	bw.mu.Unlock()

	if shouldFlush {
		select {
		case bw.flushNow <- struct{}{}:
		default: // a wake-up is already pending
		}
	}
}

// WriteQuery is a convenience method for simple queries.
func (bw *BatchWriter) WriteQuery(query string, args ...any) {
	bw.Write(WriteOp{Query: query, Args: args})
}

// Flush immediately writes all buffered operations to the database.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	ops := bw.buffer
	bw.buffer = make([]WriteOp, 0, bw.maxSize)
	bw.mu.Unlock()

	return bw.executeBatch(ops)
}

func (bw *BatchWriter) executeBatch(ops []WriteOp) error {
	bw.totalWrites.Add(uint64(len(ops)))
	bw.totalBatches.Add(1)
	bw.lastMu.Lock()
	bw.lastSize = len(ops)
	bw.lastFlush = time.Now()
	bw.lastMu.Unlock()

	tx, err := bw.db.Begin()
	if err != nil {
		bw.totalErrors.Add(1)
		log.Printf("❌ BatchWriter: failed to begin transaction: %v", err)
		return err
	}

	for _, op := range ops {
		if _, err := tx.Exec(op.Query, op.Args...); err != nil {
			_ = tx.Rollback()
			bw.totalErrors.Add(1)
			log.Printf("❌ BatchWriter: query failed, rolling back %d ops: %v", len(ops), err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		bw.totalErrors.Add(1)
		log.Printf("❌ BatchWriter: commit failed: %v", err)
		return err
	}
	return nil
}

func (bw *BatchWriter) backgroundFlush() {
	defer bw.wg.Done()
	ticker := time.NewTicker(bw.flushIntval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := bw.Flush(); err != nil {
				log.Printf("⚠️ BatchWriter: background flush error: %v", err)
			}
		case <-bw.flushNow:
			if err := bw.Flush(); err != nil {
				log.Printf("⚠️ BatchWriter: size flush error: %v", err)
			}
		case <-bw.done:
			return
		}
	}
}

// Pending returns the number of pending operations.
func (bw *BatchWriter) Pending() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Metrics returns a snapshot of the writer's counters.
func (bw *BatchWriter) Metrics() BatchWriterMetrics {
	bw.lastMu.Lock()
	size, at := bw.lastSize, bw.lastFlush
	bw.lastMu.Unlock()
	return BatchWriterMetrics{
		TotalWrites:   bw.totalWrites.Load(),
		TotalBatches:  bw.totalBatches.Load(),
		TotalErrors:   bw.totalErrors.Load(),
		Pending:       bw.Pending(),
		LastBatchSize: size,
		LastFlushTime: at,
	}
}

// Close stops the background loop, waits for any flush it is running and
// writes what is left.
func (bw *BatchWriter) Close() error {
	var err error
	bw.closeOnce.Do(func() {
		close(bw.done)
		bw.wg.Wait()
		err = bw.Flush()
	})
	return err
}
