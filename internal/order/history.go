package order

import "sync"

// DefaultHistoryCapacity bounds the archive when no capacity is configured.
const DefaultHistoryCapacity = 1000

// History is a fixed-capacity FIFO archive of orders that left the live
// store. Appending to a full buffer evicts the oldest entry.
type History struct {
	mu    sync.RWMutex
	buf   []Order
	head  int // index of the oldest entry
	size  int
	index map[string]Order
}

// NewHistory creates an archive holding at most capacity orders.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		buf:   make([]Order, capacity),
		index: make(map[string]Order, capacity),
	}
}

// Append archives o and returns the evicted order, if any.
func (h *History) Append(o Order) (evicted Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.buf)
	if h.size == capacity {
		evicted = h.buf[h.head]
		delete(h.index, evicted.base().ID)
		h.buf[h.head] = o
		h.head = (h.head + 1) % capacity
	} else {
		h.buf[(h.head+h.size)%capacity] = o
		h.size++
	}
	h.index[o.base().ID] = o
	return evicted
}

// Get returns the archived order for id.
func (h *History) Get(id string) (Order, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	o, ok := h.index[id]
	if !ok {
		return nil, false
	}
	return Clone(o), true
}

// Update runs fn against the archived order under the archive lock.
func (h *History) Update(id string, fn func(Order) error) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.index[id]
	if !ok {
		return false, nil
	}
	return true, fn(o)
}

// Recent returns up to limit archived orders, newest first. limit <= 0
// returns everything.
func (h *History) Recent(limit int) []Order {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Order, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.head + h.size - 1 - i) % len(h.buf)
		out = append(out, Clone(h.buf[idx]))
	}
	return out
}

// Each calls fn for every archived order, oldest first.
func (h *History) Each(fn func(Order)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := 0; i < h.size; i++ {
		fn(h.buf[(h.head+i)%len(h.buf)])
	}
}

// Len returns the number of archived orders.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the configured capacity.
func (h *History) Cap() int { return len(h.buf) }
