package order

import (
	"sort"
	"sync"
)

// Store is the authoritative map of live orders plus a symbol index of the
// active ones. Buckets are dropped as soon as they empty so that HasSymbol is
// a reliable fast-path filter.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]Order
	bySymbol map[string]map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		orders:   make(map[string]Order),
		bySymbol: make(map[string]map[string]struct{}),
	}
}

// Put inserts or replaces o and re-syncs its index entry with its status.
func (s *Store) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := o.base()
	if prev, ok := s.orders[b.ID]; ok {
		s.unindex(prev.base())
	}
	s.orders[b.ID] = o
	if b.Status == StatusActive {
		bucket, ok := s.bySymbol[b.Symbol]
		if !ok {
			bucket = make(map[string]struct{})
			s.bySymbol[b.Symbol] = bucket
		}
		bucket[b.ID] = struct{}{}
	}
}

// Get returns the live order for id.
func (s *Store) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Remove deletes id from the map and from its symbol bucket.
func (s *Store) Remove(id string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	s.unindex(o.base())
	delete(s.orders, id)
	return o, true
}

// Unindex drops id from its symbol bucket while keeping it in the map.
func (s *Store) Unindex(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		s.unindex(o.base())
	}
}

func (s *Store) unindex(b *Base) {
	bucket, ok := s.bySymbol[b.Symbol]
	if !ok {
		return
	}
	delete(bucket, b.ID)
	if len(bucket) == 0 {
		delete(s.bySymbol, b.Symbol)
	}
}

// HasSymbol reports whether any active order is indexed under symbol.
func (s *Store) HasSymbol(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySymbol[symbol]
	return ok
}

// BySymbol returns a copy of the active order ids for symbol.
func (s *Store) BySymbol(symbol string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.bySymbol[symbol]
	if len(bucket) == 0 {
		return nil
	}
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return ids
}

// ByAgent returns the live orders owned by agentID, oldest first.
func (s *Store) ByAgent(agentID string) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if o.base().AgentID == agentID {
			out = append(out, o)
		}
	}
	sortByCreated(out)
	return out
}

// All returns every live order, oldest first.
func (s *Store) All() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sortByCreated(out)
	return out
}

// Symbols returns the symbols that currently have an index bucket.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bySymbol))
	for sym := range s.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of live orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func sortByCreated(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].base(), orders[j].base()
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
