package quotes

import (
	"strings"
	"sync"

	"github.com/niftybulk/papertrade/internal/domain"
)

// Store is the in-memory quote table. Reads return copies; only the
// Simulator writes.
type Store struct {
	mu    sync.RWMutex
	items []domain.Instrument
	index map[string]int
}

// NewStore creates a store seeded with instruments, keeping their order
func NewStore(instruments []domain.Instrument) *Store {
	s := &Store{
		items: make([]domain.Instrument, len(instruments)),
		index: make(map[string]int, len(instruments)),
	}
	copy(s.items, instruments)
	for i, inst := range s.items {
		s.index[inst.Symbol] = i
	}
	return s
}

// Snapshot returns a copy of every instrument in catalog order
func (s *Store) Snapshot() []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Instrument, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the instrument for symbol (case-insensitive)
func (s *Store) Get(symbol string) (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return domain.Instrument{}, false
	}
	return s.items[i], true
}

// Price returns the live price for symbol
func (s *Store) Price(symbol string) (float64, bool) {
	inst, ok := s.Get(symbol)
	return inst.Price, ok
}

// Prices returns symbol -> live price
func (s *Store) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.items))
	for _, inst := range s.items {
		prices[inst.Symbol] = inst.Price
	}
	return prices
}

// Name returns the display name for symbol, or the symbol itself when unknown
func (s *Store) Name(symbol string) string {
	if inst, ok := s.Get(symbol); ok && inst.Name != "" {
		return inst.Name
	}
	return symbol
}

// Len returns the number of instruments
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// apply rewrites every instrument under the write lock
func (s *Store) apply(fn func(inst domain.Instrument) domain.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i] = fn(s.items[i])
	}
}
