package session

import (
	"strings"

	"github.com/niftybulk/papertrade/internal/domain"
)

// QuoteSource provides live quotes for the wishlist
type QuoteSource interface {
	Get(symbol string) (domain.Instrument, bool)
}

// Wishlist returns the stored wishlist snapshots
func (s *Store) Wishlist() []domain.WishlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.WishlistItem{}, s.state.wishlist...)
}

// IsInWishlist reports whether symbol is watched
func (s *Store) IsInWishlist(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOfWishlist(s.state.wishlist, symbol) >= 0
}

// AddToWishlist adds item. Returns false when the symbol is already present.
func (s *Store) AddToWishlist(item domain.WishlistItem) bool {
	item.Symbol = strings.ToUpper(strings.TrimSpace(item.Symbol))
	if item.Symbol == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOfWishlist(s.state.wishlist, item.Symbol) >= 0 {
		return false
	}
	s.state.wishlist = append(append([]domain.WishlistItem(nil), s.state.wishlist...), item)
	s.persist(KeyWishlist)
	return true
}

// RemoveFromWishlist drops symbol. Returns false when it was not present.
func (s *Store) RemoveFromWishlist(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfWishlist(s.state.wishlist, symbol)
	if i < 0 {
		return false
	}
	next := make([]domain.WishlistItem, 0, len(s.state.wishlist)-1)
	next = append(next, s.state.wishlist[:i]...)
	next = append(next, s.state.wishlist[i+1:]...)
	s.state.wishlist = next
	s.persist(KeyWishlist)
	return true
}

// LiveWishlist returns the wishlist with live quotes replacing the stored
// snapshots. Symbols the quote source does not know keep their snapshot.
func (s *Store) LiveWishlist(quotes QuoteSource) []domain.WishlistItem {
	items := s.Wishlist()
	for i, item := range items {
		inst, ok := quotes.Get(item.Symbol)
		if !ok {
			continue
		}
		live := domain.WishlistItemFrom(inst)
		if live.FullName == "" {
			live.FullName = item.FullName
		}
		items[i] = live
	}
	return items
}

func indexOfWishlist(items []domain.WishlistItem, symbol string) int {
	for i, item := range items {
		if strings.EqualFold(item.Symbol, symbol) {
			return i
		}
	}
	return -1
}
