// Package session holds the signed-in user, wallet, positions, transaction log
// and wishlist, and persists them to the local key-value store.
package session

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// Storage keys
const (
	KeyToken        = "nifty-bulk-token"
	KeyUser         = "nifty-bulk-user"
	KeyTransactions = "nifty-bulk-transactions"
	KeyPortfolio    = "nifty-bulk-portfolio"
	KeyWishlist     = "nifty-bulk-wishlist"
)

// KV is the durable key-value storage the store persists to
type KV interface {
	Get(key string) (*string, error)
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

// NameSource resolves display names for symbols
type NameSource interface {
	Name(symbol string) string
}

// Snapshot is a consistent copy of the whole session
type Snapshot struct {
	Authenticated bool                  `json:"authenticated"`
	User          *domain.User          `json:"user"`
	Role          domain.Role           `json:"role"`
	Transactions  []domain.Transaction  `json:"transactions"`
	Portfolio     []domain.Position     `json:"portfolio"`
	Wishlist      []domain.WishlistItem `json:"wishlist"`
}

type state struct {
	token        string
	user         *domain.User
	transactions []domain.Transaction
	portfolio    []domain.Position
	wishlist     []domain.WishlistItem
}

func (s state) clone() state {
	c := state{
		token:        s.token,
		transactions: append([]domain.Transaction(nil), s.transactions...),
		portfolio:    append([]domain.Position(nil), s.portfolio...),
		wishlist:     append([]domain.WishlistItem(nil), s.wishlist...),
	}
	if s.user != nil {
		u := *s.user
		c.user = &u
	}
	return c
}

// Store is the single writer for session and ledger state.
// All reads return copies.
type Store struct {
	mu    sync.RWMutex
	state state

	kv    KV
	names NameSource
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// NewStore creates an empty store. Call Load to rehydrate persisted state.
func NewStore(kv KV, names NameSource, log zerolog.Logger) *Store {
	return &Store{
		kv:    kv,
		names: names,
		now:   time.Now,
		newID: newTransactionID,
		log:   log.With().Str("service", "session").Logger(),
	}
}

// newTransactionID returns a time-ordered UUIDv7
func newTransactionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load rehydrates state from storage. Missing or malformed values are
// treated as empty; a malformed user also drops the token.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st state

	token, _ := s.read(KeyToken)
	if token != "" {
		var t string
		if err := json.Unmarshal([]byte(token), &t); err == nil {
			st.token = t
		} else {
			// Older writers stored the raw token
			st.token = token
		}
	}

	if raw, ok := s.read(KeyUser); ok {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
			s.log.Warn().Err(err).Msg("Discarding malformed stored user")
			st.token = ""
			if err := s.kv.Delete(KeyToken, KeyUser); err != nil {
				s.log.Warn().Err(err).Msg("Failed to clear malformed session")
			}
		} else if st.token != "" {
			u.Role = domain.ParseRole(string(u.Role))
			st.user = &u
		}
	}

	st.transactions = decodeStored[[]domain.Transaction](s, KeyTransactions)
	st.portfolio = decodeStored[[]domain.Position](s, KeyPortfolio)
	st.wishlist = decodeStored[[]domain.WishlistItem](s, KeyWishlist)

	// Never resurrect empty or unpriced holdings
	kept := st.portfolio[:0]
	for _, p := range st.portfolio {
		if p.Quantity > 0 && p.AvgPrice > 0 {
			kept = append(kept, p)
		}
	}
	st.portfolio = kept

	s.state = st
	s.log.Info().
		Bool("authenticated", st.user != nil).
		Int("positions", len(st.portfolio)).
		Int("transactions", len(st.transactions)).
		Int("wishlist", len(st.wishlist)).
		Msg("Session loaded")
}

func (s *Store) read(key string) (string, bool) {
	value, err := s.kv.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read stored value")
		return "", false
	}
	if value == nil || *value == "" {
		return "", false
	}
	return *value, true
}

// decodeStored returns the value stored under key, or the zero value when it
// is missing or does not decode cleanly.
func decodeStored[T any](s *Store, key string) T {
	var zero T
	raw, ok := s.read(key)
	if !ok {
		return zero
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed stored value")
		return zero
	}
	return v
}

// persist writes the given keys from the current state. Failures are logged only.
// Caller holds s.mu.
func (s *Store) persist(keys ...string) {
	values := make(map[string]string, len(keys))
	var cleared []string

	for _, key := range keys {
		var v interface{}
		switch key {
		case KeyToken:
			if s.state.token == "" {
				cleared = append(cleared, key)
				continue
			}
			v = s.state.token
		case KeyUser:
			if s.state.user == nil {
				cleared = append(cleared, key)
				continue
			}
			v = s.state.user
		case KeyTransactions:
			v = nonNil(s.state.transactions)
		case KeyPortfolio:
			v = nonNil(s.state.portfolio)
		case KeyWishlist:
			v = nonNil(s.state.wishlist)
		}

		data, err := json.Marshal(v)
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("Failed to encode session value")
			continue
		}
		values[key] = string(data)
	}

	if err := s.kv.SetMany(values); err != nil {
		s.log.Error().Err(err).Strs("keys", keys).Msg("Failed to persist session")
	}
	if len(cleared) > 0 {
		if err := s.kv.Delete(cleared...); err != nil {
			s.log.Error().Err(err).Strs("keys", cleared).Msg("Failed to clear session keys")
		}
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// User returns the signed-in user, or nil for a guest
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.user == nil {
		return nil
	}
	u := *s.state.user
	return &u
}

// Token returns the bearer token of the current session
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.token
}

// Role returns the current role; guest when signed out
func (s *Store) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.user == nil {
		return domain.RoleGuest
	}
	return s.state.user.Role
}

// IsAuthenticated reports whether a user is signed in
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.user != nil
}

// Transactions returns the log, most recent first
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction{}, s.state.transactions...)
}

// Portfolio returns all open positions
func (s *Store) Portfolio() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Position{}, s.state.portfolio...)
}

// Position returns the holding in symbol
func (s *Store) Position(symbol string) (domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfPosition(s.state.portfolio, symbol); i >= 0 {
		return s.state.portfolio[i], true
	}
	return domain.Position{}, false
}

// Snapshot returns a consistent copy of the whole session
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state.clone()
	snap := Snapshot{
		Authenticated: st.user != nil,
		User:          st.user,
		Role:          domain.RoleGuest,
		Transactions:  nonNil(st.transactions),
		Portfolio:     nonNil(st.portfolio),
		Wishlist:      nonNil(st.wishlist),
	}
	if st.user != nil {
		snap.Role = st.user.Role
	}
	return snap
}

// Login starts a session
func (s *Store) Login(token string, user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Role = domain.ParseRole(string(user.Role))
	if user.WalletBalance < 0 {
		user.WalletBalance = 0
	}
	s.state.token = token
	s.state.user = &user
	s.persist(KeyToken, KeyUser)

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Signed in")
}

// Logout ends the session. Positions, the log and the wishlist are kept.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.token = ""
	s.state.user = nil
	s.persist(KeyToken, KeyUser)

	s.log.Info().Msg("Signed out")
}

// UpdateUser applies a profile patch to the current user
func (s *Store) UpdateUser(patch domain.UserPatch) (domain.User, error) {
	var updated domain.User
	err := s.Mutate(func(tx *Tx) error {
		u, err := tx.User()
		if err != nil {
			return err
		}
		updated = patch.Apply(u)
		tx.state.user = &updated
		tx.touch(KeyUser)
		return nil
	})
	return updated, err
}

func indexOfPosition(positions []domain.Position, symbol string) int {
	for i, p := range positions {
		if strings.EqualFold(p.Symbol, symbol) {
			return i
		}
	}
	return -1
}

func (s *Store) nameOf(symbol string) string {
	if s.names == nil {
		return symbol
	}
	if name := s.names.Name(symbol); name != "" {
		return name
	}
	return symbol
}
