package session

import (
	"fmt"
	"strings"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Tx is a working copy of the session handed to Mutate.
// Changes become visible only when the mutation returns nil.
type Tx struct {
	store *Store
	state state
	dirty map[string]bool
}

func (tx *Tx) touch(keys ...string) {
	for _, k := range keys {
		tx.dirty[k] = true
	}
}

// User returns the signed-in user or ErrNoSession
func (tx *Tx) User() (domain.User, error) {
	if tx.state.user == nil {
		return domain.User{}, domain.ErrNoSession
	}
	return *tx.state.user, nil
}

// SetBalance replaces the wallet balance
func (tx *Tx) SetBalance(balance float64) error {
	if tx.state.user == nil {
		return domain.ErrNoSession
	}
	if balance < 0 {
		return fmt.Errorf("balance %.2f: %w", balance, domain.ErrInvalidAmount)
	}
	tx.state.user.WalletBalance = balance
	tx.touch(KeyUser)
	return nil
}

// Position returns the holding in symbol
func (tx *Tx) Position(symbol string) (domain.Position, bool) {
	if i := indexOfPosition(tx.state.portfolio, symbol); i >= 0 {
		return tx.state.portfolio[i], true
	}
	return domain.Position{}, false
}

// PutPosition inserts or replaces a holding. A zero quantity removes it.
func (tx *Tx) PutPosition(p domain.Position) {
	if p.Quantity <= 0 {
		tx.RemovePosition(p.Symbol)
		return
	}
	if i := indexOfPosition(tx.state.portfolio, p.Symbol); i >= 0 {
		tx.state.portfolio[i] = p
	} else {
		tx.state.portfolio = append(tx.state.portfolio, p)
	}
	tx.touch(KeyPortfolio)
}

// RemovePosition drops the holding in symbol
func (tx *Tx) RemovePosition(symbol string) {
	i := indexOfPosition(tx.state.portfolio, symbol)
	if i < 0 {
		return
	}
	tx.state.portfolio = append(tx.state.portfolio[:i], tx.state.portfolio[i+1:]...)
	tx.touch(KeyPortfolio)
}

// Record prepends t to the log, assigning its id and timestamp
func (tx *Tx) Record(t domain.Transaction) domain.Transaction {
	t.ID = tx.store.newID()
	t.Timestamp = tx.store.now()
	tx.state.transactions = append([]domain.Transaction{t}, tx.state.transactions...)
	tx.touch(KeyTransactions)
	return t
}

// Mutate runs fn against a copy of the state under the write lock and commits
// it when fn returns nil. Touched keys are persisted before Mutate returns.
func (s *Store) Mutate(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s, state: s.state.clone(), dirty: make(map[string]bool)}
	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx.state
	if len(tx.dirty) > 0 {
		keys := make([]string, 0, len(tx.dirty))
		for k := range tx.dirty {
			keys = append(keys, k)
		}
		s.persist(keys...)
	}
	return nil
}

// TradeResult is a committed fill and the session state it left behind
type TradeResult struct {
	domain.Transaction

	Balance   float64         // wallet balance after the fill
	Position  domain.Position // holding after the fill; zero quantity when sold out
	Positions int             // open positions after the fill
}

// ApplyTrade validates order against the wallet and holdings and, when it
// passes, debits or credits the wallet, updates the position and logs the
// transaction as one unit. Rejections leave the state untouched.
func (s *Store) ApplyTrade(order domain.Order) (TradeResult, error) {
	order.Symbol = strings.ToUpper(strings.TrimSpace(order.Symbol))
	if err := order.Validate(); err != nil {
		return TradeResult{}, &domain.TradeError{Order: order, Reason: err}
	}

	var res TradeResult
	err := s.Mutate(func(tx *Tx) error {
		user, err := tx.User()
		if err != nil {
			return &domain.TradeError{Order: order, Reason: err}
		}

		qty := decimal.NewFromInt(int64(order.Quantity))
		price := decimal.NewFromFloat(order.Price)
		total := qty.Mul(price)
		balance := decimal.NewFromFloat(user.WalletBalance)
		pos, held := tx.Position(order.Symbol)

		switch order.Side {
		case domain.SideBuy:
			if total.GreaterThan(balance) {
				return &domain.TradeError{
					Order:  order,
					Reason: domain.ErrInsufficientBalance,
					Need:   total.InexactFloat64(),
					Have:   user.WalletBalance,
				}
			}
			balance = balance.Sub(total)

			if held {
				// Weighted average over the combined lot
				oldQty := decimal.NewFromInt(int64(pos.Quantity))
				cost := oldQty.Mul(decimal.NewFromFloat(pos.AvgPrice)).Add(total)
				newQty := oldQty.Add(qty)
				pos.AvgPrice = cost.Div(newQty).InexactFloat64()
				pos.Quantity += order.Quantity
			} else {
				pos = domain.Position{
					Symbol:   order.Symbol,
					Name:     s.nameOf(order.Symbol),
					Quantity: order.Quantity,
					AvgPrice: order.Price,
				}
			}
			pos.CurrentPrice = order.Price

		case domain.SideSell:
			if !held || order.Quantity > pos.Quantity {
				return &domain.TradeError{
					Order:  order,
					Reason: domain.ErrInsufficientShares,
					Need:   float64(order.Quantity),
					Have:   float64(pos.Quantity),
				}
			}
			balance = balance.Add(total)
			pos.Quantity -= order.Quantity
			pos.CurrentPrice = order.Price
		}

		if err := tx.SetBalance(balance.InexactFloat64()); err != nil {
			return err
		}
		tx.PutPosition(pos)

		name := pos.Name
		if name == "" {
			name = s.nameOf(order.Symbol)
		}
		res.Transaction = tx.Record(domain.Transaction{
			Type:        domain.TransactionType(order.Side),
			StockSymbol: order.Symbol,
			StockName:   name,
			Quantity:    order.Quantity,
			Price:       order.Price,
			Amount:      total.InexactFloat64(),
		})
		res.Balance = tx.state.user.WalletBalance
		res.Position = pos
		res.Positions = len(tx.state.portfolio)
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}

	s.log.Info().
		Str("id", res.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Int("quantity", order.Quantity).
		Float64("price", order.Price).
		Msg("Trade applied")

	return res, nil
}

// ApplyWalletChange sets the balance the backend reported and records the
// add_funds or withdraw entry.
func (s *Store) ApplyWalletChange(typ domain.TransactionType, amount, newBalance float64) (domain.Transaction, error) {
	if typ != domain.TransactionAddFunds && typ != domain.TransactionWithdraw {
		return domain.Transaction{}, fmt.Errorf("transaction type %q is not a wallet change", typ)
	}
	if amount <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	var recorded domain.Transaction
	err := s.Mutate(func(tx *Tx) error {
		if err := tx.SetBalance(newBalance); err != nil {
			return err
		}
		recorded = tx.Record(domain.Transaction{Type: typ, Amount: amount})
		return nil
	})
	return recorded, err
}

// AddTransaction prepends t to the log with a fresh id and timestamp
func (s *Store) AddTransaction(t domain.Transaction) domain.Transaction {
	var recorded domain.Transaction
	_ = s.Mutate(func(tx *Tx) error {
		recorded = tx.Record(t)
		return nil
	})
	return recorded
}

// SetBalance replaces the wallet balance without logging a transaction
func (s *Store) SetBalance(balance float64) error {
	return s.Mutate(func(tx *Tx) error {
		return tx.SetBalance(balance)
	})
}
