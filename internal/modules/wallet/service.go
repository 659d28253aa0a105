// Package wallet moves funds through the backend wallet and mirrors the
// resulting balance into the session.
package wallet

import (
	"context"
	"fmt"

	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Backend is the wallet side of the backend client
type Backend interface {
	GetWallet(ctx context.Context) (*backend.Wallet, error)
	AddFunds(ctx context.Context, amount float64) (*backend.WalletChange, error)
	Withdraw(ctx context.Context, amount float64) (*backend.WalletChange, error)
}

// Service handles wallet operations
type Service struct {
	store        *session.Store
	backend      Backend
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new wallet service. eventManager may be nil.
func NewService(store *session.Store, backend Backend, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		backend:      backend,
		eventManager: eventManager,
		log:          log.With().Str("service", "wallet").Logger(),
	}
}

// Balance returns the local wallet balance
func (s *Service) Balance() (float64, error) {
	u := s.store.User()
	if u == nil {
		return 0, domain.ErrNoSession
	}
	return u.WalletBalance, nil
}

// AddFunds credits amount through the backend. The local balance follows
// the balance the backend reports.
func (s *Service) AddFunds(ctx context.Context, amount float64) (domain.Transaction, error) {
	if err := s.check(amount); err != nil {
		return domain.Transaction{}, err
	}

	change, err := s.backend.AddFunds(ctx, amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to add funds: %w", err)
	}
	return s.apply(domain.TransactionAddFunds, amount, change.Balance)
}

// Withdraw debits amount through the backend
func (s *Service) Withdraw(ctx context.Context, amount float64) (domain.Transaction, error) {
	if err := s.check(amount); err != nil {
		return domain.Transaction{}, err
	}

	balance, _ := s.Balance()
	if decimal.NewFromFloat(amount).GreaterThan(decimal.NewFromFloat(balance)) {
		return domain.Transaction{}, &domain.TradeError{
			Reason: domain.ErrInsufficientBalance,
			Need:   amount,
			Have:   balance,
		}
	}

	change, err := s.backend.Withdraw(ctx, amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to withdraw: %w", err)
	}
	return s.apply(domain.TransactionWithdraw, amount, change.Balance)
}

// Sync replaces the local balance with the backend's. It is a no-op when
// nobody is signed in.
func (s *Service) Sync(ctx context.Context) error {
	if !s.store.IsAuthenticated() {
		return nil
	}

	w, err := s.backend.GetWallet(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch wallet: %w", err)
	}

	before, _ := s.Balance()
	if err := s.store.SetBalance(w.Balance); err != nil {
		return err
	}
	if before != w.Balance {
		s.log.Info().
			Float64("local", before).
			Float64("backend", w.Balance).
			Msg("Wallet balance reconciled with backend")
		s.emit("sync", 0, w.Balance)
	}
	return nil
}

// History returns the backend wallet history
func (s *Service) History(ctx context.Context) (*backend.Wallet, error) {
	if !s.store.IsAuthenticated() {
		return nil, domain.ErrNoSession
	}
	w, err := s.backend.GetWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}
	return w, nil
}

func (s *Service) check(amount float64) error {
	if !s.store.IsAuthenticated() {
		return domain.ErrNoSession
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

func (s *Service) apply(typ domain.TransactionType, amount, balance float64) (domain.Transaction, error) {
	tx, err := s.store.ApplyWalletChange(typ, amount, balance)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.log.Info().
		Str("type", string(typ)).
		Float64("amount", amount).
		Float64("balance", balance).
		Msg("Wallet updated")
	s.emit(string(typ), amount, balance)
	return tx, nil
}

func (s *Service) emit(action string, amount, balance float64) {
	if s.eventManager == nil {
		return
	}
	s.eventManager.EmitTyped("wallet", &events.WalletUpdatedData{
		Action:  action,
		Amount:  amount,
		Balance: balance,
	})
}

