package domain

import (
	"errors"
	"fmt"
)

// Validation errors. Callers match with errors.Is.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrInvalidQuantity     = errors.New("quantity must be a positive whole number")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidSide         = errors.New("side must be buy or sell")
	ErrNoSession           = errors.New("no active session")
	ErrUnknownSymbol       = errors.New("unknown symbol")
	ErrStalePrice          = errors.New("price is away from the live quote")
	ErrInvalidTimeframe    = errors.New("timeframe must be one of 1D, 1W, 1M")
)

// TradeError is returned when an order is rejected
type TradeError struct {
	Order  Order
	Reason error
	Need   float64 // balance or shares required
	Have   float64 // balance or shares available
}

func (e *TradeError) Error() string {
	switch e.Reason {
	case ErrInsufficientBalance:
		return fmt.Sprintf("%s: need ₹%.2f, have ₹%.2f", e.Reason, e.Need, e.Have)
	case ErrInsufficientShares:
		return fmt.Sprintf("%s: selling %.0f %s, holding %.0f", e.Reason, e.Need, e.Order.Symbol, e.Have)
	case ErrStalePrice:
		return fmt.Sprintf("%s: quoted ₹%.2f, live ₹%.2f", e.Reason, e.Have, e.Need)
	}
	return fmt.Sprintf("%s order for %s rejected: %v", e.Order.Side, e.Order.Symbol, e.Reason)
}

func (e *TradeError) Unwrap() error {
	return e.Reason
}

// IsValidation reports whether err is a caller error rather than an infrastructure failure
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInsufficientBalance, ErrInsufficientShares, ErrInvalidQuantity,
		ErrInvalidPrice, ErrInvalidAmount, ErrInvalidSide, ErrNoSession,
		ErrUnknownSymbol, ErrStalePrice, ErrInvalidTimeframe,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
