// Package domain provides core domain models and types.
package domain

import (
	"math"
	"strings"
	"time"
)

// MinPrice is the floor for every simulated instrument price
const MinPrice = 1.0

// Instrument is a tradable Nifty-50 equity and its live quote
type Instrument struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Name          string  `json:"name" yaml:"name"`
	FullName      string  `json:"fullName" yaml:"full_name"`
	Price         float64 `json:"price" yaml:"price"`
	Change        float64 `json:"change" yaml:"change"`
	ChangePercent float64 `json:"changePercent" yaml:"-"`
	Volume        string  `json:"volume" yaml:"volume"`
	Description   string  `json:"description" yaml:"description"`
}

// ReferencePrice is the price the change is measured against
func (i Instrument) ReferencePrice() float64 {
	return i.Price - i.Change
}

// Normalize enforces the price floor and re-derives changePercent.
// When the implied reference would fall below MinPrice the change is
// rebased so the reference sits exactly at the floor.
func (i *Instrument) Normalize() {
	if i.Name == "" {
		i.Name = i.Symbol
	}
	if i.Price < MinPrice || math.IsNaN(i.Price) {
		i.Price = MinPrice
	}
	if math.IsNaN(i.Change) || i.ReferencePrice() < MinPrice {
		i.Change = i.Price - MinPrice
	}
	i.ChangePercent = i.Change / i.ReferencePrice() * 100
}

// ConsistentChangePercent reports whether changePercent matches
// change / (price - change) * 100 within tol.
func (i Instrument) ConsistentChangePercent(tol float64) bool {
	ref := i.ReferencePrice()
	if ref <= 0 {
		return false
	}
	return math.Abs(i.ChangePercent-i.Change/ref*100) <= tol
}

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts buy/sell in any case
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Action is the backend's spelling of the side (BUY/SELL)
func (s Side) Action() string {
	return strings.ToUpper(string(s))
}

// Order is a request to buy or sell whole shares at a price
type Order struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Total is quantity * price
func (o Order) Total() float64 {
	return float64(o.Quantity) * o.Price
}

// Validate checks the order shape; balance and holdings are checked by the executor
func (o Order) Validate() error {
	if strings.TrimSpace(o.Symbol) == "" {
		return ErrUnknownSymbol
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return ErrInvalidSide
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.Price <= 0 || math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return ErrInvalidPrice
	}
	return nil
}

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionAddFunds TransactionType = "add_funds"
	TransactionWithdraw TransactionType = "withdraw"
)

// Transaction is an immutable ledger entry. Amount is unsigned; Type gives direction.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	StockSymbol string          `json:"stockSymbol,omitempty"`
	StockName   string          `json:"stockName,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	Price       float64         `json:"price,omitempty"`
	Amount      float64         `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Position is a holding in one instrument. Quantity is always > 0 while stored.
type Position struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
}

// WishlistItem is a watched instrument with the quote captured when it was added
type WishlistItem struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	FullName      string  `json:"fullName,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// WishlistItemFrom snapshots an instrument
func WishlistItemFrom(i Instrument) WishlistItem {
	return WishlistItem{
		Symbol:        i.Symbol,
		Name:          i.Name,
		FullName:      i.FullName,
		Price:         i.Price,
		Change:        i.Change,
		ChangePercent: i.ChangePercent,
	}
}

// User is the signed-in account
type User struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Mobile        string  `json:"mobile,omitempty"`
	Email         string  `json:"email,omitempty"`
	Role          Role    `json:"role"`
	WalletBalance float64 `json:"walletBalance"`
}

// UserPatch holds optional profile updates
type UserPatch struct {
	Name          *string  `json:"name,omitempty"`
	Mobile        *string  `json:"mobile,omitempty"`
	Email         *string  `json:"email,omitempty"`
	WalletBalance *float64 `json:"walletBalance,omitempty"`
}

// Apply returns u with the non-nil patch fields set
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.WalletBalance != nil && *p.WalletBalance >= 0 {
		u.WalletBalance = *p.WalletBalance
	}
	return u
}
