// Package trading executes simulated orders against the session wallet and
// positions, and reports fills to the backend ledger.
package trading

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/rs/zerolog"
)

// DefaultNotifyTimeout bounds the backend notification after a fill
const DefaultNotifyTimeout = 10 * time.Second

// PriceTolerance is how far a quoted order price may sit from the live quote,
// as a fraction of the live price. It matches the largest single tick move.
const PriceTolerance = 0.005

// TradeRecorder receives completed fills
type TradeRecorder interface {
	RecordTrade(ctx context.Context, rec backend.TradeRecord) error
}

// Executor is the single entry point for order execution.
//
// Responsibilities:
//   - Fill market orders at the live quote
//   - Run safety validations
//   - Apply the fill to the session store as one unit
//   - Emit TRADE_EXECUTED and PORTFOLIO_CHANGED
//   - Notify the backend ledger without blocking the caller
type Executor struct {
	store         *session.Store
	quotes        QuoteSource
	safety        *TradeSafetyService
	recorder      TradeRecorder
	eventManager  *events.Manager
	notifyTimeout time.Duration
	pending       sync.WaitGroup
	log           zerolog.Logger
}

// NewExecutor creates a new trade executor. recorder and eventManager may be nil.
func NewExecutor(
	store *session.Store,
	quotes QuoteSource,
	safety *TradeSafetyService,
	recorder TradeRecorder,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		store:         store,
		quotes:        quotes,
		safety:        safety,
		recorder:      recorder,
		eventManager:  eventManager,
		notifyTimeout: DefaultNotifyTimeout,
		log:           log.With().Str("service", "trading").Logger(),
	}
}

// Prepare normalizes order and sets its price to the live quote. A price the
// caller quoted is only checked against the live quote; fills always happen
// at the live price.
func (e *Executor) Prepare(order domain.Order) (domain.Order, error) {
	order.Symbol = strings.ToUpper(strings.TrimSpace(order.Symbol))
	inst, ok := e.quotes.Get(order.Symbol)
	if !ok {
		return order, &domain.TradeError{Order: order, Reason: domain.ErrUnknownSymbol}
	}
	if order.Price < 0 {
		// Rejected by the order shape check
		return order, nil
	}
	if order.Price > 0 && math.Abs(order.Price-inst.Price) > inst.Price*PriceTolerance {
		return order, &domain.TradeError{
			Order:  order,
			Reason: domain.ErrStalePrice,
			Need:   inst.Price,
			Have:   order.Price,
		}
	}
	order.Price = inst.Price
	return order, nil
}

// Validate is a dry run of Execute. It never mutates state.
func (e *Executor) Validate(order domain.Order) (domain.Order, error) {
	order, err := e.Prepare(order)
	if err != nil {
		return order, err
	}
	return order, e.safety.ValidateTrade(order)
}

// Execute validates and applies order. Validation failures are returned as
// *domain.TradeError and leave every piece of state untouched.
func (e *Executor) Execute(ctx context.Context, order domain.Order) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	order, err := e.Validate(order)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("symbol", order.Symbol).
			Str("side", string(order.Side)).
			Msg("Trade rejected")
		return domain.Transaction{}, err
	}

	res, err := e.store.ApplyTrade(order)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", order.Symbol).Msg("Trade rejected")
		return domain.Transaction{}, err
	}

	e.emit(order, res)
	e.notify(ctx, order, e.store.User())

	e.log.Info().
		Str("id", res.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Int("quantity", order.Quantity).
		Float64("price", order.Price).
		Msg("Trade executed successfully")

	return res.Transaction, nil
}

func (e *Executor) emit(order domain.Order, res session.TradeResult) {
	if e.eventManager == nil {
		return
	}

	e.eventManager.EmitTyped("trading", &events.TradeExecutedData{
		TransactionID: res.ID,
		Symbol:        order.Symbol,
		Side:          string(order.Side),
		Quantity:      order.Quantity,
		Price:         order.Price,
		Amount:        res.Amount,
		Balance:       res.Balance,
	})

	e.eventManager.EmitTyped("trading", &events.PortfolioChangedData{
		Symbol:    order.Symbol,
		Quantity:  res.Position.Quantity,
		Positions: res.Positions,
	})
}

// notify posts the fill to the backend in the background. Failures are
// logged; the local fill stands regardless.
func (e *Executor) notify(ctx context.Context, order domain.Order, user *domain.User) {
	if e.recorder == nil || user == nil {
		return
	}

	rec := backend.TradeRecord{
		UserID:   user.ID,
		Asset:    order.Symbol,
		Action:   order.Side.Action(),
		Quantity: order.Quantity,
		Price:    order.Price,
		Status:   "Completed",
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		defer cancel()

		if err := e.recorder.RecordTrade(ctx, rec); err != nil {
			e.log.Warn().
				Err(err).
				Str("symbol", rec.Asset).
				Str("action", rec.Action).
				Msg("Failed to record trade with backend")
			if e.eventManager != nil {
				e.eventManager.EmitError("trading", err, map[string]interface{}{
					"symbol": rec.Asset,
					"action": rec.Action,
				})
			}
		}
	}()
}

// Wait blocks until in-flight backend notifications finish
func (e *Executor) Wait() {
	e.pending.Wait()
}
