package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/modules/storage"
	testutil "github.com/niftybulk/papertrade/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type recordingRecorder struct {
	mu      sync.Mutex
	records []backend.TradeRecord
	err     error
	block   chan struct{}
}

func (r *recordingRecorder) RecordTrade(ctx context.Context, rec backend.TradeRecord) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *recordingRecorder) Records() []backend.TradeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.TradeRecord(nil), r.records...)
}

func testInstruments() []domain.Instrument {
	list := []domain.Instrument{
		{Symbol: "TCS", Name: "TCS", FullName: "Tata Consultancy Services", Price: 3500, Volume: "1.0M"},
		{Symbol: "INFY", Name: "Infosys", FullName: "Infosys Ltd", Price: 100, Volume: "2.0M"},
		{Symbol: "ITC", Name: "ITC", FullName: "ITC Ltd", Price: 456.75, Change: 3.25, Volume: "12.4M"},
	}
	for i := range list {
		list[i].Normalize()
	}
	return list
}

// liveQuotes is a quote source whose prices a test can move between orders
type liveQuotes map[string]float64

func (q liveQuotes) Get(symbol string) (domain.Instrument, bool) {
	price, ok := q[symbol]
	return domain.Instrument{Symbol: symbol, Name: symbol, Price: price}, ok
}

type fixture struct {
	store    *session.Store
	quotes   *quotes.Store
	bus      *events.Bus
	recorder *recordingRecorder
	executor *Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, "store")
	repo := storage.NewRepository(db.Conn(), zerolog.Nop())
	qs := quotes.NewStore(testInstruments())
	store := session.NewStore(repo, qs, zerolog.Nop())
	store.Load()

	bus := events.NewBus()
	manager := events.NewManager(bus, zerolog.Nop())
	recorder := &recordingRecorder{}
	safety := NewTradeSafetyService(store, qs, zerolog.Nop())
	executor := NewExecutor(store, qs, safety, recorder, manager, zerolog.Nop())
	t.Cleanup(executor.Wait)

	return &fixture{store: store, quotes: qs, bus: bus, recorder: recorder, executor: executor}
}

func (f *fixture) signIn(balance float64) {
	f.store.Login("tok", domain.User{ID: "u1", Name: "Asha", Role: domain.RoleUser, WalletBalance: balance})
}

func TestExecute_TenThousandRupeeTCS(t *testing.T) {
	f := newFixture(t)
	f.signIn(10000)

	var emitted []events.EventType
	payloads := make(map[events.EventType]map[string]interface{})
	var mu sync.Mutex
	for _, typ := range []events.EventType{events.TradeExecuted, events.PortfolioChanged} {
		f.bus.Subscribe(typ, func(e *events.Event) {
			mu.Lock()
			emitted = append(emitted, e.Type)
			payloads[e.Type] = e.Data
			mu.Unlock()
		})
	}

	// Market order: price filled from the live quote
	tx, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "tcs", Side: domain.SideBuy, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "TCS", tx.StockSymbol)
	assert.Equal(t, 3500.0, tx.Price)
	assert.Equal(t, 7000.0, tx.Amount)
	assert.Equal(t, 3000.0, f.store.User().WalletBalance)

	pos, ok := f.store.Position("TCS")
	require.True(t, ok)
	assert.Equal(t, 2, pos.Quantity)
	assert.Equal(t, 3500.0, pos.AvgPrice)

	_, err = f.executor.Execute(context.Background(), domain.Order{Symbol: "TCS", Side: domain.SideBuy, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, 3000.0, f.store.User().WalletBalance)
	assert.Len(t, f.store.Transactions(), 1)

	f.executor.Wait()
	records := f.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, backend.TradeRecord{
		UserID: "u1", Asset: "TCS", Action: "BUY", Quantity: 2, Price: 3500, Status: "Completed",
	}, records[0])

	mu.Lock()
	assert.Equal(t, []events.EventType{events.TradeExecuted, events.PortfolioChanged}, emitted)
	// State as of the fill, not as of the event
	assert.Equal(t, 3000.0, payloads[events.TradeExecuted]["balance"])
	assert.Equal(t, 2.0, payloads[events.PortfolioChanged]["quantity"])
	assert.Equal(t, 1.0, payloads[events.PortfolioChanged]["positions"])
	mu.Unlock()
}

func TestExecute_WeightedAverage(t *testing.T) {
	f := newFixture(t)
	f.signIn(100000)
	live := liveQuotes{"INFY": 100}
	f.executor.quotes = live

	_, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 10})
	require.NoError(t, err)
	live["INFY"] = 200
	_, err = f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 10})
	require.NoError(t, err)

	pos, _ := f.store.Position("INFY")
	assert.Equal(t, 20, pos.Quantity)
	assert.Equal(t, 150.0, pos.AvgPrice)
}

func TestExecute_SellRejection(t *testing.T) {
	f := newFixture(t)
	f.signIn(10000)

	_, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 5})
	require.NoError(t, err)
	before := f.store.Snapshot()

	_, err = f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideSell, Quantity: 6})
	var tradeErr *domain.TradeError
	require.ErrorAs(t, err, &tradeErr)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
	assert.Equal(t, 6.0, tradeErr.Need)
	assert.Equal(t, 5.0, tradeErr.Have)
	assert.Equal(t, before, f.store.Snapshot())
}

func TestExecute_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "TCS", Side: domain.SideBuy, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNoSession)

	f.signIn(1000)
	tests := []struct {
		name  string
		order domain.Order
		want  error
	}{
		{"unknown symbol", domain.Order{Symbol: "NOPE", Side: domain.SideBuy, Quantity: 1}, domain.ErrUnknownSymbol},
		{"unknown symbol with price", domain.Order{Symbol: "NOPE", Side: domain.SideBuy, Quantity: 1, Price: 10}, domain.ErrUnknownSymbol},
		{"zero quantity", domain.Order{Symbol: "INFY", Side: domain.SideBuy}, domain.ErrInvalidQuantity},
		{"negative price", domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1, Price: -5}, domain.ErrInvalidPrice},
		{"price far below live", domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1, Price: 0.01}, domain.ErrStalePrice},
		{"price far above live", domain.Order{Symbol: "INFY", Side: domain.SideSell, Quantity: 1, Price: 101}, domain.ErrStalePrice},
		{"over balance", domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 11}, domain.ErrInsufficientBalance},
		{"sell unheld", domain.Order{Symbol: "ITC", Side: domain.SideSell, Quantity: 1}, domain.ErrInsufficientShares},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.executor.Execute(context.Background(), tt.order)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.store.Transactions())
	assert.Equal(t, 1000.0, f.store.User().WalletBalance)
	assert.Empty(t, f.recorder.Records())
}

func TestExecute_FillsAtLivePrice(t *testing.T) {
	f := newFixture(t)
	f.signIn(1000)

	// Within half a percent of the live 100
	tx, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 2, Price: 100.4})
	require.NoError(t, err)
	assert.Equal(t, 100.0, tx.Price)
	assert.Equal(t, 200.0, tx.Amount)
	assert.Equal(t, 800.0, f.store.User().WalletBalance)

	pos, _ := f.store.Position("INFY")
	assert.Equal(t, 100.0, pos.AvgPrice)

	_, err = f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideSell, Quantity: 2, Price: 150})
	var tradeErr *domain.TradeError
	require.ErrorAs(t, err, &tradeErr)
	assert.ErrorIs(t, err, domain.ErrStalePrice)
	assert.Equal(t, 100.0, tradeErr.Need)
	assert.Equal(t, 150.0, tradeErr.Have)
	assert.Equal(t, 800.0, f.store.User().WalletBalance)
}

func TestExecute_CanceledContext(t *testing.T) {
	f := newFixture(t)
	f.signIn(1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.executor.Execute(ctx, domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.store.Transactions())
}

func TestExecute_RecorderFailureKeepsFill(t *testing.T) {
	f := newFixture(t)
	f.signIn(1000)
	f.recorder.err = errors.New("backend down")

	var errorsSeen int
	var mu sync.Mutex
	f.bus.Subscribe(events.ErrorOccurred, func(*events.Event) {
		mu.Lock()
		errorsSeen++
		mu.Unlock()
	})

	_, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1})
	require.NoError(t, err)
	f.executor.Wait()

	assert.Equal(t, 900.0, f.store.User().WalletBalance)
	mu.Lock()
	assert.Equal(t, 1, errorsSeen)
	mu.Unlock()
}

func TestExecute_DoesNotWaitForBackend(t *testing.T) {
	f := newFixture(t)
	f.signIn(1000)
	f.recorder.block = make(chan struct{})
	f.executor.notifyTimeout = 50 * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.executor.Execute(context.Background(), domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute blocked on the backend notification")
	}

	// The notification gives up at its own deadline
	f.executor.Wait()
	assert.Empty(t, f.recorder.Records())
}

func TestValidate_DryRun(t *testing.T) {
	f := newFixture(t)
	f.signIn(1000)

	order, err := f.executor.Validate(domain.Order{Symbol: "infy", Side: domain.SideBuy, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "INFY", order.Symbol)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, 300.0, order.Total())

	_, err = f.executor.Validate(domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 30})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.Empty(t, f.store.Transactions())
	assert.Equal(t, 1000.0, f.store.User().WalletBalance)
}

// Random order sequences never produce a negative balance or an empty position,
// and rejected orders leave the session untouched.
func TestExecute_LedgerInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		live := liveQuotes{"TCS": 3500, "INFY": 100, "ITC": 456.75}
		f.executor.quotes = live
		start := rapid.Float64Range(0, 50000).Draw(rt, "balance")
		f.signIn(start)

		symbols := []string{"TCS", "INFY", "ITC"}
		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			order := domain.Order{
				Symbol:   rapid.SampledFrom(symbols).Draw(rt, "symbol"),
				Side:     rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(rt, "side"),
				Quantity: rapid.IntRange(-1, 20).Draw(rt, "quantity"),
			}
			live[order.Symbol] = float64(rapid.IntRange(1, 5000).Draw(rt, "price"))

			before := f.store.Snapshot()
			_, err := f.executor.Execute(context.Background(), order)
			if err != nil {
				if !domain.IsValidation(err) {
					rt.Fatalf("unexpected error: %v", err)
				}
				if !assert.ObjectsAreEqual(before, f.store.Snapshot()) {
					rt.Fatalf("rejected order %+v mutated the session", order)
				}
			}

			snap := f.store.Snapshot()
			if snap.User.WalletBalance < 0 {
				rt.Fatalf("negative balance %.2f", snap.User.WalletBalance)
			}
			for _, p := range snap.Portfolio {
				if p.Quantity <= 0 {
					rt.Fatalf("position %s has quantity %d", p.Symbol, p.Quantity)
				}
				if p.AvgPrice <= 0 {
					rt.Fatalf("position %s has average %.2f", p.Symbol, p.AvgPrice)
				}
			}
		}
	})
}
