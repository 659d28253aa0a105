package portfolio

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/modules/storage"
	testutil "github.com/niftybulk/papertrade/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*PortfolioService, *session.Store, *quotes.Simulator, *events.Bus) {
	t.Helper()
	db := testutil.NewTestDB(t, "store")
	qs := quotes.NewStore([]domain.Instrument{
		{Symbol: "TCS", Name: "TCS", Price: 3500, Volume: "1.0M"},
		{Symbol: "INFY", Name: "Infosys", Price: 1500, Volume: "2.0M"},
	})
	store := session.NewStore(storage.NewRepository(db.Conn(), zerolog.Nop()), qs, zerolog.Nop())
	store.Load()

	bus := events.NewBus()
	manager := events.NewManager(bus, zerolog.Nop())
	// Long interval: ticks are driven by the test
	sim := quotes.NewSimulator(qs, time.Hour, rand.New(rand.NewPCG(1, 2)), nil, zerolog.Nop())
	t.Cleanup(sim.Close)

	return NewPortfolioService(store, qs, sim, manager, zerolog.Nop()), store, sim, bus
}

func TestPortfolioService_Current(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	assert.Empty(t, svc.Current().Positions)

	store.Login("tok", domain.User{ID: "u1", Role: domain.RoleUser, WalletBalance: 10000})
	_, err := store.ApplyTrade(domain.Order{Symbol: "TCS", Side: domain.SideBuy, Quantity: 2, Price: 3400})
	require.NoError(t, err)

	s := svc.Current()
	assert.Equal(t, 6800.0, s.TotalInvestment)
	assert.Equal(t, 7000.0, s.CurrentValue)
	assert.Equal(t, 200.0, s.TotalPnL)
}

func TestPortfolioService_Watch(t *testing.T) {
	svc, store, sim, bus := newTestService(t)

	var mu sync.Mutex
	var valued []float64
	bus.Subscribe(events.PortfolioValued, func(e *events.Event) {
		mu.Lock()
		valued = append(valued, e.Data["positions"].(float64))
		mu.Unlock()
	})

	var got []Summary
	stop := svc.Watch(func(s Summary) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	assert.True(t, sim.Running())

	// No positions: the viewer still gets an empty valuation, no event
	sim.Tick()
	mu.Lock()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Positions)
	assert.Empty(t, valued)
	mu.Unlock()

	store.Login("tok", domain.User{ID: "u1", Role: domain.RoleUser, WalletBalance: 10000})
	_, err := store.ApplyTrade(domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1, Price: 1500})
	require.NoError(t, err)

	sim.Tick()
	sim.Tick()

	mu.Lock()
	require.Len(t, got, 3)
	assert.Equal(t, 1500.0, got[1].TotalInvestment)
	assert.Equal(t, []float64{1, 1}, valued)
	mu.Unlock()

	stop()
	assert.False(t, sim.Running())
}

func TestPortfolioService_WatchAfterLastSale(t *testing.T) {
	svc, store, sim, bus := newTestService(t)

	var mu sync.Mutex
	var valued []float64
	bus.Subscribe(events.PortfolioValued, func(e *events.Event) {
		mu.Lock()
		valued = append(valued, e.Data["positions"].(float64))
		mu.Unlock()
	})

	var got []Summary
	stop := svc.Watch(func(s Summary) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	defer stop()

	store.Login("tok", domain.User{ID: "u1", Role: domain.RoleUser, WalletBalance: 10000})
	_, err := store.ApplyTrade(domain.Order{Symbol: "INFY", Side: domain.SideBuy, Quantity: 1, Price: 1500})
	require.NoError(t, err)
	sim.Tick()

	_, err = store.ApplyTrade(domain.Order{Symbol: "INFY", Side: domain.SideSell, Quantity: 1, Price: 1500})
	require.NoError(t, err)
	sim.Tick()
	sim.Tick()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Len(t, got[0].Positions, 1)
	for _, s := range got[1:] {
		assert.Empty(t, s.Positions)
		assert.Zero(t, s.TotalInvestment)
		assert.Zero(t, s.CurrentValue)
	}
	// One event for the holding, one for emptying, then quiet
	assert.Equal(t, []float64{1, 0}, valued)
}
