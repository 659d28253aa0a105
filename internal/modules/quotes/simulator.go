package quotes

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/rs/zerolog"
)

// DefaultInterval is the tick cadence used when none is configured
const DefaultInterval = 2 * time.Second

// Callback receives the full quote snapshot after every tick
type Callback func(instruments []domain.Instrument)

type subscriber struct {
	id     uint64
	fn     Callback
	mu     sync.Mutex // held while fn runs
	active bool
}

// Simulator drives the Store with a shared, reference-counted ticker.
// The ticker goroutine starts with the first subscriber and stops with
// the last one.
type Simulator struct {
	store    *Store
	interval time.Duration
	events   *events.Manager
	log      zerolog.Logger

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	stop   chan struct{}
	done   chan struct{}

	// tickMu serializes ticks, including across a stop/restart of the loop
	tickMu sync.Mutex
	rng    *rand.Rand
	ticks  atomic.Int64
}

// NewSimulator creates a simulator over store. A nil rng gets a randomly
// seeded source; eventManager may be nil.
func NewSimulator(store *Store, interval time.Duration, rng *rand.Rand, eventManager *events.Manager, log zerolog.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{
		store:    store,
		interval: interval,
		events:   eventManager,
		rng:      rng,
		subs:     make(map[uint64]*subscriber),
		log:      log.With().Str("service", "price_simulator").Logger(),
	}
}

// Subscribe registers fn for every tick and returns its unsubscribe function.
// Unsubscribe is idempotent and, once it returns, fn will not be invoked
// again. It must not be called synchronously from inside fn; use
// `go unsubscribe()` there.
func (s *Simulator) Subscribe(fn Callback) (unsubscribe func()) {
	sub := &subscriber{fn: fn, active: true}

	s.mu.Lock()
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	if s.stop == nil {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.run(s.stop, s.done)
		s.log.Debug().Dur("interval", s.interval).Msg("Price simulator started")
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(sub) })
	}
}

func (s *Simulator) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	delete(s.subs, sub.id)
	if len(s.subs) == 0 && s.stop != nil {
		close(s.stop)
		s.stop = nil
		s.log.Debug().Msg("Price simulator stopped, no subscribers")
	}
	s.mu.Unlock()

	// Wait out an in-flight callback
	sub.mu.Lock()
	sub.active = false
	sub.mu.Unlock()
}

func (s *Simulator) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.Tick()
		}
	}
}

// Tick advances every instrument one step and fans the snapshot out to
// subscribers. Ticks never overlap.
func (s *Simulator) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.store.apply(func(inst domain.Instrument) domain.Instrument {
		return Tick(inst, s.rng)
	})
	tick := s.ticks.Add(1)
	snapshot := s.store.Snapshot()

	s.dispatch(snapshot)

	if s.events != nil {
		s.events.EmitTyped("quotes", &events.PriceUpdatedData{
			Instruments: len(snapshot),
			Tick:        int(tick),
		})
	}
}

func (s *Simulator) dispatch(snapshot []domain.Instrument) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	slices.SortFunc(subs, func(a, b *subscriber) int {
		return cmp.Compare(a.id, b.id)
	})

	for _, sub := range subs {
		s.deliver(sub, slices.Clone(snapshot))
	}
}

func (s *Simulator) deliver(sub *subscriber, snapshot []domain.Instrument) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if !sub.active {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Uint64("subscriber", sub.id).Msg("Quote subscriber panicked")
		}
	}()
	sub.fn(snapshot)
}

// Running reports whether the ticker goroutine is active
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Subscribers returns the number of live subscriptions
func (s *Simulator) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Ticks returns how many ticks have been applied
func (s *Simulator) Ticks() int {
	return int(s.ticks.Load())
}

// Interval returns the tick cadence
func (s *Simulator) Interval() time.Duration {
	return s.interval
}

// Close drops every subscriber and waits for the ticker goroutine to exit
func (s *Simulator) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	done := s.done
	s.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
	}

	if done != nil {
		<-done
	}
}
