package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/uhyunpark/l3sim/params"
	"github.com/uhyunpark/l3sim/pkg/app/agents"
	"github.com/uhyunpark/l3sim/pkg/app/core/market"
	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
	"github.com/uhyunpark/l3sim/pkg/events"
	"github.com/uhyunpark/l3sim/pkg/storage"
	"github.com/uhyunpark/l3sim/pkg/util"
)

// App wires one market, its book, the agents and every event sink.
type App struct {
	cfg params.Config
	log *zap.SugaredLogger

	Market   *market.Market
	Book     *orderbook.OrderBook
	Clock    util.Clock
	Stream   *events.Stream
	Recorder *events.Recorder
	Agents   []agents.Agent

	out *outputs
}

type Option func(*appOptions)

type appOptions struct {
	reg   prometheus.Registerer
	sinks []events.Sink
	clock util.Clock
}

// WithRegisterer enables the prometheus counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *appOptions) { o.reg = reg }
}

// WithSink adds a sink after the configured ones.
func WithSink(s events.Sink) Option {
	return func(o *appOptions) { o.sinks = append(o.sinks, s) }
}

// WithClock overrides the clock chosen by configuration.
func WithClock(c util.Clock) Option {
	return func(o *appOptions) { o.clock = c }
}

func NewApp(cfg params.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	m, err := market.NewMarket(cfg.Market.Symbol, market.Custom(cfg.Market.TickSize, cfg.Market.LotSize))
	if err != nil {
		return nil, err
	}

	clock := o.clock
	if clock == nil {
		clock = newClock(cfg.Sim)
	}

	out, err := openOutputs(cfg.Output, o.reg)
	if err != nil {
		return nil, err
	}

	rec := events.NewRecorder()
	sinks := events.Fanout{rec, events.NewLogging(logger)}
	sinks = append(sinks, out.sinks...)
	sinks = append(sinks, o.sinks...)
	stream := events.NewStream(m, sinks)

	book := orderbook.NewOrderBook(stream, clock)
	book.Validator = m.CheckStatus
	if cfg.Market.EnforceRules {
		book.Validator = m.ValidateOrder
	}

	a := &App{
		cfg:      cfg,
		log:      logger.Sugar(),
		Market:   m,
		Book:     book,
		Clock:    clock,
		Stream:   stream,
		Recorder: rec,
		out:      out,
	}
	a.Agents = buildAgents(cfg, m, clock)
	if err := checkQuotes(m, a.Agents); err != nil {
		out.Close()
		return nil, err
	}
	return a, nil
}

// checkQuotes makes sure every agent's price band lands on positive ticks.
// Otherwise the book would reject the first order and end the run.
func checkQuotes(m *market.Market, as []agents.Agent) error {
	for _, ag := range as {
		q, ok := ag.(agents.Quoter)
		if !ok {
			continue
		}
		lo, _ := q.PriceRange()
		if ticks := m.FloatToTicks(lo); ticks <= 0 {
			return fmt.Errorf("agent %s quotes down to %v, which is %d ticks at tick size %s",
				ag.ID(), lo, ticks, m.TickSize)
		}
	}
	return nil
}

func newClock(cfg params.Sim) util.Clock {
	if cfg.Clock == params.ClockReal {
		return util.RealClock{}
	}
	return util.NewSimClock(cfg.Start, cfg.ClockStep)
}

// buildAgents derives every random stream from the master seed, so a seed
// reproduces the run exactly when the sim clock is used.
func buildAgents(cfg params.Config, m *market.Market, clock util.Clock) []agents.Agent {
	master := rand.New(rand.NewSource(cfg.Sim.Seed))
	ids := orderbook.UUIDSource(rand.New(rand.NewSource(master.Int63())))
	factory := orderbook.NewFactory(ids, clock)

	env := func() agents.Env {
		return agents.Env{
			Factory: factory,
			Pricer:  m,
			Rand:    rand.New(rand.NewSource(master.Int63())),
			Lot:     cfg.Market.LotSize,
		}
	}

	var out []agents.Agent
	for i := 0; i < cfg.Sim.NoiseTraders; i++ {
		out = append(out, agents.NewNoiseTrader(fmt.Sprintf("noise_%d", i), env()))
	}
	for i := 0; i < cfg.Sim.SpoofTraders; i++ {
		s := agents.NewSpoofTrader(fmt.Sprintf("spoof_%d", i+1), env())
		s.Layers = cfg.Sim.SpoofLayers
		out = append(out, s)
	}
	return out
}

// Run plays the configured number of rounds.
func (a *App) Run(ctx context.Context) (Stats, error) {
	a.log.Infow("sim_starting",
		"symbol", a.Market.Symbol,
		"rounds", a.cfg.Sim.Rounds,
		"agents", len(a.Agents),
		"seed", a.cfg.Sim.Seed,
		"clock", a.cfg.Sim.Clock,
		"enforce_rules", a.cfg.Market.EnforceRules,
	)

	r := &Runner{
		Book:     a.Book,
		Agents:   a.Agents,
		Rounds:   a.cfg.Sim.Rounds,
		Interval: a.cfg.Sim.Interval,
		Clock:    a.Clock,
		Log:      a.log,
		LogEvery: 100,
	}
	st, err := r.Run(ctx)
	if err != nil {
		a.log.Warnw("sim_stopped", "rounds", st.Rounds, "err", err)
		return st, err
	}
	if err := a.Book.Validate(); err != nil {
		return st, fmt.Errorf("book corrupt after run: %w", err)
	}
	return st, nil
}

// Save writes the recorded stream to the configured parquet file.
func (a *App) Save() (int, error) {
	path := a.cfg.Output.Parquet
	if path == "" {
		return 0, nil
	}
	if err := ensureDir(path); err != nil {
		return 0, err
	}
	n, err := storage.WriteParquet(path, a.Recorder.Events())
	if err != nil {
		return 0, err
	}
	a.log.Infow("events_saved", "path", path, "rows", n)
	return n, nil
}

// Metrics returns the prometheus counters, nil without a registerer.
func (a *App) Metrics() *events.Metrics { return a.out.metrics }

// Store returns the pebble event store, nil when not configured.
func (a *App) Store() *storage.EventStore { return a.out.store }

// Close halts trading and then flushes and closes every configured sink.
// Orders submitted after Close are rejected.
func (a *App) Close() error {
	a.Market.Status = market.Paused
	var errs error
	if a.out.store != nil {
		errs = multierr.Append(errs, a.out.store.Flush())
	}
	return multierr.Append(errs, a.out.Close())
}
