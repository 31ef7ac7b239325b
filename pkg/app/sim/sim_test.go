package sim

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/uhyunpark/l3sim/params"
	"github.com/uhyunpark/l3sim/pkg/app/agents"
	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
	"github.com/uhyunpark/l3sim/pkg/events"
	"github.com/uhyunpark/l3sim/pkg/storage"
	"github.com/uhyunpark/l3sim/pkg/util"
)

func testConfig(t *testing.T) params.Config {
	t.Helper()
	cfg := params.Default()
	cfg.Sim.Rounds = 200
	cfg.Sim.Seed = 42
	cfg.Output.Parquet = filepath.Join(t.TempDir(), "out", "events.parquet")
	return cfg
}

func newTestApp(t *testing.T, cfg params.Config, opts ...Option) *App {
	t.Helper()
	app, err := NewApp(cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestAppRunProducesConsistentStream(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)
	require.Len(t, app.Agents, 6)

	st, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, st.Rounds)

	rec := app.Recorder
	// 5 noise orders plus 3 spoof layers per round
	assert.Equal(t, 200*8, st.Submitted)
	assert.Equal(t, st.Submitted, rec.Count(events.TypeNew))
	assert.Equal(t, st.Canceled, rec.Count(events.TypeCancel))
	assert.Equal(t, st.Trades, rec.Count(events.TypeTrade))
	assert.Positive(t, st.Trades)
	assert.Equal(t, st.Resting, app.Book.Len())

	if st.HasBid && st.HasAsk {
		assert.Less(t, st.BestBid, st.BestAsk)
	}

	// sequence numbers are gapless and timestamps never go backwards
	evs := rec.Events()
	for i, e := range evs {
		assert.Equal(t, uint64(i+1), e.Seq)
		if i > 0 {
			assert.False(t, e.Timestamp.Before(evs[i-1].Timestamp), "seq %d", e.Seq)
		}
	}
}

func TestAppRunIsReproducible(t *testing.T) {
	run := func() []events.Event {
		app := newTestApp(t, testConfig(t))
		_, err := app.Run(context.Background())
		require.NoError(t, err)
		return app.Recorder.Events()
	}
	assert.Equal(t, run(), run())
}

func TestAppSaveWritesParquet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.Rounds = 20
	app := newTestApp(t, cfg)
	_, err := app.Run(context.Background())
	require.NoError(t, err)

	n, err := app.Save()
	require.NoError(t, err)
	assert.Equal(t, app.Recorder.Len(), n)

	rows, err := storage.ReadParquet(cfg.Output.Parquet)
	require.NoError(t, err)
	assert.Len(t, rows, n)
}

func TestAppWiresConfiguredOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Sim.Rounds = 30
	cfg.Output.Journal = filepath.Join(dir, "journal", "events.jsonl")
	cfg.Output.PebbleDir = filepath.Join(dir, "pebble")
	reg := prometheus.NewRegistry()

	app, err := NewApp(cfg, zaptest.NewLogger(t), WithRegisterer(reg))
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	require.NoError(t, err)

	total := app.Recorder.Len()
	n, err := app.Store().Count()
	require.NoError(t, err)
	assert.Equal(t, total, n)
	assert.Equal(t, float64(app.Recorder.Count(events.TypeNew)),
		testutil.ToFloat64(app.Metrics().Events.WithLabelValues("NEW")))

	require.NoError(t, app.Close())

	rows, dropped, err := storage.ReadJournal(cfg.Output.Journal)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Len(t, rows, total)
}

func TestAppEnforcedRulesKeepLots(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.Rounds = 50
	cfg.Market.LotSize = 10
	cfg.Market.EnforceRules = true
	app := newTestApp(t, cfg)

	_, err := app.Run(context.Background())
	require.NoError(t, err)
	for _, e := range app.Recorder.Events() {
		assert.Zero(t, e.Quantity%10, "seq %d", e.Seq)
	}
}

func TestAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.Clock = "lunar"
	_, err := NewApp(cfg, nil)
	assert.Error(t, err)
}

func TestAppStopsOnSinkFailure(t *testing.T) {
	boom := errors.New("sink down")
	calls := 0
	failing := events.SinkFunc(func(e events.Event) error {
		calls++
		if calls == 10 {
			return boom
		}
		return nil
	})
	app := newTestApp(t, testConfig(t), WithSink(failing))

	st, err := app.Run(context.Background())
	assert.ErrorIs(t, err, orderbook.ErrNotify)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, st.Rounds, 200)
	require.NoError(t, app.Book.Validate())
}

// scripted acts with a fixed function.
type scripted struct {
	id  string
	act func(ctx context.Context, b agents.Book) error
}

func (s scripted) ID() string { return s.id }
func (s scripted) Act(ctx context.Context, b agents.Book) error {
	return s.act(ctx, b)
}

func TestRunnerStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	book := orderbook.NewOrderBook(nil, nil)
	n := 0
	a := scripted{id: "x", act: func(context.Context, agents.Book) error {
		n++
		if n == 3 {
			cancel()
		}
		return nil
	}}

	r := &Runner{Book: book, Agents: []agents.Agent{a}, Rounds: 10}
	st, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, st.Rounds)
}

func TestRunnerPacesWithClock(t *testing.T) {
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	clock := util.NewSimClock(start, 0)
	book := orderbook.NewOrderBook(nil, clock)
	a := scripted{id: "x", act: func(context.Context, agents.Book) error { return nil }}

	r := &Runner{Book: book, Agents: []agents.Agent{a}, Rounds: 4, Interval: time.Second, Clock: clock}
	st, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Rounds)
	// no pause after the last round
	assert.Equal(t, start.Add(3*time.Second), clock.Peek())
}

func TestRunnerReportsAgentError(t *testing.T) {
	book := orderbook.NewOrderBook(nil, nil)
	a := scripted{id: "bad", act: func(_ context.Context, b agents.Book) error {
		return b.Submit(&orderbook.Order{ID: "", Side: orderbook.Buy, Price: 1, Qty: 1})
	}}

	r := &Runner{Book: book, Agents: []agents.Agent{a}, Rounds: 5}
	st, err := r.Run(context.Background())
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)
	assert.ErrorContains(t, err, "agent bad")
	assert.Equal(t, 0, st.Rounds)
}

func TestAppReusedOutputsHoldOnlyLatestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Sim.Rounds = 10
	cfg.Output.Journal = filepath.Join(dir, "events.jsonl")
	cfg.Output.PebbleDir = filepath.Join(dir, "pebble")

	var total int
	for seed := int64(1); seed <= 2; seed++ {
		cfg.Sim.Seed = seed
		app, err := NewApp(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = app.Run(context.Background())
		require.NoError(t, err)
		total = app.Recorder.Len()
		require.NoError(t, app.Close())
	}

	store, err := storage.NewEventStore(cfg.Output.PebbleDir)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, total, n)

	noise, err := store.LoadAgentEvents("noise_0")
	require.NoError(t, err)
	for _, e := range noise {
		if e.Type == events.TypeTrade {
			assert.Contains(t, []string{e.BuyAgent, e.SellAgent}, "noise_0", "seq %d", e.Seq)
		} else {
			assert.Equal(t, "noise_0", e.AgentID, "seq %d", e.Seq)
		}
	}

	rows, _, err := storage.ReadJournal(cfg.Output.Journal)
	require.NoError(t, err)
	assert.Len(t, rows, total)
}

func TestAppCloseHaltsTrading(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sim.Rounds = 5
	app, err := NewApp(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = app.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.Close())

	resting := app.Book.Len()
	err = app.Book.Submit(&orderbook.Order{ID: "late", Owner: "x", Side: orderbook.Buy, Price: 10000, Qty: 1})
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)
	assert.Equal(t, resting, app.Book.Len())
}

func TestAppRejectsPriceBandsOffTheTickGrid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*params.Config)
	}{
		{"tick coarser than prices", func(c *params.Config) { c.Market.TickSize = decimal.NewFromInt(1000) }},
		{"layers reach below zero", func(c *params.Config) { c.Sim.SpoofLayers = 600 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := NewApp(cfg, zaptest.NewLogger(t))
			assert.ErrorContains(t, err, "ticks at tick size")
		})
	}
}
