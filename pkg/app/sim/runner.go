package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/l3sim/pkg/app/agents"
	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
	"github.com/uhyunpark/l3sim/pkg/util"
)

// Book is what the runner drives and reports on.
type Book interface {
	agents.Book
	Stats() orderbook.Stats
	Len() int
	BestBid() (orderbook.Price, bool)
	BestAsk() (orderbook.Price, bool)
}

// Stats summarizes a run.
type Stats struct {
	Rounds    int
	Submitted int
	Canceled  int
	Filled    int
	Trades    int
	TradedQty int64
	Resting   int
	BestBid   orderbook.Price
	HasBid    bool
	BestAsk   orderbook.Price
	HasAsk    bool
}

// Runner lets every agent act once per round, in order.
type Runner struct {
	Book     Book
	Agents   []agents.Agent
	Rounds   int
	Interval time.Duration // pause between rounds, read from Clock
	Clock    util.Clock
	Log      *zap.SugaredLogger

	// LogEvery logs progress every N rounds (0 disables).
	LogEvery int
}

// Run executes the rounds. It stops early when ctx is done or an agent
// returns an error; the stats up to that point are returned either way.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	clock := r.Clock
	if clock == nil {
		clock = util.RealClock{}
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var st Stats
	for round := 0; round < r.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return r.snapshot(st), err
		}
		for _, a := range r.Agents {
			if err := a.Act(ctx, r.Book); err != nil {
				st.Rounds = round
				return r.snapshot(st), fmt.Errorf("round %d agent %s: %w", round, a.ID(), err)
			}
		}
		st.Rounds = round + 1

		if r.LogEvery > 0 && st.Rounds%r.LogEvery == 0 {
			bs := r.Book.Stats()
			log.Infow("round_progress",
				"round", st.Rounds,
				"resting", r.Book.Len(),
				"trades", bs.Trades,
				"traded_qty", bs.TradedQty,
			)
		}

		if r.Interval > 0 && st.Rounds < r.Rounds {
			select {
			case <-ctx.Done():
				return r.snapshot(st), ctx.Err()
			case <-clock.After(r.Interval):
			}
		}
	}
	return r.snapshot(st), nil
}

func (r *Runner) snapshot(st Stats) Stats {
	bs := r.Book.Stats()
	st.Submitted = bs.Submitted
	st.Canceled = bs.Canceled
	st.Filled = bs.Filled
	st.Trades = bs.Trades
	st.TradedQty = bs.TradedQty
	st.Resting = r.Book.Len()
	st.BestBid, st.HasBid = r.Book.BestBid()
	st.BestAsk, st.HasAsk = r.Book.BestAsk()
	return st
}
