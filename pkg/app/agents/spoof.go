package agents

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
)

// SpoofTrader layers large orders around a random base price each round and
// pulls them all on its next turn.
type SpoofTrader struct {
	id     string
	env    Env
	active []orderbook.OrderID

	Layers           int
	Step             float64 // price distance between layers
	MinBase, MaxBase float64
	MinQty, MaxQty   int64
}

func NewSpoofTrader(id string, env Env) *SpoofTrader {
	return &SpoofTrader{
		id:      id,
		env:     env,
		Layers:  3,
		Step:    0.2,
		MinBase: 99,
		MaxBase: 101,
		MinQty:  50,
		MaxQty:  100,
	}
}

func (s *SpoofTrader) ID() string { return s.id }

// PriceRange covers the outermost layers on both sides of the base band.
func (s *SpoofTrader) PriceRange() (lo, hi float64) {
	spread := float64(s.Layers-1) * s.Step
	if spread < 0 {
		spread = 0
	}
	return s.MinBase - spread, s.MaxBase + spread
}

// Active returns the ids placed on the last turn.
func (s *SpoofTrader) Active() []orderbook.OrderID {
	return append([]orderbook.OrderID(nil), s.active...)
}

func (s *SpoofTrader) Act(ctx context.Context, book Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// filled or already canceled ids are no-ops on the book
	var errs error
	for _, id := range s.active {
		errs = multierr.Append(errs, book.Cancel(id))
	}
	s.active = s.active[:0]

	base := s.env.uniform(s.MinBase, s.MaxBase)
	for i := 0; i < s.Layers; i++ {
		side := s.env.side()
		offset := float64(i) * s.Step
		if side == orderbook.Buy {
			offset = -offset
		}
		o := s.env.Factory.New(s.id, side, s.env.Pricer.FloatToTicks(base+offset), s.env.qty(s.MinQty, s.MaxQty))

		err := book.Submit(o)
		if !errors.Is(err, orderbook.ErrInvalidOrder) {
			s.active = append(s.active, o.ID)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}
