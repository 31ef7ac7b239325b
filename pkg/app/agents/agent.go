package agents

import (
	"context"
	"math/rand"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
)

// Book is the part of the order book an agent may touch.
type Book interface {
	Submit(o *orderbook.Order) error
	Cancel(id orderbook.OrderID) error
}

// Pricer maps a raw float price onto the book's tick grid.
type Pricer interface {
	FloatToTicks(price float64) orderbook.Price
}

// Agent is a simulated trader. Act is called once per round.
type Agent interface {
	ID() string
	Act(ctx context.Context, book Book) error
}

// Quoter is implemented by agents that can report the raw price band they
// quote in, so callers can check it against the tick grid.
type Quoter interface {
	PriceRange() (lo, hi float64)
}

// Env is what every agent needs to build orders.
type Env struct {
	Factory *orderbook.Factory
	Pricer  Pricer
	Rand    *rand.Rand
	Lot     int64 // quantities are drawn in multiples of Lot
}

func (e Env) lot() int64 {
	if e.Lot <= 0 {
		return 1
	}
	return e.Lot
}

// side flips a fair coin.
func (e Env) side() orderbook.Side {
	if e.Rand.Intn(2) == 0 {
		return orderbook.Buy
	}
	return orderbook.Sell
}

// uniform draws from [lo, hi).
func (e Env) uniform(lo, hi float64) float64 {
	return lo + e.Rand.Float64()*(hi-lo)
}

// qty draws a whole quantity in [lo, hi] lots.
func (e Env) qty(lo, hi int64) int64 {
	return (lo + e.Rand.Int63n(hi-lo+1)) * e.lot()
}
