package agents

import (
	"context"
)

// NoiseTrader places one random limit order per round.
type NoiseTrader struct {
	id  string
	env Env

	MinPrice, MaxPrice float64
	MinQty, MaxQty     int64
}

func NewNoiseTrader(id string, env Env) *NoiseTrader {
	return &NoiseTrader{
		id:       id,
		env:      env,
		MinPrice: 95,
		MaxPrice: 105,
		MinQty:   1,
		MaxQty:   5,
	}
}

func (n *NoiseTrader) ID() string { return n.id }

func (n *NoiseTrader) PriceRange() (lo, hi float64) { return n.MinPrice, n.MaxPrice }

func (n *NoiseTrader) Act(ctx context.Context, book Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	side := n.env.side()
	price := n.env.Pricer.FloatToTicks(n.env.uniform(n.MinPrice, n.MaxPrice))
	qty := n.env.qty(n.MinQty, n.MaxQty)

	return book.Submit(n.env.Factory.New(n.id, side, price, qty))
}
