package market

import "github.com/shopspring/decimal"

// Params is a helper struct for creating markets with all parameters
// This separates config from the runtime Market struct
type Params struct {
	TickSize     decimal.Decimal
	LotSize      int64
	MinOrderSize int64
	MaxOrderSize int64
}

// DefaultEquity mirrors a cent-ticked equity: 0.01 price increments, single
// share lots. Prices around 100 map to ~10000 ticks.
var DefaultEquity = Params{
	TickSize:     decimal.RequireFromString("0.01"),
	LotSize:      1,
	MinOrderSize: 1,
	MaxOrderSize: 1_000_000,
}

// Custom returns DefaultEquity with the given tick and lot size.
func Custom(tickSize decimal.Decimal, lotSize int64) Params {
	p := DefaultEquity
	p.TickSize = tickSize
	p.LotSize = lotSize
	if p.MinOrderSize < lotSize {
		p.MinOrderSize = lotSize
	}
	return p
}
