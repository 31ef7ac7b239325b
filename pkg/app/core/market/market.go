package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
)

// MarketStatus defines the trading status of a market
type MarketStatus int8

const (
	Active MarketStatus = iota // Trading enabled
	Paused                     // Trading halted
)

func (ms MarketStatus) String() string {
	switch ms {
	case Active:
		return "Active"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

var ErrMarketRule = errors.New("market rule violated")

// Market describes the single instrument traded in a simulation.
type Market struct {
	Symbol string
	Status MarketStatus

	// TickSize: Minimum price increment (e.g., 0.01)
	// All prices inside the book are integer ticks
	TickSize decimal.Decimal

	// LotSize: orders must be a whole multiple of this many units
	LotSize int64

	MinOrderSize int64 // in units
	MaxOrderSize int64 // in units
}

// NewMarket creates a new market with validation
func NewMarket(symbol string, params Params) (*Market, error) {
	m := &Market{
		Symbol:       symbol,
		Status:       Active,
		TickSize:     params.TickSize,
		LotSize:      params.LotSize,
		MinOrderSize: params.MinOrderSize,
		MaxOrderSize: params.MaxOrderSize,
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market params: %w", err)
	}

	return m, nil
}

// Validate checks market parameter sanity
func (m *Market) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !m.TickSize.IsPositive() {
		return fmt.Errorf("tick size must be positive")
	}
	if m.LotSize <= 0 {
		return fmt.Errorf("lot size must be positive")
	}
	if m.MinOrderSize <= 0 {
		return fmt.Errorf("min order size must be positive")
	}
	if m.MaxOrderSize <= 0 {
		return fmt.Errorf("max order size must be positive")
	}
	if m.MinOrderSize > m.MaxOrderSize {
		return fmt.Errorf("min order size cannot exceed max order size")
	}
	return nil
}

// ToTicks converts a decimal price to the nearest whole tick.
// Example: 100.237 with TickSize=0.01 → 10024 ticks
func (m *Market) ToTicks(price decimal.Decimal) orderbook.Price {
	return orderbook.Price(price.Div(m.TickSize).Round(0).IntPart())
}

// FloatToTicks converts a float price (e.g. drawn from a distribution) to ticks.
func (m *Market) FloatToTicks(price float64) orderbook.Price {
	return m.ToTicks(decimal.NewFromFloat(price))
}

// FromTicks converts integer ticks back to an exact decimal price
// Example: 10024 ticks with TickSize=0.01 → 100.24
func (m *Market) FromTicks(ticks orderbook.Price) decimal.Decimal {
	return decimal.NewFromInt(int64(ticks)).Mul(m.TickSize)
}

// Float converts ticks to float64 for reporting.
func (m *Market) Float(ticks orderbook.Price) float64 {
	return m.FromTicks(ticks).InexactFloat64()
}

// ValidateOrderSize checks if order size is within limits
func (m *Market) ValidateOrderSize(qty int64) error {
	if qty < m.MinOrderSize {
		return fmt.Errorf("%w: order size %d below minimum %d", ErrMarketRule, qty, m.MinOrderSize)
	}
	if qty > m.MaxOrderSize {
		return fmt.Errorf("%w: order size %d exceeds maximum %d", ErrMarketRule, qty, m.MaxOrderSize)
	}
	if qty%m.LotSize != 0 {
		return fmt.Errorf("%w: order size %d not a multiple of lot size %d", ErrMarketRule, qty, m.LotSize)
	}
	return nil
}

// CheckStatus rejects every order while the market is not active.
func (m *Market) CheckStatus(*orderbook.Order) error {
	if m.Status != Active {
		return fmt.Errorf("%w: market %s is not active (status: %s)", ErrMarketRule, m.Symbol, m.Status)
	}
	return nil
}

// ValidateOrder performs all order validations. Its signature matches
// orderbook.Validator so it can be installed on a book.
func (m *Market) ValidateOrder(o *orderbook.Order) error {
	if err := m.CheckStatus(o); err != nil {
		return err
	}
	return m.ValidateOrderSize(o.Qty)
}
