package events

import (
	"time"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
)

// Type tags an event row.
type Type string

const (
	TypeNew    Type = "NEW"
	TypeCancel Type = "CANCEL"
	TypeTrade  Type = "TRADE"
)

// Event is one flat row of the L3 stream. Order events fill OrderID, AgentID
// and Side; trades fill BuyAgent and SellAgent plus both order ids.
type Event struct {
	Seq        uint64    `json:"seq" parquet:"seq"`
	Timestamp  time.Time `json:"timestamp" parquet:"timestamp"`
	Type       Type      `json:"event_type" parquet:"event_type"`
	OrderID    string    `json:"order_id,omitempty" parquet:"order_id,optional"`
	AgentID    string    `json:"agent_id,omitempty" parquet:"agent_id,optional"`
	Side       string    `json:"side,omitempty" parquet:"side,optional"`
	Price      float64   `json:"price" parquet:"price"`
	PriceTicks int64     `json:"price_ticks" parquet:"price_ticks"`
	Quantity   int64     `json:"quantity" parquet:"quantity"`
	BuyOrder   string    `json:"buy_order_id,omitempty" parquet:"buy_order_id,optional"`
	SellOrder  string    `json:"sell_order_id,omitempty" parquet:"sell_order_id,optional"`
	BuyAgent   string    `json:"buy_agent,omitempty" parquet:"buy_agent,optional"`
	SellAgent  string    `json:"sell_agent,omitempty" parquet:"sell_agent,optional"`
}

// Key identifies the event for partitioning: the order id, or the buy order
// id for trades.
func (e Event) Key() string {
	if e.Type == TypeTrade {
		return e.BuyOrder
	}
	return e.OrderID
}

// Sink consumes event rows.
type Sink interface {
	Record(e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event) error

func (f SinkFunc) Record(e Event) error { return f(e) }

// Formatter turns book ticks into a display price.
type Formatter interface {
	Float(ticks orderbook.Price) float64
}
