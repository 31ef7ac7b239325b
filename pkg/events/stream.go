package events

import (
	"time"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
)

// Stream adapts book notifications into numbered Event rows and hands each
// one to a Sink. It is the book's orderbook.EventSink.
type Stream struct {
	seq    uint64
	prices Formatter
	out    Sink
}

func NewStream(prices Formatter, out Sink) *Stream {
	return &Stream{prices: prices, out: out}
}

// Seq returns the number of rows emitted so far.
func (s *Stream) Seq() uint64 { return s.seq }

func (s *Stream) price(p orderbook.Price) float64 {
	if s.prices == nil {
		return float64(p)
	}
	return s.prices.Float(p)
}

func (s *Stream) emit(e Event) error {
	s.seq++
	e.Seq = s.seq
	return s.out.Record(e)
}

func (s *Stream) order(t Type, ts time.Time, o orderbook.Order) error {
	return s.emit(Event{
		Timestamp:  ts,
		Type:       t,
		OrderID:    string(o.ID),
		AgentID:    o.Owner,
		Side:       o.Side.String(),
		Price:      s.price(o.Price),
		PriceTicks: int64(o.Price),
		Quantity:   o.Qty,
	})
}

func (s *Stream) OnNew(ts time.Time, o orderbook.Order) error {
	return s.order(TypeNew, ts, o)
}

func (s *Stream) OnCancel(ts time.Time, o orderbook.Order) error {
	return s.order(TypeCancel, ts, o)
}

func (s *Stream) OnTrade(ts time.Time, t orderbook.Trade) error {
	return s.emit(Event{
		Timestamp:  ts,
		Type:       TypeTrade,
		Price:      s.price(t.Price),
		PriceTicks: int64(t.Price),
		Quantity:   t.Qty,
		BuyOrder:   string(t.BuyOrderID),
		SellOrder:  string(t.SellOrderID),
		BuyAgent:   t.Buyer,
		SellAgent:  t.Seller,
	})
}

var _ orderbook.EventSink = (*Stream)(nil)
