package orderbook

import "time"

// EventSink receives book notifications synchronously, in the order they
// happen. Orders and trades are passed by value; a sink may keep them.
// A returned error is reported to the caller of the operation that produced
// the notification, after the book state has already changed.
type EventSink interface {
	OnNew(ts time.Time, o Order) error
	OnCancel(ts time.Time, o Order) error
	OnTrade(ts time.Time, t Trade) error
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) OnNew(time.Time, Order) error    { return nil }
func (NopSink) OnCancel(time.Time, Order) error { return nil }
func (NopSink) OnTrade(time.Time, Trade) error  { return nil }

var _ EventSink = NopSink{}
