package orderbook

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/multierr"

	"github.com/uhyunpark/l3sim/pkg/util"
)

var (
	// ErrInvalidOrder is returned by Submit when an order is rejected. The book
	// is left untouched and no notification is sent.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrNotify wraps sink failures. The operation that triggered the
	// notification has already been applied.
	ErrNotify = errors.New("event sink notification failed")
)

// Validator applies extra admission rules (lot size, market status) on top of
// the book's own checks.
type Validator func(o *Order) error

type PriceLevel struct {
	Price  Price
	Qty    int64 // total qty at this price level
	Orders int
}

// Stats are lifetime counters of a book.
type Stats struct {
	Submitted int
	Canceled  int
	Filled    int
	Trades    int
	TradedQty int64
}

// OrderBook is a single-asset L3 book with price-time priority.
//
// It has no internal locking: callers must serialize Submit, Cancel and the
// query methods.
type OrderBook struct {
	// Heap-based best price tracking with lazy eviction of empty levels
	bidHeap *priceHeap
	askHeap *priceHeap

	// Price level queues (FIFO matching at each price)
	bids map[Price][]*Order
	asks map[Price][]*Order

	orders map[OrderID]*Order   // live orders
	index  map[OrderID]struct{} // every id ever accepted

	trades    []Trade
	lastPrice Price
	stats     Stats

	sink  EventSink
	clock util.Clock

	Validator Validator
}

func NewOrderBook(sink EventSink, clock util.Clock) *OrderBook {
	if sink == nil {
		sink = NopSink{}
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &OrderBook{
		bidHeap: newBidHeap(),
		askHeap: newAskHeap(),
		bids:    make(map[Price][]*Order),
		asks:    make(map[Price][]*Order),
		orders:  make(map[OrderID]*Order),
		index:   make(map[OrderID]struct{}),
		sink:    sink,
		clock:   clock,
	}
}

func (ob *OrderBook) validate(o *Order) error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if o.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidOrder)
	}
	if !o.Side.Valid() {
		return fmt.Errorf("%w: order %s has side %d", ErrInvalidOrder, o.ID, o.Side)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: order %s quantity must be positive, got %d", ErrInvalidOrder, o.ID, o.Qty)
	}
	if o.Price <= 0 {
		return fmt.Errorf("%w: order %s price must be positive, got %d", ErrInvalidOrder, o.ID, o.Price)
	}
	if _, seen := ob.index[o.ID]; seen {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidOrder, o.ID)
	}
	if ob.Validator != nil {
		if err := ob.Validator(o); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
		}
	}
	return nil
}

// Submit rests a copy of o on its side of the book, reports it to the sink and
// then matches until the book is no longer crossed.
func (ob *OrderBook) Submit(o *Order) error {
	if err := ob.validate(o); err != nil {
		return err
	}

	cp := *o
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = ob.clock.Now()
	}
	ob.index[cp.ID] = struct{}{}
	ob.orders[cp.ID] = &cp
	if cp.Side == Buy {
		ob.addBid(&cp)
	} else {
		ob.addAsk(&cp)
	}
	ob.stats.Submitted++

	errs := ob.sink.OnNew(cp.CreatedAt, cp)
	errs = multierr.Append(errs, ob.match())
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrNotify, errs)
	}
	return nil
}

func (ob *OrderBook) addBid(o *Order) {
	ob.bids[o.Price] = append(ob.bids[o.Price], o)
	ob.bidHeap.track(o.Price)
}

func (ob *OrderBook) addAsk(o *Order) {
	ob.asks[o.Price] = append(ob.asks[o.Price], o)
	ob.askHeap.track(o.Price)
}

// Cancel removes a live order. Unknown, filled and already canceled ids are
// ignored without error.
func (ob *OrderBook) Cancel(id OrderID) error {
	o, ok := ob.orders[id]
	if !ok {
		return nil
	}
	delete(ob.orders, id)

	levels := ob.levels(o.Side)
	queue := levels[o.Price]
	if i := slices.Index(queue, o); i >= 0 {
		queue = slices.Delete(queue, i, i+1)
	}
	if len(queue) == 0 {
		// the heap entry stays behind and is evicted by the next best-price lookup
		delete(levels, o.Price)
	} else {
		levels[o.Price] = queue
	}
	ob.stats.Canceled++

	if err := ob.sink.OnCancel(ob.clock.Now(), *o); err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return nil
}

func (ob *OrderBook) levels(s Side) map[Price][]*Order {
	if s == Buy {
		return ob.bids
	}
	return ob.asks
}

// match crosses the heads of the best bid and best ask queues until one side
// is empty or the best bid is below the best ask. Every trade prints at the
// best ask price, whichever side arrived last.
func (ob *OrderBook) match() error {
	var errs error
	for {
		bidP, ok := ob.bestBid()
		if !ok {
			break
		}
		askP, ok := ob.bestAsk()
		if !ok || bidP < askP {
			break
		}

		buy := ob.bids[bidP][0]
		sell := ob.asks[askP][0]
		qty := min(buy.Qty, sell.Qty)
		buy.Qty -= qty
		sell.Qty -= qty

		ob.stats.Trades++
		ob.stats.TradedQty += qty
		t := Trade{
			Seq:         uint64(ob.stats.Trades),
			Timestamp:   ob.clock.Now(),
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Buyer:       buy.Owner,
			Seller:      sell.Owner,
			Price:       askP,
			Qty:         qty,
		}
		ob.trades = append(ob.trades, t)
		ob.lastPrice = askP
		errs = multierr.Append(errs, ob.sink.OnTrade(t.Timestamp, t))

		if buy.Qty == 0 {
			ob.popHead(ob.bids, bidP)
		}
		if sell.Qty == 0 {
			ob.popHead(ob.asks, askP)
		}
	}
	return errs
}

// popHead retires the filled order at the front of the queue at p.
func (ob *OrderBook) popHead(levels map[Price][]*Order, p Price) {
	queue := levels[p]
	head := queue[0]
	queue[0] = nil
	queue = queue[1:]
	if len(queue) == 0 {
		delete(levels, p)
	} else {
		levels[p] = queue
	}
	delete(ob.orders, head.ID)
	ob.stats.Filled++
}

// bestBid returns the highest bid price with resting orders, discarding stale
// heap entries on the way.
func (ob *OrderBook) bestBid() (Price, bool) {
	return ob.best(ob.bidHeap, ob.bids)
}

// bestAsk returns the lowest ask price with resting orders.
func (ob *OrderBook) bestAsk() (Price, bool) {
	return ob.best(ob.askHeap, ob.asks)
}

func (ob *OrderBook) best(h *priceHeap, levels map[Price][]*Order) (Price, bool) {
	for {
		p, ok := h.peek()
		if !ok {
			return 0, false
		}
		if len(levels[p]) > 0 {
			return p, true
		}
		h.discard()
	}
}

// BestBid returns the highest resting buy price.
func (ob *OrderBook) BestBid() (Price, bool) { return ob.bestBid() }

// BestAsk returns the lowest resting sell price.
func (ob *OrderBook) BestAsk() (Price, bool) { return ob.bestAsk() }

// Order returns a copy of a live order.
func (ob *OrderBook) Order(id OrderID) (Order, bool) {
	o, ok := ob.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Len is the number of live orders.
func (ob *OrderBook) Len() int { return len(ob.orders) }

// LastPrice returns the price of the most recent trade.
func (ob *OrderBook) LastPrice() (Price, bool) {
	return ob.lastPrice, len(ob.trades) > 0
}

// Trades returns a copy of the trade history.
func (ob *OrderBook) Trades() []Trade {
	return slices.Clone(ob.trades)
}

func (ob *OrderBook) Stats() Stats { return ob.stats }

// Depth aggregates the best n levels of one side, best price first. n <= 0
// returns every level.
func (ob *OrderBook) Depth(s Side, n int) []PriceLevel {
	levels := make([]PriceLevel, 0, len(ob.levels(s)))
	for price, orders := range ob.levels(s) {
		var totalQty int64
		for _, o := range orders {
			totalQty += o.Qty
		}
		levels = append(levels, PriceLevel{Price: price, Qty: totalQty, Orders: len(orders)})
	}

	sort.Slice(levels, func(i, j int) bool {
		if s == Buy {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})

	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// Validate checks the structural invariants of the book.
func (ob *OrderBook) Validate() error {
	seen := 0
	for _, side := range []Side{Buy, Sell} {
		h := ob.askHeap
		if side == Buy {
			h = ob.bidHeap
		}
		for price, queue := range ob.levels(side) {
			if len(queue) == 0 {
				return fmt.Errorf("empty %s level %d left in book", side, price)
			}
			if !h.tracks(price) {
				return fmt.Errorf("%s level %d missing from price heap", side, price)
			}
			for _, o := range queue {
				if o.Side != side || o.Price != price {
					return fmt.Errorf("order %s queued at %s %d", o, side, price)
				}
				if o.Qty <= 0 {
					return fmt.Errorf("order %s has non-positive quantity", o)
				}
				if ob.orders[o.ID] != o {
					return fmt.Errorf("order %s queued but not indexed", o)
				}
				seen++
			}
		}
	}
	if seen != len(ob.orders) {
		return fmt.Errorf("%d orders indexed, %d queued", len(ob.orders), seen)
	}

	bid, hasBid := ob.bestBid()
	ask, hasAsk := ob.bestAsk()
	if hasBid && hasAsk && bid >= ask {
		return fmt.Errorf("book crossed: bid %d >= ask %d", bid, ask)
	}
	return nil
}
