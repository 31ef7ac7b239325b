package orderbook

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uhyunpark/l3sim/pkg/util"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) Valid() bool { return s == Buy || s == Sell }

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// OrderID is an opaque token, unique for the lifetime of a book.
type OrderID string

// Price is an integer number of ticks. Conversion to and from decimal
// prices lives in the market package.
type Price int64

// Order is a single limit order. Once submitted, the book holds its own copy
// and is the only writer of Qty.
type Order struct {
	ID        OrderID
	Owner     string
	Side      Side
	Price     Price
	Qty       int64
	CreatedAt time.Time
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d@%d (%s)", o.ID, o.Side, o.Qty, o.Price, o.Owner)
}

// Trade is one execution between the heads of the best bid and best ask queues.
type Trade struct {
	Seq         uint64
	Timestamp   time.Time
	BuyOrderID  OrderID
	SellOrderID OrderID
	Buyer       string
	Seller      string
	Price       Price
	Qty         int64
}

// IDSource hands out order ids. Implementations must never repeat a value.
type IDSource func() OrderID

// UUIDSource draws random (v4) uuids from r. Feeding it a seeded rand.Rand
// makes id sequences reproducible. A nil r uses crypto randomness. It panics
// if r fails, since switching sources would silently break reproducibility.
func UUIDSource(r io.Reader) IDSource {
	if r == nil {
		return func() OrderID { return OrderID(uuid.NewString()) }
	}
	return func() OrderID {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			panic(fmt.Errorf("uuid source: %w", err))
		}
		return OrderID(id.String())
	}
}

// SequenceSource returns prefix1, prefix2, ...
func SequenceSource(prefix string) IDSource {
	var n uint64
	return func() OrderID {
		n++
		return OrderID(fmt.Sprintf("%s%d", prefix, n))
	}
}

// Factory stamps new orders with an id and a creation time.
type Factory struct {
	ids   IDSource
	clock util.Clock
}

func NewFactory(ids IDSource, clock util.Clock) *Factory {
	if ids == nil {
		ids = UUIDSource(nil)
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Factory{ids: ids, clock: clock}
}

func (f *Factory) New(owner string, side Side, price Price, qty int64) *Order {
	return &Order{
		ID:        f.ids(),
		Owner:     owner,
		Side:      side,
		Price:     price,
		Qty:       qty,
		CreatedAt: f.clock.Now(),
	}
}
