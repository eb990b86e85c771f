// Package book implements one side of the order book: price-ordered
// limits, each a FIFO queue of resting orders with lazy tombstoning on
// cancellation (spec.md §4.3/§4.4).
package book

import (
	"github.com/shopspring/decimal"

	"fastlob/internal/enums"
	"fastlob/internal/order"
)

// Limit is a single price level: a FIFO queue of orders sharing one
// price. Canceled orders are never removed from the middle of the
// queue; they are skipped over lazily as the head advances
// (fastlob/lob/orderbook.py's Limit never re-searches the queue on
// cancel, matching spec.md §4.3's O(1) cancellation requirement).
type Limit struct {
	price  decimal.Decimal
	orders []*order.Order
	head   int // index of the first order that might still be valid

	volume      decimal.Decimal // sum of Quantity() over valid orders
	validOrders int
}

// NewLimit creates an empty price level at price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		price:  price,
		volume: decimal.Zero,
	}
}

func (l *Limit) Price() decimal.Decimal { return l.price }
func (l *Limit) Volume() decimal.Decimal { return l.volume }
func (l *Limit) ValidOrders() int        { return l.validOrders }

// Empty reports whether the limit has no more valid orders (it may
// still hold tombstoned entries that haven't been advanced past yet).
func (l *Limit) Empty() bool { return l.validOrders == 0 }

// Append enqueues o at the tail of the FIFO.
func (l *Limit) Append(o *order.Order) {
	l.orders = append(l.orders, o)
	l.volume = l.volume.Add(o.Quantity())
	l.validOrders++
}

// advanceHead skips past any tombstoned (invalid) orders at the head
// of the queue.
func (l *Limit) advanceHead() {
	for l.head < len(l.orders) && !l.orders[l.head].Valid() {
		l.head++
	}
}

// Front returns the oldest still-valid order without removing it, or
// nil if the limit is empty.
func (l *Limit) Front() *order.Order {
	l.advanceHead()
	if l.head >= len(l.orders) {
		return nil
	}
	return l.orders[l.head]
}

// PopFront removes and returns the oldest still-valid order, taking
// its remaining quantity out of the limit's volume. Callers must not
// assume positional stability across cancellations.
func (l *Limit) PopFront() *order.Order {
	o := l.Front()
	if o == nil {
		return nil
	}
	l.head++
	l.validOrders--
	l.ReduceVolume(o.Quantity())
	return o
}

// ReduceVolume lowers the aggregate volume counter by amount, used when
// the order at the front of the queue is popped or partially filled,
// to keep the counter consistent without rescanning the queue.
func (l *Limit) ReduceVolume(amount decimal.Decimal) {
	l.volume = l.volume.Sub(amount)
	if l.volume.IsNegative() {
		l.volume = decimal.Zero
	}
}

// Cancel tombstones o if it is still valid, in O(1): it flips the
// order's own status rather than searching the queue, so it does not
// check that o is actually queued in this limit. The limit's aggregate counters are adjusted
// immediately; the slot itself is skipped over lazily by advanceHead
// the next time the head is read.
func (l *Limit) Cancel(o *order.Order) bool {
	if !o.Valid() {
		return false
	}
	l.volume = l.volume.Sub(o.Quantity())
	if l.volume.IsNegative() {
		l.volume = decimal.Zero
	}
	l.validOrders--
	o.SetStatus(enums.Canceled)
	return true
}

// MatchAll consumes every valid order in the limit as a single fill,
// marking each Filled and returning the total quantity consumed.
// Grounded on pylob/limit/limit.py's match_all: when a resting limit's
// entire volume is swept by a marketable taker, every order in it
// settles at once rather than order-by-order.
func (l *Limit) MatchAll() decimal.Decimal {
	total := decimal.Zero
	for {
		o := l.PopFront()
		if o == nil {
			break
		}
		qty := o.Quantity()
		total = total.Add(qty)
		o.Fill(qty)
	}
	l.volume = decimal.Zero
	return total
}
