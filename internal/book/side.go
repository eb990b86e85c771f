package book

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"fastlob/internal/enums"
	"fastlob/internal/order"
)

// Limits is the price-ordered map backing a Side, reusing the teacher's
// btree.BTreeG pattern (fenrir/internal/engine/orderbook.go's
// PriceLevels) keyed on *Limit instead of *PriceLevel.
type Limits = btree.BTreeG[*Limit]

// Side holds every resting order on one side of the book (ask or bid),
// ordered by price with the best price first regardless of which side
// this is — asks ascend, bids descend, per spec.md §4.4's "two ordered
// maps with opposite comparators".
type Side struct {
	mu     sync.Mutex
	tag    enums.Side
	limits *Limits

	volume      decimal.Decimal // sum of Volume() across all limits
	validOrders int
}

// Lock acquires this side's mutex. Per spec.md §5, the book never
// holds both sides' locks at once during matching: the dispatch layer
// acquires the opposite side, runs the engine, releases it, then
// acquires the own side to place any residual.
func (s *Side) Lock() { s.mu.Lock() }

// Unlock releases this side's mutex.
func (s *Side) Unlock() { s.mu.Unlock() }

// NewSide builds an empty Side for the given tag (Ask or Bid).
func NewSide(tag enums.Side) *Side {
	var less func(a, b *Limit) bool
	if tag == enums.Ask {
		less = func(a, b *Limit) bool { return a.price.LessThan(b.price) }
	} else {
		less = func(a, b *Limit) bool { return a.price.GreaterThan(b.price) }
	}
	return &Side{
		tag:    tag,
		limits: btree.NewBTreeG(less),
		volume: decimal.Zero,
	}
}

func (s *Side) Tag() enums.Side { return s.tag }

// Best returns the best (closest to marketable) limit, or nil if the
// side is empty.
func (s *Side) Best() *Limit {
	l, ok := s.limits.Min()
	if !ok {
		return nil
	}
	return l
}

// NLimits returns the number of distinct price levels with at least
// one valid order.
func (s *Side) NLimits() int { return s.limits.Len() }

// Volume is the aggregate quantity resting on this side.
func (s *Side) Volume() decimal.Decimal { return s.volume }

// NOrders is the aggregate count of valid orders resting on this side.
func (s *Side) NOrders() int { return s.validOrders }

// limitAt returns the Limit at price, creating it if absent.
func (s *Side) limitAt(price decimal.Decimal) *Limit {
	probe := &Limit{price: price}
	if found, ok := s.limits.Get(probe); ok {
		return found
	}
	l := NewLimit(price)
	s.limits.Set(l)
	return l
}

// Place enqueues o at its price level, creating the level if needed.
func (s *Side) Place(o *order.Order) {
	l := s.limitAt(o.Price())
	l.Append(o)
	s.volume = s.volume.Add(o.Quantity())
	s.validOrders++
}

// removeIfEmpty deletes l from the tree once it has no valid orders
// left, so Best()/NLimits() never see stale empty levels.
func (s *Side) removeIfEmpty(l *Limit) {
	if l.Empty() {
		s.limits.Delete(l)
	}
}

// ConsumeBest fully consumes the best limit (every order in it fills)
// and removes it from the tree, returning the total quantity consumed.
// Used by the matching engine's Phase A (spec.md §4.5).
func (s *Side) ConsumeBest() decimal.Decimal {
	l := s.Best()
	if l == nil {
		return decimal.Zero
	}
	n := l.validOrders
	consumed := l.MatchAll()
	s.volume = s.volume.Sub(consumed)
	if s.volume.IsNegative() {
		s.volume = decimal.Zero
	}
	s.validOrders -= n
	s.limits.Delete(l)
	return consumed
}

// PopFromBest removes and returns the oldest valid order from the best
// limit, deleting the limit from the tree if it becomes empty. Used by
// the matching engine's Phase B (spec.md §4.5): consuming whole resting
// orders one at a time once the taker can no longer clear a full limit.
func (s *Side) PopFromBest() *order.Order {
	l := s.Best()
	if l == nil {
		return nil
	}
	o := l.PopFront()
	if o == nil {
		s.removeIfEmpty(l)
		return nil
	}
	s.volume = s.volume.Sub(o.Quantity())
	if s.volume.IsNegative() {
		s.volume = decimal.Zero
	}
	s.validOrders--
	s.removeIfEmpty(l)
	return o
}

// PeekBestOrder returns the oldest valid order at the best limit
// without removing it, or nil if the side is empty. Used by the
// matching engine's Phase C to partially fill a single resting order.
func (s *Side) PeekBestOrder() *order.Order {
	l := s.Best()
	if l == nil {
		return nil
	}
	return l.Front()
}

// ReduceBestOrder is called after Phase C partially fills the order
// returned by PeekBestOrder, to keep the best limit's and the side's
// aggregate volume counters consistent.
func (s *Side) ReduceBestOrder(amount decimal.Decimal) {
	l := s.Best()
	if l == nil {
		return
	}
	l.ReduceVolume(amount)
	s.volume = s.volume.Sub(amount)
	if s.volume.IsNegative() {
		s.volume = decimal.Zero
	}
	s.removeIfEmpty(l)
}

// Cancel tombstones o within its limit, updating aggregate counters.
// O(1): no scan of the limit's FIFO, no scan of the tree beyond the
// single Get by price (spec.md §4.3).
func (s *Side) Cancel(o *order.Order) bool {
	probe := &Limit{price: o.Price()}
	l, ok := s.limits.Get(probe)
	if !ok {
		return false
	}
	qty := o.Quantity()
	if !l.Cancel(o) {
		return false
	}
	s.volume = s.volume.Sub(qty)
	if s.volume.IsNegative() {
		s.volume = decimal.Zero
	}
	s.validOrders--
	s.removeIfEmpty(l)
	return true
}

// RemoveFakeAt drops every synthetic (Fake tif) order resting at
// price, leaving any real client orders untouched. Used by the
// snapshot/update ingestion path (spec.md §4.8) before re-inserting
// fresh synthetic depth at that price.
func (s *Side) RemoveFakeAt(price decimal.Decimal) {
	probe := &Limit{price: price}
	l, ok := s.limits.Get(probe)
	if !ok {
		return
	}
	kept := l.orders[:0]
	for _, o := range l.orders[l.head:] {
		if o.TIF() == enums.Fake {
			if o.Valid() {
				s.volume = s.volume.Sub(o.Quantity())
				s.validOrders--
				o.SetStatus(enums.Canceled)
			}
			continue
		}
		kept = append(kept, o)
	}
	l.orders = kept
	l.head = 0
	l.volume = decimal.Zero
	l.validOrders = 0
	for _, o := range l.orders {
		if o.Valid() {
			l.volume = l.volume.Add(o.Quantity())
			l.validOrders++
		}
	}
	s.removeIfEmpty(l)
}

// DeleteLimit removes the entire price level at price, real orders
// included — used by the update path when a level's volume drops to
// zero (spec.md §4.8's explicit "matches source behavior" note).
func (s *Side) DeleteLimit(price decimal.Decimal) {
	probe := &Limit{price: price}
	l, ok := s.limits.Get(probe)
	if !ok {
		return
	}
	for _, o := range l.orders[l.head:] {
		if o.Valid() {
			s.volume = s.volume.Sub(o.Quantity())
			s.validOrders--
			o.SetStatus(enums.Canceled)
		}
	}
	s.limits.Delete(l)
}

// Walk visits limits best-first, calling fn on each until fn returns
// false or the side is exhausted.
func (s *Side) Walk(fn func(l *Limit) bool) {
	s.limits.Scan(func(l *Limit) bool {
		return fn(l)
	})
}

// IsMarketable reports whether an incoming order at price would cross
// the current best of this side — i.e. this side has liquidity willing
// to trade against it. spec.md §4.4/§9's first specialized predicate.
func (s *Side) IsMarketable(price decimal.Decimal) bool {
	best := s.Best()
	if best == nil {
		return false
	}
	if s.tag == enums.Ask {
		return !price.LessThan(best.price) // incoming bid price >= best ask
	}
	return !price.GreaterThan(best.price) // incoming ask price <= best bid
}

// OutOfPrice reports whether price lies beyond this side's best price
// in the non-marketable direction, meaning the matching walk must stop
// advancing into worse levels than price allows. spec.md §9's second
// specialized predicate.
func (s *Side) OutOfPrice(price decimal.Decimal) bool {
	best := s.Best()
	if best == nil {
		return true
	}
	if s.tag == enums.Ask {
		return best.price.GreaterThan(price)
	}
	return best.price.LessThan(price)
}

// FOKSatisfied reports whether this side holds at least qty of
// cumulative volume at prices no worse than limitPrice, used by the
// engine's all-or-nothing pre-check (spec.md §4.6's FOK pre-check).
// limitPrice nil means no limit (a market FOK order).
func (s *Side) FOKSatisfied(qty decimal.Decimal, limitPrice *decimal.Decimal) bool {
	cum := decimal.Zero
	satisfied := false
	s.limits.Scan(func(l *Limit) bool {
		if limitPrice != nil {
			if s.tag == enums.Ask && l.price.GreaterThan(*limitPrice) {
				return false
			}
			if s.tag == enums.Bid && l.price.LessThan(*limitPrice) {
				return false
			}
		}
		cum = cum.Add(l.Volume())
		if !cum.LessThan(qty) {
			satisfied = true
			return false
		}
		return true
	})
	return satisfied
}
