// Package engine implements the matching algorithm: given a marketable
// taker order and the opposite side of the book, consume liquidity in
// three monotonic phases (spec.md §4.5).
package engine

import (
	"github.com/shopspring/decimal"

	"fastlob/internal/book"
	"fastlob/internal/enums"
	"fastlob/internal/order"
)

// ExecVolume accumulates per-price executed volume. Decimal values
// don't compare equal as map keys reliably (shopspring/decimal wraps
// an unexported *big.Int), so prices are keyed by their canonical
// string form; Each walks the decimal keys back out.
type ExecVolume struct {
	byPrice map[string]decimal.Decimal
	prices  map[string]decimal.Decimal
}

func newExecVolume() *ExecVolume {
	return &ExecVolume{
		byPrice: make(map[string]decimal.Decimal),
		prices:  make(map[string]decimal.Decimal),
	}
}

func (e *ExecVolume) add(price, amount decimal.Decimal) {
	key := price.String()
	e.prices[key] = price
	e.byPrice[key] = e.byPrice[key].Add(amount)
}

// At returns the executed volume at price.
func (e *ExecVolume) At(price decimal.Decimal) decimal.Decimal {
	return e.byPrice[price.String()]
}

// Each calls fn once per price with executed volume at that price.
func (e *ExecVolume) Each(fn func(price, volume decimal.Decimal)) {
	for key, price := range e.prices {
		fn(price, e.byPrice[key])
	}
}

// Len reports how many distinct prices were executed against.
func (e *ExecVolume) Len() int { return len(e.prices) }

// Outcome is the raw result of Execute, handed to internal/result to
// build the public MarketResult.
type Outcome struct {
	LimitsFilled int
	OrdersFilled int
	ExecVolume   *ExecVolume
}

// outOfPrice implements spec.md §4.5's predicate: for a BID buy,
// taker.price < p; for an ASK sell, taker.price > p.
func outOfPrice(taker *order.Order, p decimal.Decimal) bool {
	if taker.Side() == enums.Bid {
		return taker.Price().LessThan(p)
	}
	return taker.Price().GreaterThan(p)
}

// Execute walks opposite, consuming liquidity against taker until
// taker's quantity is exhausted or matching runs out of price.
// Precondition: taker is marketable against opposite (checked by the
// caller before acquiring opposite's lock). Callers hold opposite's
// lock for the duration of this call; Execute never touches taker's
// own side.
func Execute(taker *order.Order, opposite *book.Side) *Outcome {
	ev := newExecVolume()
	out := &Outcome{ExecVolume: ev}

	// Phase A — consume whole limits while the taker's remaining
	// quantity is at least the whole best limit's volume.
	for !taker.Quantity().IsZero() {
		best := opposite.Best()
		if best == nil {
			break
		}
		if outOfPrice(taker, best.Price()) {
			return out
		}
		if taker.Quantity().LessThan(best.Volume()) {
			break
		}
		limitVolume := best.Volume()
		validOrders := best.ValidOrders()
		ev.add(best.Price(), limitVolume)
		out.LimitsFilled++
		out.OrdersFilled += validOrders
		taker.Fill(limitVolume)
		opposite.ConsumeBest()
	}

	if taker.Quantity().IsZero() {
		return out
	}

	// Phase B — consume whole resting orders one at a time at the
	// (now possibly new) best limit.
	for {
		best := opposite.Best()
		if best == nil {
			return out
		}
		if outOfPrice(taker, best.Price()) {
			return out
		}
		head := opposite.PeekBestOrder()
		if head == nil {
			return out
		}
		if taker.Quantity().LessThan(head.Quantity()) {
			break
		}
		price := best.Price()
		headQty := head.Quantity()
		ev.add(price, headQty)
		out.OrdersFilled++
		taker.Fill(headQty)
		opposite.PopFromBest()
		head.Fill(headQty)
		if taker.Quantity().IsZero() {
			return out
		}
	}

	// Phase C — partial fill of the current head. By construction the
	// remaining taker quantity here is strictly smaller than the head's
	// quantity (Phase B only breaks out, never falls through, once that
	// holds), so this always has a head to fill against.
	best := opposite.Best()
	if best == nil {
		return out
	}
	price := best.Price()
	residual := taker.Quantity()
	ev.add(price, residual)
	out.OrdersFilled++
	opposite.ReduceBestOrder(residual)
	head := opposite.PeekBestOrder()
	if head != nil {
		head.Fill(residual)
	}
	taker.Fill(residual)

	return out
}
