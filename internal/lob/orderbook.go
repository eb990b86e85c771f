// Package lob wires the book, engine and result packages into the
// dispatch pipeline spec.md §4.6 describes: classify, pre-check,
// match-or-place, record. It also hosts the expiry reaper
// (spec.md §4.7) and the snapshot/update ingestion surface
// (spec.md §4.8).
package lob

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"fastlob/internal/book"
	"fastlob/internal/engine"
	"fastlob/internal/enums"
	"fastlob/internal/order"
	"fastlob/internal/result"
)

// ReaperInterval is how often the background reaper wakes to sweep
// expired GTD orders (spec.md §6's REAPER_INTERVAL ≈ 100ms).
var ReaperInterval = 100 * time.Millisecond

var (
	ErrNotRunning   = errors.New("lob: book is not running")
	ErrUnknownOrder = errors.New("lob: unknown order id")
)

// OrderBook is a single-instrument limit order book: two Sides, a
// by-id history and a GTD expiry index, dispatched through a pipeline
// that classifies each incoming order and routes it to the matching
// engine or directly onto its own side (spec.md §3/§4.6).
type OrderBook struct {
	name string

	asks *book.Side
	bids *book.Side

	byIDMu sync.Mutex
	byID   map[string]*order.Order

	expiry *expiryIndex

	aliveMu   sync.Mutex
	alive     bool
	startedAt time.Time

	t *tomb.Tomb
}

// New builds an idle OrderBook; call Start to begin accepting orders
// and running the expiry reaper.
func New(name string) *OrderBook {
	return &OrderBook{
		name:   name,
		asks:   book.NewSide(enums.Ask),
		bids:   book.NewSide(enums.Bid),
		byID:   make(map[string]*order.Order),
		expiry: newExpiryIndex(),
	}
}

// Start marks the book alive and launches the reaper goroutine,
// supervised with gopkg.in/tomb.v2 the way fenrir/internal/worker.go
// supervises its worker pool.
func (ob *OrderBook) Start() {
	ob.aliveMu.Lock()
	defer ob.aliveMu.Unlock()
	if ob.alive {
		return
	}
	ob.alive = true
	ob.startedAt = time.Now()
	ob.t = new(tomb.Tomb)
	ob.t.Go(func() error {
		ob.runReaper()
		return nil
	})
	log.Info().Str("book", ob.name).Msg("order book started")
}

// Stop sets the alive flag false and joins the reaper on its next
// wake. A ProcessOne already past its running check is not interrupted
// and runs to completion, but Stop does not wait for it; after Stop,
// further operations return NotRunning (spec.md §5 "Shutdown").
func (ob *OrderBook) Stop() {
	ob.aliveMu.Lock()
	wasAlive := ob.alive
	ob.alive = false
	t := ob.t
	ob.aliveMu.Unlock()

	if !wasAlive || t == nil {
		return
	}
	t.Kill(nil)
	_ = t.Wait()
	log.Info().Str("book", ob.name).Msg("order book stopped")
}

// Reset stops the book (if running) and discards all state.
func (ob *OrderBook) Reset() {
	ob.Stop()
	ob.asks = book.NewSide(enums.Ask)
	ob.bids = book.NewSide(enums.Bid)
	ob.byIDMu.Lock()
	ob.byID = make(map[string]*order.Order)
	ob.byIDMu.Unlock()
	ob.expiry = newExpiryIndex()
}

func (ob *OrderBook) isAlive() bool {
	ob.aliveMu.Lock()
	defer ob.aliveMu.Unlock()
	return ob.alive
}

// RunningTime reports how long the book has been alive since Start.
func (ob *OrderBook) RunningTime() time.Duration {
	ob.aliveMu.Lock()
	defer ob.aliveMu.Unlock()
	if ob.startedAt.IsZero() {
		return 0
	}
	return time.Since(ob.startedAt)
}

func (ob *OrderBook) sideFor(tag enums.Side) *book.Side {
	if tag == enums.Ask {
		return ob.asks
	}
	return ob.bids
}

func (ob *OrderBook) oppositeOf(tag enums.Side) *book.Side {
	if tag == enums.Ask {
		return ob.bids
	}
	return ob.asks
}

// ProcessOne runs the full dispatch pipeline for one order
// (spec.md §4.6).
func (ob *OrderBook) ProcessOne(p *order.Params) result.Result {
	if !ob.isAlive() {
		return result.NewError("book is not running")
	}

	o := order.FromParams(p)

	if o.TIF() == enums.GTD {
		if expiry, ok := o.Expiry(); ok {
			now := time.Now().Unix()
			if expiry <= now {
				o.SetStatus(enums.Error)
				b := result.NewLimitBuilder(o.ID()).SetSuccess(false).
					AddMessage("GTD expiry already in the past")
				return b.Build()
			}
		}
	}

	own := ob.sideFor(o.Side())
	opposite := ob.oppositeOf(o.Side())

	marketable := opposite.IsMarketable(o.Price())

	if marketable {
		return ob.processMarketable(o, own, opposite)
	}
	return ob.processResting(o, own)
}

func (ob *OrderBook) processMarketable(o *order.Order, own, opposite *book.Side) result.Result {
	// The FOK pre-check and the match itself share one critical
	// section: the opposite side's lock, acquired once and held across
	// both. Two separate lock/unlock pairs would let two concurrent FOK
	// orders both pass the pre-check against the same liquidity before
	// either actually executes.
	opposite.Lock()
	if o.TIF() == enums.FOK {
		price := o.Price()
		if !opposite.FOKSatisfied(o.Quantity(), &price) {
			opposite.Unlock()
			o.SetStatus(enums.Error)
			log.Warn().Str("order", o.ID()).Msg("FOK not immediately fillable, rejected")
			b := result.NewMarketBuilder(o.ID()).SetSuccess(false).
				AddMessage("FOK not immediately matchable at required volume")
			return b.Build()
		}
	}

	outcome := engine.Execute(o, opposite)
	opposite.Unlock()

	b := result.NewMarketBuilder(o.ID()).SetSuccess(true).SetOutcome(outcome)

	if o.Status() == enums.Partial {
		// FOK can never reach here: the pre-check guarantees a full
		// fill whenever it reports success.
		own.Lock()
		own.Place(o)
		own.Unlock()
		ob.saveOrder(o)
	} else {
		ob.saveOrder(o)
	}

	return b.Build()
}

func (ob *OrderBook) processResting(o *order.Order, own *book.Side) result.Result {
	if o.TIF() == enums.FOK {
		o.SetStatus(enums.Error)
		b := result.NewLimitBuilder(o.ID()).SetSuccess(false).
			AddMessage("FOK not immediately matchable")
		return b.Build()
	}

	o.SetStatus(enums.Pending)
	own.Lock()
	own.Place(o)
	own.Unlock()
	ob.saveOrder(o)

	b := result.NewLimitBuilder(o.ID()).SetSuccess(true)
	return b.Build()
}

// saveOrder records o in the by-id history and, if o is a GTD order,
// in the expiry index — unconditionally of whether it rested directly
// or as a marketable order's residual, per fastlob/lob/orderbook.py's
// _save_order (spec.md §9's first resolved open question).
func (ob *OrderBook) saveOrder(o *order.Order) {
	ob.byIDMu.Lock()
	ob.byID[o.ID()] = o
	ob.byIDMu.Unlock()

	if o.TIF() == enums.GTD {
		if expiry, ok := o.Expiry(); ok {
			ob.expiry.add(expiry, o)
		}
	}
}

// ProcessMany runs ProcessOne for each element in order, without
// short-circuiting — a stopped book yields a NotRunning result per
// element, matching fastlob/lob/orderbook.py's process_many
// (spec.md §9's second resolved open question).
func (ob *OrderBook) ProcessMany(ps []*order.Params) []result.Result {
	out := make([]result.Result, len(ps))
	for i, p := range ps {
		out[i] = ob.ProcessOne(p)
	}
	return out
}

// Cancel looks up id and, if it names a still-valid order, cancels it
// under its side's lock (spec.md §4.6).
func (ob *OrderBook) Cancel(id string) result.Result {
	if !ob.isAlive() {
		return result.NewError("book is not running")
	}

	ob.byIDMu.Lock()
	o, ok := ob.byID[id]
	ob.byIDMu.Unlock()

	if !ok {
		b := result.NewCancelBuilder(id).SetSuccess(false).AddMessage("unknown order id")
		return b.Build()
	}
	if !o.Valid() {
		b := result.NewCancelBuilder(id).SetSuccess(false).AddMessage("order is not cancelable")
		return b.Build()
	}

	side := ob.sideFor(o.Side())
	side.Lock()
	ok = side.Cancel(o)
	side.Unlock()

	b := result.NewCancelBuilder(id).SetSuccess(ok)
	if !ok {
		b.AddMessage("order is not cancelable")
	}
	return b.Build()
}

// GetStatus returns the status and remaining quantity of id, or false
// if id was never accepted.
func (ob *OrderBook) GetStatus(id string) (enums.OrderStatus, decimal.Decimal, bool) {
	ob.byIDMu.Lock()
	o, ok := ob.byID[id]
	ob.byIDMu.Unlock()
	if !ok {
		return 0, decimal.Zero, false
	}
	return o.Status(), o.Quantity(), true
}

// Triplet is the (price, volume, valid_orders) shape best_ask/best_bid
// and their -s(n) variants return (spec.md §6).
type Triplet struct {
	Price       decimal.Decimal
	Volume      decimal.Decimal
	ValidOrders int
}

func limitTriplet(l *book.Limit) (Triplet, bool) {
	if l == nil {
		return Triplet{}, false
	}
	return Triplet{Price: l.Price(), Volume: l.Volume(), ValidOrders: l.ValidOrders()}, true
}

func (ob *OrderBook) BestAsk() (Triplet, bool) {
	ob.asks.Lock()
	defer ob.asks.Unlock()
	return limitTriplet(ob.asks.Best())
}

func (ob *OrderBook) BestBid() (Triplet, bool) {
	ob.bids.Lock()
	defer ob.bids.Unlock()
	return limitTriplet(ob.bids.Best())
}

// bestN walks s best-first collecting up to n (price, volume,
// valid_orders) triplets. Pure query: takes s's lock, never mutates.
func bestN(s *book.Side, n int) []Triplet {
	s.Lock()
	defer s.Unlock()
	out := make([]Triplet, 0, n)
	s.Walk(func(l *book.Limit) bool {
		out = append(out, Triplet{Price: l.Price(), Volume: l.Volume(), ValidOrders: l.ValidOrders()})
		return len(out) < n
	})
	return out
}

func (ob *OrderBook) BestAsks(n int) []Triplet { return bestN(ob.asks, n) }
func (ob *OrderBook) BestBids(n int) []Triplet { return bestN(ob.bids, n) }

// NAsks/NBids report the number of price levels (limits) resting on
// each side — fastlob/orderbook/orderbook.py's n_asks/n_bids delegate
// to Side.size(), which is len(self._limits), not an order count.
func (ob *OrderBook) NAsks() int { return ob.asks.NLimits() }
func (ob *OrderBook) NBids() int { return ob.bids.NLimits() }
func (ob *OrderBook) NPrices() int { return ob.asks.NLimits() + ob.bids.NLimits() }

func (ob *OrderBook) AsksVolume() decimal.Decimal { return ob.asks.Volume() }
func (ob *OrderBook) BidsVolume() decimal.Decimal { return ob.bids.Volume() }

// Midprice returns (best_ask+best_bid)/2, or false if either side is
// empty.
func (ob *OrderBook) Midprice() (decimal.Decimal, bool) {
	ask, ok1 := ob.BestAsk()
	bid, ok2 := ob.BestBid()
	if !ok1 || !ok2 {
		return decimal.Zero, false
	}
	sum := ask.Price.Add(bid.Price)
	return sum.Div(decimal.NewFromInt(2)), true
}

// Spread returns best_ask - best_bid, or false if either side is
// empty.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	ask, ok1 := ob.BestAsk()
	bid, ok2 := ob.BestBid()
	if !ok1 || !ok2 {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

func (ob *OrderBook) String() string {
	return fmt.Sprintf("OrderBook(%s, asks=%d, bids=%d)", ob.name, ob.asks.NLimits(), ob.bids.NLimits())
}
