// Package order implements the order lifecycle: identity, state machine
// and construction-time validation (spec.md §4.1/§4.2).
package order

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fastlob/internal/enums"
)

// Order is a single client (or synthetic) order resting in, or being
// matched against, the book. Status and remaining quantity are guarded
// by their own lock rather than the owning Side's lock, since
// get_status() reads them without acquiring the side lock (spec.md §4.6,
// §5: "the by-id history ... [has its] own mutex; neither is held
// across a side lock").
type Order struct {
	mu sync.RWMutex

	id       string
	side     enums.Side
	price    decimal.Decimal
	quantity decimal.Decimal
	tif      enums.TimeInForce
	expiry   *int64
	status   enums.OrderStatus
}

func newOrder(side enums.Side, price, quantity decimal.Decimal, tif enums.TimeInForce, expiry *int64) *Order {
	return &Order{
		id:       uuid.New().String(),
		side:     side,
		price:    price,
		quantity: quantity,
		tif:      tif,
		expiry:   expiry,
		status:   enums.Created,
	}
}

// FromParams instantiates a side-tagged order from already-validated
// parameters (spec.md §4.6 step 3).
func FromParams(p *Params) *Order {
	return newOrder(p.side, p.price, p.quantity, p.tif, p.expiry)
}

// NewFake builds a synthetic order for the snapshot/update path. Fake
// orders skip OrderParams validation entirely: their volume is checked
// by the snapshot/update pair validators instead (spec.md §4.8).
func NewFake(side enums.Side, price, quantity decimal.Decimal) *Order {
	return newOrder(side, price, quantity, enums.Fake, nil)
}

func (o *Order) ID() string            { return o.id }
func (o *Order) Side() enums.Side      { return o.side }
func (o *Order) Price() decimal.Decimal { return o.price }
func (o *Order) TIF() enums.TimeInForce { return o.tif }

// Expiry returns the GTD deadline and whether one is set.
func (o *Order) Expiry() (int64, bool) {
	if o.expiry == nil {
		return 0, false
	}
	return *o.expiry, true
}

func (o *Order) Quantity() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.quantity
}

func (o *Order) Status() enums.OrderStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// SetStatus transitions the order to s directly, used for the
// FOK-rejection and snapshot/fake-order paths that never call Fill.
func (o *Order) SetStatus(s enums.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = s
}

// Valid reports whether the order can still be matched or canceled.
func (o *Order) Valid() bool {
	return o.Status().Valid()
}

// Fill decreases the remaining quantity by min(amount, remaining) and
// drives the status to Filled or Partial accordingly (spec.md §4.1:
// "Fill is the only mutator of remaining quantity").
func (o *Order) Fill(amount decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if amount.GreaterThan(o.quantity) {
		amount = o.quantity
	}
	o.quantity = o.quantity.Sub(amount)

	if o.quantity.IsZero() {
		o.status = enums.Filled
	} else {
		o.status = enums.Partial
	}
}

func (o *Order) String() string {
	return o.id + " " + o.side.String() + " " + o.price.String() + "@" + o.Quantity().String()
}
