package lob

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fastlob/internal/book"
	"fastlob/internal/money"
	"fastlob/internal/order"
)

// PriceVolume is one (price, volume) pair of a snapshot or update
// frame (spec.md §4.8/§6).
type PriceVolume struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// Snapshot is a full-depth frame: synthetic anonymous orders to prime
// an empty book with.
type Snapshot struct {
	Asks []PriceVolume
	Bids []PriceVolume
}

// UpdateFrame is one incremental frame consumed by LoadUpdates/Step.
// A zero Volume pair is a deletion marker (spec.md §6).
type UpdateFrame struct {
	Asks []PriceVolume
	Bids []PriceVolume
}

// UpdateIterator replaces the Python source's generator with a
// Go-idiomatic pull iterator (spec.md §4.8's "thin interface"
// framing): Next returns the next frame and whether one was available.
type UpdateIterator interface {
	Next() (UpdateFrame, bool)
}

// ErrMalformedSnapshot is returned when a snapshot or update pair
// fails validation (spec.md §7's MalformedSnapshot/Update taxonomy
// entry); ingestion never partially applies a bad frame.
var ErrMalformedSnapshot = fmt.Errorf("lob: malformed snapshot or update")

func checkSnapshotPair(pv PriceVolume) error {
	if !pv.Price.IsPositive() {
		return fmt.Errorf("%w: price %s must be positive", ErrMalformedSnapshot, pv.Price)
	}
	if !pv.Volume.IsPositive() {
		return fmt.Errorf("%w: snapshot volume %s must be positive", ErrMalformedSnapshot, pv.Volume)
	}
	return nil
}

func checkUpdatePair(pv PriceVolume) error {
	if !pv.Price.IsPositive() {
		return fmt.Errorf("%w: price %s must be positive", ErrMalformedSnapshot, pv.Price)
	}
	if pv.Volume.IsNegative() {
		return fmt.Errorf("%w: update volume %s must not be negative", ErrMalformedSnapshot, pv.Volume)
	}
	return nil
}

// FromSnapshot builds a new, not yet started book named name and primes
// it with synthetic depth from snap.
// Every (p, v) pair becomes a Fake order placed at price p
// (spec.md §4.8): qty = v, tif = enums.Fake, never stored in the by-id
// history or the expiry index.
func FromSnapshot(name string, snap Snapshot) (*OrderBook, error) {
	for _, pv := range snap.Asks {
		if err := checkSnapshotPair(pv); err != nil {
			return nil, err
		}
	}
	for _, pv := range snap.Bids {
		if err := checkSnapshotPair(pv); err != nil {
			return nil, err
		}
	}

	ob := New(name)
	for _, pv := range snap.Asks {
		placeFake(ob.asks, pv)
	}
	for _, pv := range snap.Bids {
		placeFake(ob.bids, pv)
	}
	return ob, nil
}

func placeFake(s *book.Side, pv PriceVolume) {
	price := money.Quantize(pv.Price)
	qty := money.Quantize(pv.Volume)
	s.Place(order.NewFake(s.Tag(), price, qty))
}

// ApplyUpdates consumes one frame: for each (p, v), a zero volume
// deletes the entire Limit at p (real orders included); otherwise it
// replaces the synthetic order resting at p with a fresh one of
// volume v, leaving real client orders at p untouched
// (spec.md §4.8/DESIGN.md's snapshot-update decision). Both side locks
// are acquired in a fixed order, ask then bid, to avoid deadlocking
// with any other code path that takes both (spec.md §5).
func (ob *OrderBook) ApplyUpdates(frame UpdateFrame) error {
	for _, pv := range frame.Asks {
		if err := checkUpdatePair(pv); err != nil {
			return err
		}
	}
	for _, pv := range frame.Bids {
		if err := checkUpdatePair(pv); err != nil {
			return err
		}
	}

	ob.asks.Lock()
	defer ob.asks.Unlock()
	ob.bids.Lock()
	defer ob.bids.Unlock()

	for _, pv := range frame.Asks {
		applyUpdatePair(ob.asks, pv)
	}
	for _, pv := range frame.Bids {
		applyUpdatePair(ob.bids, pv)
	}
	return nil
}

func applyUpdatePair(s *book.Side, pv PriceVolume) {
	price := money.Quantize(pv.Price)
	if pv.Volume.IsZero() {
		s.DeleteLimit(price)
		return
	}
	s.RemoveFakeAt(price)
	qty := money.Quantize(pv.Volume)
	s.Place(order.NewFake(s.Tag(), price, qty))
}

// LoadUpdates drains it, applying each frame via ApplyUpdates in
// order, stopping at the first error.
func (ob *OrderBook) LoadUpdates(it UpdateIterator) error {
	for {
		frame, ok := it.Next()
		if !ok {
			return nil
		}
		if err := ob.ApplyUpdates(frame); err != nil {
			return err
		}
	}
}

// Step consumes exactly one frame from it, if available.
func (ob *OrderBook) Step(it UpdateIterator) (bool, error) {
	frame, ok := it.Next()
	if !ok {
		return false, nil
	}
	return true, ob.ApplyUpdates(frame)
}
