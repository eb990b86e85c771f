package lob

import (
	"sync"

	"github.com/tidwall/btree"

	"fastlob/internal/order"
)

// expiryBucket is all GTD orders sharing one expiry timestamp.
type expiryBucket struct {
	ts     int64
	orders []*order.Order
}

// expiryIndex is a sorted map expiry_ts → bucket of orders, reusing
// tidwall/btree the same way book.Side reuses it for prices
// (spec.md §9: "A sorted map expiry_ts → list<order> suffices").
// Insertions are append-only under its own mutex, never held across a
// side lock (spec.md §5).
type expiryIndex struct {
	mu      sync.Mutex
	buckets *btree.BTreeG[*expiryBucket]
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{
		buckets: btree.NewBTreeG(func(a, b *expiryBucket) bool { return a.ts < b.ts }),
	}
}

func (e *expiryIndex) add(ts int64, o *order.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	probe := &expiryBucket{ts: ts}
	if found, ok := e.buckets.Get(probe); ok {
		found.orders = append(found.orders, o)
		return
	}
	e.buckets.Set(&expiryBucket{ts: ts, orders: []*order.Order{o}})
}

// sweep removes and returns every bucket whose timestamp is strictly
// less than now, draining them from the index.
func (e *expiryIndex) sweep(now int64) []*expiryBucket {
	e.mu.Lock()
	defer e.mu.Unlock()

	var expired []*expiryBucket
	for {
		b, ok := e.buckets.Min()
		if !ok || b.ts >= now {
			break
		}
		expired = append(expired, b)
		e.buckets.Delete(b)
	}
	return expired
}
