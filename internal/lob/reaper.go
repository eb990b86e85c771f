package lob

import (
	"time"

	"github.com/rs/zerolog/log"
)

// runReaper sleeps ReaperInterval, then cancels every GTD order whose
// bucket has expired, until the book is stopped. Grounded on
// fastlob/lob/orderbook.py's start()/_cancel_expired_orders loop
// shape; supervised the way fenrir/internal/worker.go supervises its
// worker pool, via t.Dying() rather than a bare boolean flag.
func (ob *OrderBook) runReaper() {
	ticker := time.NewTicker(ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ob.t.Dying():
			return
		case <-ticker.C:
			ob.reapOnce()
		}
	}
}

// reapOnce sweeps all expired buckets outside any side lock, then
// cancels each still-valid order under that order's side lock
// (spec.md §4.7/§5 — the reaper never holds the expiry-map lock
// across a side lock).
func (ob *OrderBook) reapOnce() {
	now := time.Now().Unix()
	expired := ob.expiry.sweep(now)

	for _, bucket := range expired {
		for _, o := range bucket.orders {
			if !o.Valid() {
				continue
			}
			side := ob.sideFor(o.Side())
			side.Lock()
			ok := side.Cancel(o)
			side.Unlock()
			if ok {
				log.Info().Str("order", o.ID()).Msg("GTD order expired, canceled")
			}
		}
	}
}
