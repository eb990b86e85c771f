package lob

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastlob/internal/enums"
	"fastlob/internal/order"
	"fastlob/internal/result"
)

func place(t *testing.T, ob *OrderBook, side enums.Side, price, qty float64, tif enums.TimeInForce, expiry int64) result.Result {
	t.Helper()
	p, err := order.NewParams(side, price, qty, tif, expiry)
	require.NoError(t, err)
	return ob.ProcessOne(p)
}

// S1: simple placement.
func TestProcessOneSimplePlacement(t *testing.T) {
	ob := New("s1")
	ob.Start()
	defer ob.Stop()

	res := place(t, ob, enums.Bid, 100, 10, enums.GTC, 0)
	assert.True(t, res.Success())

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(100).String(), bid.Price.String())
	assert.Equal(t, decimal.NewFromInt(10).String(), bid.Volume.String())
	assert.Equal(t, 1, bid.ValidOrders)
	assert.Equal(t, 1, ob.NBids())

	_, ok = ob.Spread()
	assert.False(t, ok)
}

// S2: full match.
func TestProcessOneFullMatch(t *testing.T) {
	ob := New("s2")
	ob.Start()
	defer ob.Stop()

	place(t, ob, enums.Bid, 100, 10, enums.GTC, 0)
	res := place(t, ob, enums.Ask, 100, 10, enums.GTC, 0)
	require.True(t, res.Success())

	mr, ok := res.(result.MarketResult)
	require.True(t, ok)
	assert.Equal(t, 1, mr.LimitsFilled)
	assert.Equal(t, 1, mr.OrdersFilled)
	assert.Equal(t, decimal.NewFromInt(10).String(), mr.ExecVolume(decimal.NewFromInt(100)).String())

	assert.Equal(t, 0, ob.NAsks())
	assert.Equal(t, 0, ob.NBids())
}

// S4: FOK reject preserves book, then a satisfiable FOK executes.
func TestProcessOneFOKLifecycle(t *testing.T) {
	ob := New("s4")
	ob.Start()
	defer ob.Stop()

	for i := 0; i < 5; i++ {
		place(t, ob, enums.Ask, 125, 100, enums.GTC, 0)
	}

	rejectNotMarketable := place(t, ob, enums.Bid, 120, 1, enums.FOK, 0)
	assert.False(t, rejectNotMarketable.Success())
	assert.Equal(t, 1, ob.NAsks())

	rejectNotEnough := place(t, ob, enums.Bid, 125, 525, enums.FOK, 0)
	assert.False(t, rejectNotEnough.Success())
	assert.Equal(t, 1, ob.NAsks())

	accepted := place(t, ob, enums.Bid, 125, 425, enums.FOK, 0)
	require.True(t, accepted.Success())

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(75).String(), ask.Volume.String())
	assert.Equal(t, 1, ask.ValidOrders)
}

// S5: GTD expiry is reaped.
func TestGTDExpiryIsReaped(t *testing.T) {
	ReaperInterval = 10 * time.Millisecond
	defer func() { ReaperInterval = 100 * time.Millisecond }()

	ob := New("s5")
	ob.Start()
	defer ob.Stop()

	expiry := time.Now().Add(50 * time.Millisecond).Unix() + 1
	p, err := order.NewParams(enums.Bid, 1000, 1000, enums.GTD, expiry)
	require.NoError(t, err)
	res := ob.ProcessOne(p)
	require.True(t, res.Success())

	lr := res.(result.LimitResult)

	time.Sleep(2 * time.Second)

	status, qty, ok := ob.GetStatus(lr.OrderID)
	require.True(t, ok)
	assert.Equal(t, enums.Canceled, status)
	assert.Equal(t, decimal.NewFromInt(1000).String(), qty.String())
	assert.Equal(t, 0, ob.NBids())
}

// S6: snapshot prime.
func TestFromSnapshot(t *testing.T) {
	ob, err := FromSnapshot("s6", Snapshot{
		Asks: []PriceVolume{{Price: decimal.NewFromInt(101), Volume: decimal.NewFromInt(10)}, {Price: decimal.NewFromInt(102), Volume: decimal.NewFromInt(10)}},
		Bids: []PriceVolume{{Price: decimal.NewFromInt(99), Volume: decimal.NewFromInt(10)}, {Price: decimal.NewFromInt(98), Volume: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(101).String(), ask.Price.String())

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(99).String(), bid.Price.String())

	mid, ok := ob.Midprice()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(100).String(), mid.String())

	spread, ok := ob.Spread()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(2).String(), spread.String())
}

func TestCancelIdempotent(t *testing.T) {
	ob := New("cancel")
	ob.Start()
	defer ob.Stop()

	res := place(t, ob, enums.Bid, 100, 10, enums.GTC, 0)
	lr := res.(result.LimitResult)

	first := ob.Cancel(lr.OrderID)
	assert.True(t, first.Success())

	second := ob.Cancel(lr.OrderID)
	assert.False(t, second.Success())
}

func TestProcessOneNotRunning(t *testing.T) {
	ob := New("stopped")
	res := place(t, ob, enums.Bid, 100, 10, enums.GTC, 0)
	assert.False(t, res.Success())
	assert.Equal(t, result.KindError, res.Kind())
}
