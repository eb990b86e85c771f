package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"fastlob/internal/book"
	"fastlob/internal/enums"
	"fastlob/internal/order"
)

func mustParams(t *testing.T, side enums.Side, price, qty float64, tif enums.TimeInForce) *order.Params {
	t.Helper()
	p, err := order.NewParams(side, price, qty, tif, 0)
	assert.NoError(t, err)
	return p
}

// S2: a full match of equal quantity at one price fills both sides
// completely and removes the limit.
func TestExecuteFullMatch(t *testing.T) {
	asks := book.NewSide(enums.Ask)
	resting := order.FromParams(mustParams(t, enums.Ask, 100, 10, enums.GTC))
	asks.Place(resting)

	taker := order.FromParams(mustParams(t, enums.Bid, 100, 10, enums.GTC))
	out := Execute(taker, asks)

	assert.Equal(t, enums.Filled, taker.Status())
	assert.Equal(t, enums.Filled, resting.Status())
	assert.Equal(t, 1, out.LimitsFilled)
	assert.Equal(t, 1, out.OrdersFilled)
	assert.Equal(t, decimal.NewFromInt(10).String(), out.ExecVolume.At(decimal.NewFromInt(100)).String())
	assert.Nil(t, asks.Best())
}

// S3: partial consume across two price levels.
func TestExecutePartialConsumeAcrossLevels(t *testing.T) {
	bids := book.NewSide(enums.Bid)
	o1 := order.FromParams(mustParams(t, enums.Bid, 1400, 200, enums.GTC))
	o2 := order.FromParams(mustParams(t, enums.Bid, 1300, 200, enums.GTC))
	o3 := order.FromParams(mustParams(t, enums.Bid, 1400, 200, enums.GTC))
	o4 := order.FromParams(mustParams(t, enums.Bid, 1300, 200, enums.GTC))
	bids.Place(o1)
	bids.Place(o2)
	bids.Place(o3)
	bids.Place(o4)

	taker := order.FromParams(mustParams(t, enums.Ask, 1300, 500, enums.GTC))
	out := Execute(taker, bids)

	assert.Equal(t, 1, out.LimitsFilled)
	assert.Equal(t, 3, out.OrdersFilled)
	assert.Equal(t, decimal.NewFromInt(400).String(), out.ExecVolume.At(decimal.NewFromInt(1400)).String())
	assert.Equal(t, decimal.NewFromInt(100).String(), out.ExecVolume.At(decimal.NewFromInt(1300)).String())
	assert.Equal(t, enums.Filled, taker.Status())
	assert.Equal(t, enums.Filled, o1.Status())
	assert.Equal(t, enums.Filled, o3.Status())

	best := bids.Best()
	assert.NotNil(t, best)
	assert.Equal(t, decimal.NewFromInt(1300).String(), best.Price().String())
	assert.Equal(t, decimal.NewFromInt(300).String(), best.Volume().String())
	assert.Equal(t, 2, best.ValidOrders())
}

// S4: FOK liquidity pre-check, then a successful FOK execution leaving
// a partially filled head behind.
func TestExecuteFOKThenPartialResidualHead(t *testing.T) {
	asks := book.NewSide(enums.Ask)
	var restings []*order.Order
	for i := 0; i < 5; i++ {
		o := order.FromParams(mustParams(t, enums.Ask, 125, 100, enums.GTC))
		asks.Place(o)
		restings = append(restings, o)
	}

	price := decimal.NewFromInt(125)
	assert.True(t, asks.FOKSatisfied(decimal.NewFromInt(425), &price))
	assert.False(t, asks.FOKSatisfied(decimal.NewFromInt(525), &price))

	taker := order.FromParams(mustParams(t, enums.Bid, 125, 425, enums.FOK))
	out := Execute(taker, asks)

	assert.Equal(t, enums.Filled, taker.Status())
	assert.Equal(t, decimal.NewFromInt(425).String(), out.ExecVolume.At(price).String())

	for i := 0; i < 4; i++ {
		assert.Equal(t, enums.Filled, restings[i].Status())
	}
	assert.Equal(t, enums.Partial, restings[4].Status())
	assert.Equal(t, decimal.NewFromInt(75).String(), restings[4].Quantity().String())

	best := asks.Best()
	assert.NotNil(t, best)
	assert.Equal(t, decimal.NewFromInt(75).String(), best.Volume().String())
	assert.Equal(t, 1, best.ValidOrders())
}

func TestExecuteStopsOutOfPrice(t *testing.T) {
	asks := book.NewSide(enums.Ask)
	asks.Place(order.FromParams(mustParams(t, enums.Ask, 100, 5, enums.GTC)))
	asks.Place(order.FromParams(mustParams(t, enums.Ask, 105, 5, enums.GTC)))

	taker := order.FromParams(mustParams(t, enums.Bid, 100, 20, enums.GTC))
	out := Execute(taker, asks)

	assert.Equal(t, enums.Partial, taker.Status())
	assert.Equal(t, decimal.NewFromInt(15).String(), taker.Quantity().String())
	assert.Equal(t, 1, out.LimitsFilled)
}
