package lob

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdatesReplacesAndDeletes(t *testing.T) {
	ob, err := FromSnapshot("upd", Snapshot{
		Asks: []PriceVolume{{Price: decimal.NewFromInt(101), Volume: decimal.NewFromInt(10)}},
		Bids: []PriceVolume{{Price: decimal.NewFromInt(99), Volume: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	err = ob.ApplyUpdates(UpdateFrame{
		Asks: []PriceVolume{{Price: decimal.NewFromInt(101), Volume: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, decimal.NewFromInt(20).String(), ask.Volume.String())

	err = ob.ApplyUpdates(UpdateFrame{
		Bids: []PriceVolume{{Price: decimal.NewFromInt(99), Volume: decimal.Zero}},
	})
	require.NoError(t, err)

	_, ok = ob.BestBid()
	assert.False(t, ok)
}

func TestApplyUpdatesRejectsMalformed(t *testing.T) {
	ob, err := FromSnapshot("upd2", Snapshot{})
	require.NoError(t, err)

	err = ob.ApplyUpdates(UpdateFrame{
		Asks: []PriceVolume{{Price: decimal.NewFromInt(-1), Volume: decimal.NewFromInt(10)}},
	})
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}
