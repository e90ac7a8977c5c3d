package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/types"
)

func resting(id, price string, qty string, side types.Side, trader types.TraderID) *types.ResidualOrder {
	return &types.ResidualOrder{
		OrderID:     types.OrderID(id),
		Side:        side,
		Price:       decimal.MustFromString(price),
		Remaining:   decimal.MustFromString(qty),
		TimeInForce: types.GTC,
		TraderID:    trader,
	}
}

func TestAddRestingOrdersBestPriceFirst(t *testing.T) {
	b := New("I1", nil)

	require.NoError(t, b.AddResting(resting("s1", "101", "5", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s2", "100", "5", types.Sell, "t1")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.MustFromString("100")))

	require.NoError(t, b.AddResting(resting("b1", "99", "5", types.Buy, "t1")))
	require.NoError(t, b.AddResting(resting("b2", "100", "5", types.Buy, "t1")))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.MustFromString("100")))
}

func TestAddRestingRejectsNonGTC(t *testing.T) {
	b := New("I1", nil)
	o := resting("s1", "100", "5", types.Sell, "t1")
	o.TimeInForce = types.IOC
	assert.Error(t, b.AddResting(o))
}

func TestAddRestingRejectsDuplicateID(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "100", "5", types.Sell, "t1")))
	assert.Error(t, b.AddResting(resting("s1", "101", "5", types.Sell, "t1")))
}

func TestCancelRemovesOrderAndEmptyLevel(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "100", "5", types.Sell, "t1")))

	order, ok := b.Cancel("s1")
	require.True(t, ok)
	assert.Equal(t, types.OrderID("s1"), order.OrderID)

	_, ok = b.BestAsk()
	assert.False(t, ok, "level should be removed once its last order is cancelled")
	assert.Equal(t, 0, b.OrderCount())
}

func TestCancelUnknownIDIsNotFound(t *testing.T) {
	b := New("I1", nil)
	_, ok := b.Cancel("nope")
	assert.False(t, ok)

	// Idempotent: a second cancel of the same id is still a clean miss.
	_, ok = b.Cancel("nope")
	assert.False(t, ok)
}

func TestCancelLeavesSiblingLevelIntact(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "100", "5", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s2", "101", "5", types.Sell, "t1")))

	_, ok := b.Cancel("s1")
	require.True(t, ok)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.MustFromString("101")))
}

func TestOppositeCursorWalksBestPriceThenArrivalOrder(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "101", "5", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s2", "100", "3", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s3", "100", "2", types.Sell, "t2")))

	cur := b.OppositeCursor(types.Buy)

	first, ok := cur.Peek()
	require.True(t, ok)
	assert.Equal(t, types.OrderID("s2"), first.OrderID, "best price (100) before worse price (101)")

	cur.Skip()
	second, ok := cur.Peek()
	require.True(t, ok)
	assert.Equal(t, types.OrderID("s3"), second.OrderID, "same price level, arrival order")

	cur.Skip()
	third, ok := cur.Peek()
	require.True(t, ok)
	assert.Equal(t, types.OrderID("s1"), third.OrderID)

	cur.Skip()
	_, ok = cur.Peek()
	assert.False(t, ok)
}

func TestCursorRemoveSplicesOutEmptyLevel(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "100", "5", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s2", "101", "5", types.Sell, "t1")))

	cur := b.OppositeCursor(types.Buy)
	_, ok := cur.Peek()
	require.True(t, ok)
	cur.Remove()

	next, ok := cur.Peek()
	require.True(t, ok)
	assert.Equal(t, types.OrderID("s2"), next.OrderID)

	_, stillThere := b.Get("s1")
	assert.False(t, stillThere)
	ask, _ := b.BestAsk()
	assert.True(t, ask.Equal(decimal.MustFromString("101")))
}

func TestSideSnapshotAggregatesQuantityPerLevel(t *testing.T) {
	b := New("I1", nil)
	require.NoError(t, b.AddResting(resting("s1", "100", "5", types.Sell, "t1")))
	require.NoError(t, b.AddResting(resting("s2", "100", "3", types.Sell, "t2")))

	levels := b.Side(types.Sell)
	require.Len(t, levels, 1)
	assert.True(t, levels[0].Price.Equal(decimal.MustFromString("100")))
	assert.True(t, levels[0].Quantity.Equal(decimal.MustFromString("8")))
	assert.Equal(t, 2, levels[0].Orders)
}
