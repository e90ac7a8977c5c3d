package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/matchcore/internal/book"
	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs() IDGenerator {
	var trade int64
	var exec int64
	return IDGenerator{
		NextTradeID: func() types.TradeID { trade++; return types.TradeID(trade) },
		NextExecID:  func() types.ExecID { exec++; return types.ExecID(exec) },
	}
}

func px(s string) *decimal.Decimal {
	d := decimal.MustFromString(s)
	return &d
}

func restingSell(id, price, qty string, trader types.TraderID) *types.ResidualOrder {
	return &types.ResidualOrder{
		OrderID:     types.OrderID(id),
		Side:        types.Sell,
		Price:       decimal.MustFromString(price),
		Remaining:   decimal.MustFromString(qty),
		TimeInForce: types.GTC,
		TraderID:    trader,
	}
}

// S1: price-time priority — two resting sells at the same price, the
// earlier one matches first.
func TestMatchPriceTimePriority(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("1", "100", "5", "1")))
	require.NoError(t, b.AddResting(restingSell("2", "100", "5", "2")))

	buy := types.Order{
		OrderID: "3", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("5"), Price: px("100"),
		TimeInForce: types.GTC, TraderID: "3",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(3, 0)))

	require.Len(t, res.Trades, 1)
	assert.Equal(t, types.OrderID("1"), res.Trades[0].SellOrderID)
	assert.Equal(t, types.OrderID("3"), res.Trades[0].BuyOrderID)
	assert.True(t, res.Trades[0].Quantity.Equal(decimal.MustFromString("5")))
	assert.True(t, res.Remaining.IsZero())

	_, stillResting := b.Get("2")
	assert.True(t, stillResting, "order 2 should remain resting untouched")
}

// S2: self-trade prevention — same trader on both sides never matches.
func TestMatchSkipsSelfTrade(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("10", "100", "10", "7")))

	buy := types.Order{
		OrderID: "11", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("10"), Price: px("100"),
		TimeInForce: types.GTC, TraderID: "7",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(1, 0)))

	assert.Empty(t, res.Trades)
	assert.True(t, res.Remaining.Equal(decimal.MustFromString("10")))
	_, stillResting := b.Get("10")
	assert.True(t, stillResting, "self-trade candidate must not be removed")
}

// S3: IOC partial fill, remainder never rests (book's own IsPositive check
// is exercised by the engine; here we only assert the kernel's output).
func TestMatchIOCPartialFill(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "100", "3", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("10"), Price: px("100"),
		TimeInForce: types.IOC, TraderID: "2",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(1, 0)))

	require.Len(t, res.Trades, 1)
	assert.True(t, res.Filled.Equal(decimal.MustFromString("3")))
	assert.True(t, res.Remaining.Equal(decimal.MustFromString("7")))
	_, ok := b.BestAsk()
	assert.False(t, ok, "sell side should be empty after full consumption")
}

// S4: FOK probe reports failure and performs no mutation when the book
// cannot fill the aggressor in full.
func TestProbeFOKInsufficientLiquidity(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "100", "3", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("10"), Price: px("100"),
		TimeInForce: types.FOK, TraderID: "2",
	}
	ok := Probe(b, buy)
	assert.False(t, ok)

	rest, stillThere := b.Get("s1")
	require.True(t, stillThere)
	assert.True(t, rest.Remaining.Equal(decimal.MustFromString("3")), "probe must not mutate the book")
}

func TestProbeFOKSufficientLiquidityAcrossLevels(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "100", "4", "1")))
	require.NoError(t, b.AddResting(restingSell("s2", "101", "6", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("10"), Price: px("101"),
		TimeInForce: types.FOK, TraderID: "2",
	}
	assert.True(t, Probe(b, buy))

	// still untouched after probing
	rest, _ := b.Get("s1")
	assert.True(t, rest.Remaining.Equal(decimal.MustFromString("4")))
}

func TestMatchStopsAtLimitPriceForLimitAggressor(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "105", "5", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Limit,
		Quantity: decimal.MustFromString("5"), Price: px("100"),
		TimeInForce: types.IOC, TraderID: "2",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(1, 0)))

	assert.Empty(t, res.Trades)
	assert.True(t, res.Remaining.Equal(decimal.MustFromString("5")))
}

func TestMatchMarketAggressorIgnoresPrice(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "105", "5", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Market,
		Quantity: decimal.MustFromString("5"),
		TimeInForce: types.IOC, TraderID: "2",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(1, 0)))

	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Price.Equal(decimal.MustFromString("105")))
}

func TestMatchTracksAvgPriceAcrossLevels(t *testing.T) {
	b := book.New("I1", nil)
	require.NoError(t, b.AddResting(restingSell("s1", "100", "4", "1")))
	require.NoError(t, b.AddResting(restingSell("s2", "102", "6", "1")))

	buy := types.Order{
		OrderID: "b1", InstrumentID: "I1", Side: types.Buy, OrderType: types.Market,
		Quantity: decimal.MustFromString("10"),
		TimeInForce: types.IOC, TraderID: "2",
	}
	res := Match(b, buy, sequentialIDs(), fixedClock(time.Unix(1, 0)))

	require.NotNil(t, res.AvgPrice)
	// (4*100 + 6*102) / 10 = 101.2
	assert.True(t, res.AvgPrice.Equal(decimal.MustFromString("101.2")), res.AvgPrice.String())
}
