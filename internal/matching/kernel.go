// Package matching implements the price-time priority matching kernel
// that runs against a single instrument's book (spec.md §4.2). It has
// no notion of multiple instruments, market state, or order admission:
// those are the engine facade's job. Grounded on the core matching loop
// shape of the teacher's pkg/matching MatchOrder/matchBuyOrder and
// internal/core/matching matchBuyOrder/matchSellOrder, generalized from
// float64 price/qty to decimal.Decimal and rewritten around book.Cursor
// instead of a container/heap rebuilt on every match.
package matching

import (
	"time"

	"github.com/quantedge/matchcore/internal/book"
	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/types"
)

// IDGenerator supplies the monotonic trade_id/exec_id sequences that
// must be issued from the engine's two global counters (spec.md §4.3)
// so that every trade and report is strictly orderable across the
// whole engine, not just within one instrument's book.
type IDGenerator struct {
	NextTradeID func() types.TradeID
	NextExecID  func() types.ExecID
}

// Result is the outcome of running one aggressor through Match.
type Result struct {
	Trades []types.Trade
	// RestingReports are execution reports for resting orders touched
	// by this aggressor, in fill order.
	RestingReports []types.ExecutionReport
	// Filled is the cumulative quantity matched against the aggressor.
	Filled decimal.Decimal
	// Remaining is what is left of the aggressor after matching.
	Remaining decimal.Decimal
	// AvgPrice is nil if Filled is zero.
	AvgPrice *decimal.Decimal
}

// Match runs order as an aggressor against b, consuming resting
// liquidity opposite its side in price-time priority until order is
// exhausted, the book runs out of eligible candidates, or (for a Limit
// order) the next candidate's price no longer crosses order's limit
// (spec.md §4.2 steps 1-5). It mutates b directly: resting orders are
// reduced in place and removed once fully filled. Self-trades (same
// trader_id on both sides) are skipped without being canceled
// (spec.md §4.2 step 2, §5 edge case).
func Match(b *book.Book, order types.Order, ids IDGenerator, now func() time.Time) *Result {
	res := &Result{Remaining: order.Quantity}
	notional := decimal.Zero
	cur := b.OppositeCursor(order.Side)

	for res.Remaining.IsPositive() {
		candidate, ok := cur.Peek()
		if !ok {
			break
		}
		if order.OrderType == types.Limit && exceedsLimit(order.Side, *order.Price, candidate.Price) {
			break
		}
		if candidate.TraderID == order.TraderID {
			cur.Skip()
			continue
		}

		qty := decimal.Min(res.Remaining, candidate.Remaining)
		price := candidate.Price

		trade := types.Trade{
			TradeID:       ids.NextTradeID(),
			InstrumentID:  b.Instrument,
			Price:         price,
			Quantity:      qty,
			Timestamp:     now(),
			AggressorSide: order.Side,
		}
		if order.Side == types.Buy {
			trade.BuyOrderID, trade.SellOrderID = order.OrderID, candidate.OrderID
		} else {
			trade.BuyOrderID, trade.SellOrderID = candidate.OrderID, order.OrderID
		}
		res.Trades = append(res.Trades, trade)

		candidate.Remaining = candidate.Remaining.Sub(qty)
		candidate.FilledQuantity = candidate.FilledQuantity.Add(qty)
		candidate.FilledNotional = candidate.FilledNotional.Add(qty.Mul(price))

		res.Remaining = res.Remaining.Sub(qty)
		res.Filled = res.Filled.Add(qty)
		notional = notional.Add(qty.Mul(price))

		execType, status := types.ExecPartialFill, types.StatusPartiallyFilled
		if candidate.Remaining.IsZero() {
			execType, status = types.ExecFill, types.StatusFilled
		}
		res.RestingReports = append(res.RestingReports, types.ExecutionReport{
			OrderID:           candidate.OrderID,
			ExecID:            ids.NextExecID(),
			ExecType:          execType,
			OrderStatus:       status,
			FilledQuantity:    candidate.FilledQuantity,
			RemainingQuantity: candidate.Remaining,
			AvgPrice:          candidate.AvgPrice(),
			LastQty:           &qty,
			LastPx:            &price,
			Timestamp:         trade.Timestamp,
		})

		if candidate.Remaining.IsZero() {
			cur.Remove()
		} else {
			cur.Skip()
		}
	}

	if res.Filled.IsPositive() {
		avg := notional.DivRound(res.Filled, 8)
		res.AvgPrice = &avg
	}
	return res
}

// Probe reports whether order could be filled in full against b's
// current state, honoring the same price check and self-trade skip as
// Match, without mutating b or order. It is the savepoint-free way to
// implement FOK: run Probe, and only call Match if it returns true
// (spec.md §4.2 step 7, §5 FOK edge case).
func Probe(b *book.Book, order types.Order) bool {
	remaining := order.Quantity
	cur := b.OppositeCursor(order.Side)

	for {
		if !remaining.IsPositive() {
			return true
		}
		candidate, ok := cur.Peek()
		if !ok {
			return false
		}
		if order.OrderType == types.Limit && exceedsLimit(order.Side, *order.Price, candidate.Price) {
			return false
		}
		if candidate.TraderID == order.TraderID {
			cur.Skip()
			continue
		}
		qty := decimal.Min(remaining, candidate.Remaining)
		remaining = remaining.Sub(qty)
		cur.Skip()
	}
}

// exceedsLimit reports whether candidatePrice no longer crosses a Limit
// aggressor's price, i.e. whether matching must stop here: a buy cannot
// take an ask priced above its limit, a sell cannot take a bid priced
// below its limit (spec.md §4.2 step 3).
func exceedsLimit(side types.Side, limit, candidatePrice decimal.Decimal) bool {
	if side == types.Buy {
		return candidatePrice.GreaterThan(limit)
	}
	return candidatePrice.LessThan(limit)
}
