package types

import (
	"time"

	"github.com/quantedge/matchcore/pkg/decimal"
)

// Order is the input record handed to the engine by a caller (spec.md §3).
// It is fully populated by the adapter before it ever reaches the core.
type Order struct {
	OrderID       OrderID
	ClientOrderID ClientOrderID
	InstrumentID  InstrumentID
	Side          Side
	OrderType     OrderType
	Quantity      decimal.Decimal
	// Price is required iff OrderType == Limit, and forbidden for Market.
	Price         *decimal.Decimal
	TimeInForce   TimeInForce
	Timestamp     time.Time
	TraderID      TraderID
}

// ResidualOrder is the internal record that lives in a book once an
// order has rested. Only GTC remainders are ever inserted (spec.md §3).
type ResidualOrder struct {
	OrderID       OrderID
	ClientOrderID ClientOrderID
	Side          Side
	Price         decimal.Decimal
	Remaining     decimal.Decimal
	// TimeInForce is always GTC while resting (spec.md §3).
	TimeInForce TimeInForce
	Timestamp   time.Time
	TraderID    TraderID

	// OriginalQuantity, FilledQuantity, and FilledNotional track this
	// order's lifetime fill history across every aggressor that hits it
	// while resting, so its execution reports carry a running avg_price
	// (spec.md §4.2) even though FilledQuantity/FilledNotional never
	// appear in the wire-level ResidualOrder fields themselves.
	OriginalQuantity decimal.Decimal
	FilledQuantity   decimal.Decimal
	FilledNotional   decimal.Decimal
}

// AvgPrice returns the order's running average fill price, or nil if it
// has not yet received a fill.
func (r *ResidualOrder) AvgPrice() *decimal.Decimal {
	if r.FilledQuantity.IsZero() {
		return nil
	}
	avg := r.FilledNotional.DivRound(r.FilledQuantity, 8)
	return &avg
}

// Trade is the authoritative record of a single match (spec.md §3).
type Trade struct {
	TradeID      TradeID
	InstrumentID InstrumentID
	BuyOrderID   OrderID
	SellOrderID  OrderID
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Timestamp    time.Time
	// AggressorSide is the side of the order whose arrival caused this
	// match; the trade's Price is always the resting (maker) side's price.
	AggressorSide Side
}

// ExecutionReport describes a state transition of a single order
// (spec.md §3). Reports are cumulative: FilledQuantity and
// RemainingQuantity always reflect the order's running totals.
type ExecutionReport struct {
	OrderID           OrderID
	ExecID            ExecID
	ExecType          ExecType
	OrderStatus       OrderStatus
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	// AvgPrice is nil until the order has received its first fill.
	AvgPrice *decimal.Decimal
	// LastQty/LastPx are nil unless this report corresponds to a fill.
	LastQty *decimal.Decimal
	LastPx  *decimal.Decimal
	Timestamp time.Time
	// Text carries a human-readable reason on Rejected reports, e.g.
	// "market not open" (spec.md §4.3 step 2).
	Text string
}

// IsFill reports whether this report corresponds to a fill (partial or
// complete), i.e. whether LastQty/LastPx are populated.
func (r ExecutionReport) IsFill() bool {
	return r.ExecType == ExecPartialFill || r.ExecType == ExecFill
}
