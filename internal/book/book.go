// Package book implements the single-instrument resting-order ladder:
// two price-ordered sides, each a sequence of price levels holding a
// FIFO queue of resting orders, plus an order_id index for O(log L)
// cancel/modify (spec.md §4.1). Grounded on the teacher's
// internal/core/matching/order_book.go and pkg/matching OrderBook/
// OrderHeap, generalized from a float64 heap-of-all-orders rebuilt on
// every cancel to a sorted-by-price-level structure keyed on the
// number of distinct price levels rather than the number of orders.
package book

import (
	"container/list"
	"fmt"

	"go.uber.org/zap"

	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/types"
)

// priceLevel is one price's FIFO queue of resting orders, maintained
// in arrival order for price-time priority (spec.md §4.1).
type priceLevel struct {
	price  decimal.Decimal
	orders *list.List // of *types.ResidualOrder
}

// location is the secondary index entry for a resting order_id,
// letting Cancel and the matching kernel's Cursor.Remove find and
// excise an order without scanning either side.
type location struct {
	side  types.Side
	level *priceLevel
	elem  *list.Element
}

// Book is the resting-order ladder for one instrument.
type Book struct {
	Instrument types.InstrumentID

	bids []*priceLevel // descending by price; bids[0] is the best bid
	asks []*priceLevel // ascending by price; asks[0] is the best ask

	index  map[types.OrderID]*location
	logger *zap.Logger
}

// New returns an empty book for instrument.
func New(instrument types.InstrumentID, logger *zap.Logger) *Book {
	return &Book{
		Instrument: instrument,
		index:      make(map[types.OrderID]*location),
		logger:     logger,
	}
}

func (b *Book) levels(side types.Side) []*priceLevel {
	if side == types.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) setLevels(side types.Side, levels []*priceLevel) {
	if side == types.Buy {
		b.bids = levels
	} else {
		b.asks = levels
	}
}

// findLevelIndex returns the insertion/lookup index for price on side
// via binary search over the side's sorted levels, and whether a level
// at exactly that price already exists.
func (b *Book) findLevelIndex(side types.Side, price decimal.Decimal) (int, bool) {
	levels := b.levels(side)

	// better(p) reports whether p sorts ahead of price on this side:
	// bids are best-first descending, asks are best-first ascending.
	better := func(p decimal.Decimal) bool {
		if side == types.Buy {
			return p.GreaterThan(price)
		}
		return p.LessThan(price)
	}

	lo, hi := 0, len(levels)
	for lo < hi {
		mid := (lo + hi) / 2
		if better(levels[mid].price) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(levels) && levels[lo].price.Equal(price) {
		return lo, true
	}
	return lo, false
}

// AddResting inserts o into its side's ladder at the back of its price
// level's queue. Only GTC orders may rest (spec.md §3); callers must
// strip or reject any other time_in_force before calling.
func (b *Book) AddResting(o *types.ResidualOrder) error {
	if o.TimeInForce != types.GTC {
		return fmt.Errorf("book: only GTC orders may rest, got %s", o.TimeInForce)
	}
	if _, exists := b.index[o.OrderID]; exists {
		return fmt.Errorf("book: order %s is already resting", o.OrderID)
	}

	idx, found := b.findLevelIndex(o.Side, o.Price)
	levels := b.levels(o.Side)

	var lvl *priceLevel
	if found {
		lvl = levels[idx]
	} else {
		lvl = &priceLevel{price: o.Price, orders: list.New()}
		levels = append(levels, nil)
		copy(levels[idx+1:], levels[idx:])
		levels[idx] = lvl
		b.setLevels(o.Side, levels)
	}

	elem := lvl.orders.PushBack(o)
	b.index[o.OrderID] = &location{side: o.Side, level: lvl, elem: elem}

	if b.logger != nil {
		b.logger.Debug("order resting",
			zap.String("instrument", string(b.Instrument)),
			zap.String("order_id", string(o.OrderID)),
			zap.String("side", string(o.Side)),
			zap.String("price", o.Price.String()),
			zap.String("remaining", o.Remaining.String()),
		)
	}
	return nil
}

// Cancel removes order_id from whichever side it rests on, returning
// the removed record. Reports false if it is not resting.
func (b *Book) Cancel(id types.OrderID) (*types.ResidualOrder, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	order, _ := loc.elem.Value.(*types.ResidualOrder)
	loc.level.orders.Remove(loc.elem)
	delete(b.index, id)
	if loc.level.orders.Len() == 0 {
		b.removeLevel(loc.side, loc.level.price)
	}
	return order, true
}

// Get returns the live resting record for order_id without removing it.
func (b *Book) Get(id types.OrderID) (*types.ResidualOrder, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	order, _ := loc.elem.Value.(*types.ResidualOrder)
	return order, true
}

func (b *Book) removeLevel(side types.Side, price decimal.Decimal) {
	idx, found := b.findLevelIndex(side, price)
	if !found {
		return
	}
	levels := b.levels(side)
	levels = append(levels[:idx], levels[idx+1:]...)
	b.setLevels(side, levels)
}

// BestBid returns the highest resting buy price, if any.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	if len(b.bids) == 0 {
		return decimal.Zero, false
	}
	return b.bids[0].price, true
}

// BestAsk returns the lowest resting sell price, if any.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	if len(b.asks) == 0 {
		return decimal.Zero, false
	}
	return b.asks[0].price, true
}

// Depth returns the number of distinct price levels on side.
func (b *Book) Depth(side types.Side) int {
	return len(b.levels(side))
}

// OrderCount returns the number of resting orders across both sides.
func (b *Book) OrderCount() int {
	return len(b.index)
}

// LevelSnapshot is a point-in-time view of one price level on one side
// of the book (spec.md §4.4).
type LevelSnapshot struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Orders   int
}

// Side returns a depth snapshot of one side, best price first, each
// entry aggregating the remaining quantity and order count resting at
// that price (spec.md §4.4).
func (b *Book) Side(side types.Side) []LevelSnapshot {
	levels := b.levels(side)
	out := make([]LevelSnapshot, 0, len(levels))
	for _, lvl := range levels {
		total := decimal.Zero
		count := 0
		for e := lvl.orders.Front(); e != nil; e = e.Next() {
			o := e.Value.(*types.ResidualOrder)
			total = total.Add(o.Remaining)
			count++
		}
		out = append(out, LevelSnapshot{Price: lvl.price, Quantity: total, Orders: count})
	}
	return out
}
