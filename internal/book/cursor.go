package book

import (
	"container/list"

	"github.com/quantedge/matchcore/pkg/types"
)

// Cursor walks one side of a book in match order (best price first,
// then arrival order within a price), used by the matching kernel to
// scan candidates opposite an aggressor (spec.md §4.2). Skip moves
// past a candidate without consuming it, for self-trade prevention.
// Remove excises the current candidate once it is fully filled. A
// Cursor that is only ever Peeked and Skipped never mutates the book,
// which is what lets the FOK probe reuse this same walk read-only.
type Cursor struct {
	book     *Book
	side     types.Side // the resting side being scanned
	levelIdx int
	elem     *list.Element
}

// OppositeCursor returns a Cursor over the side opposite aggressorSide,
// positioned at the best candidate.
func (b *Book) OppositeCursor(aggressorSide types.Side) *Cursor {
	c := &Cursor{book: b, side: aggressorSide.Opposite()}
	c.sync()
	return c
}

// sync restores the invariant that elem points at a live order, or
// levelIdx == len(levels) meaning the side is exhausted. It is called
// after construction and after every Skip/Remove.
func (c *Cursor) sync() {
	for {
		levels := c.book.levels(c.side)
		if c.levelIdx >= len(levels) {
			c.elem = nil
			return
		}
		if c.elem == nil {
			c.elem = levels[c.levelIdx].orders.Front()
		}
		if c.elem != nil {
			return
		}
		c.levelIdx++
	}
}

// Peek returns the next candidate in match order without consuming it.
func (c *Cursor) Peek() (*types.ResidualOrder, bool) {
	levels := c.book.levels(c.side)
	if c.levelIdx >= len(levels) || c.elem == nil {
		return nil, false
	}
	return c.elem.Value.(*types.ResidualOrder), true
}

// Skip advances past the current candidate without removing it from
// the book, used when the candidate's trader_id matches the
// aggressor's (spec.md §4.2 step 2, self-trade prevention).
func (c *Cursor) Skip() {
	if c.elem == nil {
		return
	}
	c.elem = c.elem.Next()
	if c.elem == nil {
		// Ran off the end of this level's list: move to the next
		// level rather than letting sync re-fetch this level's
		// Front() and hand back the candidate just skipped.
		c.levelIdx++
	}
	c.sync()
}

// Remove excises the current candidate (it has been fully filled) and
// advances to the next one.
func (c *Cursor) Remove() {
	levels := c.book.levels(c.side)
	if c.levelIdx >= len(levels) || c.elem == nil {
		return
	}
	lvl := levels[c.levelIdx]
	order := c.elem.Value.(*types.ResidualOrder)
	next := c.elem.Next()
	lvl.orders.Remove(c.elem)
	delete(c.book.index, order.OrderID)

	c.elem = next
	if lvl.orders.Len() == 0 {
		levels = append(levels[:c.levelIdx], levels[c.levelIdx+1:]...)
		c.book.setLevels(c.side, levels)
		c.elem = nil
	} else if c.elem == nil {
		// order was the last live element in this level's list, but
		// earlier elements remain (skipped, not removed, for
		// self-trade prevention): the level itself isn't exhausted,
		// but there is no further live candidate behind them, so
		// move on to the next level rather than re-fetching this
		// level's Front() and handing back an already-skipped order.
		c.levelIdx++
	}
	c.sync()
}
