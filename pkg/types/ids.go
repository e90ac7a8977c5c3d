package types

import "fmt"

// OrderID is the caller-assigned identifier for an order. It must be
// unique across all currently-live orders in the process (spec.md §3).
type OrderID string

// ClientOrderID is an opaque, caller-defined string carried through the
// order's lifecycle and never interpreted by the engine.
type ClientOrderID string

// InstrumentID identifies a registered tradeable instrument.
type InstrumentID string

// TraderID identifies the trader that owns an order, used exclusively
// for self-trade prevention (spec.md §4.2).
type TraderID string

// TradeID is a globally monotonic identifier issued by the engine for
// every trade (spec.md §3).
type TradeID int64

// ExecID is a globally monotonic identifier issued by the engine for
// every execution report (spec.md §3).
type ExecID int64

func (id OrderID) String() string       { return string(id) }
func (id ClientOrderID) String() string { return string(id) }
func (id InstrumentID) String() string  { return string(id) }
func (id TraderID) String() string      { return string(id) }
func (id TradeID) String() string       { return fmt.Sprintf("%d", int64(id)) }
func (id ExecID) String() string        { return fmt.Sprintf("%d", int64(id)) }
