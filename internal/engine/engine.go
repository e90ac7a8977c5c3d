// Package engine is the multi-instrument facade: the single surface
// every adapter calls (spec.md §4.3). It owns the instrument registry,
// the order→instrument index, the two global monotonic ID counters,
// the market-state gate, and the one coarse lock that makes every
// public operation serializable. Grounded on the teacher's pkg/matching
// MatchingEngine (instrument map + trade counter under a mutex),
// generalized from a single global order book to a per-instrument
// registry and rewritten around internal/book and internal/matching
// instead of the teacher's heap-based OrderBook.
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantedge/matchcore/internal/book"
	"github.com/quantedge/matchcore/internal/matching"
	"github.com/quantedge/matchcore/pkg/decimal"
	"github.com/quantedge/matchcore/pkg/errors"
	"github.com/quantedge/matchcore/pkg/metrics"
	"github.com/quantedge/matchcore/pkg/types"
)

// instrument bundles a registered instrument's book with its optional
// display symbol (spec.md §4.3 instruments()).
type instrument struct {
	book   *book.Book
	symbol string
}

// Engine is the multi-instrument matching engine facade. All exported
// methods are atomic with respect to concurrent callers (spec.md §5):
// they take mu for their entire duration.
type Engine struct {
	mu sync.Mutex

	instruments map[types.InstrumentID]*instrument
	index       map[types.OrderID]types.InstrumentID
	state       types.MarketState

	nextTradeID int64
	nextExecID  int64

	logger  *zap.Logger
	metrics *metrics.Engine
	now     func() time.Time
}

// New builds an empty engine in the given initial market state.
func New(initialState types.MarketState, logger *zap.Logger, m *metrics.Engine) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		instruments: make(map[types.InstrumentID]*instrument),
		index:       make(map[types.OrderID]types.InstrumentID),
		state:       initialState,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

func (e *Engine) nextIDs() matching.IDGenerator {
	return matching.IDGenerator{
		NextTradeID: func() types.TradeID {
			e.nextTradeID++
			return types.TradeID(e.nextTradeID)
		},
		NextExecID: func() types.ExecID {
			e.nextExecID++
			return types.ExecID(e.nextExecID)
		},
	}
}

// AddInstrument registers a new, empty book under id (spec.md §4.3).
func (e *Engine) AddInstrument(id types.InstrumentID, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.instruments[id]; exists {
		return errors.Newf(errors.AlreadyExists, "instrument %s already registered", id)
	}
	e.instruments[id] = &instrument{book: book.New(id, e.logger), symbol: symbol}
	e.logger.Info("instrument added", zap.String("instrument_id", string(id)), zap.String("symbol", symbol))
	return nil
}

// RemoveInstrument deregisters id, failing if orders still rest on it.
func (e *Engine) RemoveInstrument(id types.InstrumentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instruments[id]
	if !ok {
		return errors.Newf(errors.NotFound, "instrument %s not registered", id)
	}
	if inst.book.OrderCount() > 0 {
		return errors.Newf(errors.NotEmpty, "instrument %s has resting orders", id)
	}
	delete(e.instruments, id)
	e.logger.Info("instrument removed", zap.String("instrument_id", string(id)))
	return nil
}

// InstrumentInfo describes one registered instrument (spec.md §4.3 instruments()).
type InstrumentInfo struct {
	InstrumentID types.InstrumentID
	Symbol       string
}

// Instruments lists every registered instrument.
func (e *Engine) Instruments() []InstrumentInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]InstrumentInfo, 0, len(e.instruments))
	for id, inst := range e.instruments {
		out = append(out, InstrumentInfo{InstrumentID: id, Symbol: inst.symbol})
	}
	return out
}

// MarketState returns the engine's current market state.
func (e *Engine) MarketState() types.MarketState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetMarketState transitions the engine's market state. The gate is
// evaluated inside the same lock as submit/modify, so a transition
// that precedes a submit in the total order is observed by it
// (spec.md §5).
func (e *Engine) SetMarketState(s types.MarketState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info("market state transition", zap.String("from", string(e.state)), zap.String("to", string(s)))
	e.state = s
}

// Snapshot is a pure read of one instrument's top of book (spec.md §4.4).
type Snapshot struct {
	InstrumentID types.InstrumentID
	BestBid      *decimal.Decimal
	BestAsk      *decimal.Decimal
}

// BookSnapshot computes the current top-of-book for id.
func (e *Engine) BookSnapshot(id types.InstrumentID) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instruments[id]
	if !ok {
		return Snapshot{}, errors.Newf(errors.UnknownInstrument, "instrument %s not registered", id)
	}
	snap := Snapshot{InstrumentID: id}
	if bid, ok := inst.book.BestBid(); ok {
		snap.BestBid = &bid
	}
	if ask, ok := inst.book.BestAsk(); ok {
		snap.BestAsk = &ask
	}
	return snap, nil
}

// validate applies spec.md §4.3 step 1's structural checks. It never
// mutates engine state.
func (e *Engine) validate(order types.Order) (*instrument, error) {
	inst, ok := e.instruments[order.InstrumentID]
	if !ok {
		return nil, errors.Newf(errors.UnknownInstrument, "instrument %s not registered", order.InstrumentID)
	}
	if !order.Quantity.IsPositive() {
		return nil, errors.New(errors.InvalidOrder, "quantity must be positive")
	}
	if order.OrderType == types.Limit && order.Price == nil {
		return nil, errors.New(errors.InvalidOrder, "limit order requires a price")
	}
	if order.OrderType == types.Market && order.Price != nil {
		return nil, errors.New(errors.InvalidOrder, "market order must not carry a price")
	}
	if order.OrderType == types.Market && order.TimeInForce == types.GTC {
		return nil, errors.New(errors.InvalidOrder, "market order cannot be GTC: it has no price to rest at")
	}
	if _, resting := e.index[order.OrderID]; resting {
		return nil, errors.Newf(errors.InvalidOrder, "order_id %s already resting", order.OrderID)
	}
	return inst, nil
}

// rejectedReport builds the single terminal Rejected report produced
// for a submit that fails validation or the market-state gate
// (spec.md §4.3 steps 1-2, §7).
func rejectedReport(order types.Order, ts time.Time, text string) types.ExecutionReport {
	return types.ExecutionReport{
		OrderID:           order.OrderID,
		ExecType:          types.ExecRejected,
		OrderStatus:       types.StatusRejected,
		FilledQuantity:    decimal.Zero,
		RemainingQuantity: order.Quantity,
		Timestamp:         ts,
		Text:              text,
	}
}

// SubmitOrder is the sole entry point for new orders (spec.md §4.3).
func (e *Engine) SubmitOrder(order types.Order) ([]types.Trade, []types.ExecutionReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	if e.metrics != nil {
		defer func() { e.metrics.ObserveSubmit(e.now().Sub(start)) }()
	}

	inst, err := e.validate(order)
	if err != nil {
		if e.metrics != nil {
			e.metrics.OrdersRejected.WithLabelValues(string(errors.CodeOf(err))).Inc()
		}
		report := rejectedReport(order, e.now(), err.Error())
		report.ExecID = e.nextIDs().NextExecID()
		return nil, []types.ExecutionReport{report}, err
	}

	if !e.state.Admits() {
		if e.metrics != nil {
			e.metrics.OrdersRejected.WithLabelValues(string(errors.MarketNotOpen)).Inc()
		}
		rejErr := errors.New(errors.MarketNotOpen, "market not open")
		report := rejectedReport(order, e.now(), "market not open")
		report.ExecID = e.nextIDs().NextExecID()
		return nil, []types.ExecutionReport{report}, rejErr
	}

	trades, reports := e.dispatch(inst, order)
	if e.metrics != nil {
		e.metrics.OrdersSubmitted.Inc()
		e.metrics.TradesExecuted.Add(float64(len(trades)))
		e.metrics.OrdersResting.Set(float64(e.restingCount()))
	}
	e.logger.Debug("submit_order",
		zap.String("order_id", string(order.OrderID)),
		zap.String("instrument_id", string(order.InstrumentID)),
		zap.Int("trades", len(trades)),
	)
	return trades, reports, nil
}

// dispatch runs order through the matching kernel and resolves its
// TIF (spec.md §4.3 steps 3-4). Caller must hold mu.
func (e *Engine) dispatch(inst *instrument, order types.Order) ([]types.Trade, []types.ExecutionReport) {
	ids := e.nextIDs()

	if order.TimeInForce == types.FOK {
		if !matching.Probe(inst.book, order) {
			report := types.ExecutionReport{
				OrderID:           order.OrderID,
				ExecID:            ids.NextExecID(),
				ExecType:          types.ExecCanceled,
				OrderStatus:       types.StatusCanceled,
				FilledQuantity:    decimal.Zero,
				RemainingQuantity: order.Quantity,
				Timestamp:         e.now(),
			}
			return nil, []types.ExecutionReport{report}
		}
	}

	res := matching.Match(inst.book, order, ids, e.now)
	reports := append([]types.ExecutionReport{}, res.RestingReports...)

	switch order.TimeInForce {
	case types.GTC:
		var execType types.ExecType
		var status types.OrderStatus
		switch {
		case res.Remaining.IsZero():
			execType, status = types.ExecFill, types.StatusFilled
		case res.Filled.IsZero():
			execType, status = types.ExecNew, types.StatusNew
		default:
			execType, status = types.ExecPartialFill, types.StatusPartiallyFilled
		}
		if res.Remaining.IsPositive() {
			resting := &types.ResidualOrder{
				OrderID:          order.OrderID,
				ClientOrderID:    order.ClientOrderID,
				Side:             order.Side,
				Price:            *order.Price,
				Remaining:        res.Remaining,
				TimeInForce:      types.GTC,
				Timestamp:        order.Timestamp,
				TraderID:         order.TraderID,
				OriginalQuantity: order.Quantity,
				FilledQuantity:   res.Filled,
				FilledNotional:   avgNotional(res),
			}
			_ = inst.book.AddResting(resting)
			e.index[order.OrderID] = order.InstrumentID
		}
		reports = append(reports, e.aggressorReport(order, ids, res, execType, status, ""))

	case types.IOC:
		execType, status := types.ExecFill, types.StatusFilled
		if res.Remaining.IsPositive() {
			execType, status = types.ExecCanceled, types.StatusCanceled
		}
		reports = append(reports, e.aggressorReport(order, ids, res, execType, status, ""))

	case types.FOK:
		// Probe already guaranteed this order can fill in full; Match
		// walks the identical price-check/self-trade-skip path, so it
		// must have consumed all of order.Quantity. Guard on that
		// explicitly rather than trusting Probe's verdict unchecked,
		// so a probe/match divergence surfaces as a rejected terminal
		// report instead of a Filled report with leftover quantity.
		execType, status := types.ExecFill, types.StatusFilled
		if res.Remaining.IsPositive() {
			execType, status = types.ExecRejected, types.StatusRejected
		}
		reports = append(reports, e.aggressorReport(order, ids, res, execType, status, ""))
	}

	return res.Trades, reports
}

// avgNotional reconstructs the notional backing res.AvgPrice so a
// newly-resting remainder's own running average carries forward the
// fills it already received as an aggressor (spec.md §4.2's "reports
// for the resting side track each resting order's own running average
// identically" applies symmetrically once it becomes a resting order).
func avgNotional(res *matching.Result) decimal.Decimal {
	if res.AvgPrice == nil {
		return decimal.Zero
	}
	return res.Filled.Mul(*res.AvgPrice)
}

// aggressorReport builds the aggressor's own execution report after
// dispatch. LastQty/LastPx carry the last fill only when the report
// itself is a fill (PartialFill or Fill).
func (e *Engine) aggressorReport(order types.Order, ids matching.IDGenerator, res *matching.Result, execType types.ExecType, status types.OrderStatus, text string) types.ExecutionReport {
	report := types.ExecutionReport{
		OrderID:           order.OrderID,
		ExecID:            ids.NextExecID(),
		ExecType:          execType,
		OrderStatus:       status,
		FilledQuantity:    res.Filled,
		RemainingQuantity: res.Remaining,
		AvgPrice:          res.AvgPrice,
		Timestamp:         e.now(),
		Text:              text,
	}
	if n := len(res.Trades); n > 0 && report.IsFill() {
		last := res.Trades[n-1]
		qty, px := last.Quantity, last.Price
		report.LastQty, report.LastPx = &qty, &px
	}
	return report
}

// CancelOrder removes a resting order by id (spec.md §4.3).
func (e *Engine) CancelOrder(id types.OrderID) (bool, []types.ExecutionReport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	instID, ok := e.index[id]
	if !ok {
		return false, nil
	}
	inst := e.instruments[instID]
	order, removed := inst.book.Cancel(id)
	if !removed {
		// Index and book disagreed; treat as not-found defensively.
		delete(e.index, id)
		return false, nil
	}
	delete(e.index, id)

	report := types.ExecutionReport{
		OrderID:           id,
		ExecID:            e.nextIDs().NextExecID(),
		ExecType:          types.ExecCanceled,
		OrderStatus:       types.StatusCanceled,
		FilledQuantity:    order.FilledQuantity,
		RemainingQuantity: order.Remaining,
		AvgPrice:          order.AvgPrice(),
		Timestamp:         e.now(),
	}
	if e.metrics != nil {
		e.metrics.OrdersResting.Set(float64(e.restingCount()))
	}
	e.logger.Debug("cancel_order", zap.String("order_id", string(id)))
	return true, []types.ExecutionReport{report}
}

// ModifyOrder implements cancel-then-submit (spec.md §4.3): the
// replacement loses the original's time priority by design, and if
// the submit phase is rejected the cancel still stands (spec.md §9
// open question, resolved as no-rollback).
func (e *Engine) ModifyOrder(id types.OrderID, replacement types.Order) ([]types.Trade, []types.ExecutionReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	instID, ok := e.index[id]
	if !ok {
		return nil, nil, errors.Newf(errors.UnknownOrder, "order %s is not resting", id)
	}
	inst := e.instruments[instID]
	order, removed := inst.book.Cancel(id)
	if !removed {
		delete(e.index, id)
		return nil, nil, errors.Newf(errors.UnknownOrder, "order %s is not resting", id)
	}
	delete(e.index, id)

	cancelReport := types.ExecutionReport{
		OrderID:           id,
		ExecID:            e.nextIDs().NextExecID(),
		ExecType:          types.ExecCanceled,
		OrderStatus:       types.StatusCanceled,
		FilledQuantity:    order.FilledQuantity,
		RemainingQuantity: order.Remaining,
		AvgPrice:          order.AvgPrice(),
		Timestamp:         e.now(),
	}
	reports := []types.ExecutionReport{cancelReport}

	subInst, err := e.validate(replacement)
	if err != nil {
		if e.metrics != nil {
			e.metrics.OrdersRejected.WithLabelValues(string(errors.CodeOf(err))).Inc()
		}
		rep := rejectedReport(replacement, e.now(), err.Error())
		rep.ExecID = e.nextIDs().NextExecID()
		return nil, append(reports, rep), err
	}
	if !e.state.Admits() {
		if e.metrics != nil {
			e.metrics.OrdersRejected.WithLabelValues(string(errors.MarketNotOpen)).Inc()
		}
		rejErr := errors.New(errors.MarketNotOpen, "market not open")
		rep := rejectedReport(replacement, e.now(), "market not open")
		rep.ExecID = e.nextIDs().NextExecID()
		return nil, append(reports, rep), rejErr
	}

	trades, subReports := e.dispatch(subInst, replacement)
	if e.metrics != nil {
		e.metrics.OrdersSubmitted.Inc()
		e.metrics.TradesExecuted.Add(float64(len(trades)))
		e.metrics.OrdersResting.Set(float64(e.restingCount()))
	}
	e.logger.Debug("modify_order", zap.String("order_id", string(id)), zap.String("replacement_id", string(replacement.OrderID)))
	return trades, append(reports, subReports...), nil
}

// restingCount sums resting orders across every registered book, for
// the orders_resting gauge. Caller must hold mu.
func (e *Engine) restingCount() int {
	total := 0
	for _, inst := range e.instruments {
		total += inst.book.OrderCount()
	}
	return total
}
