// Package strategy ships example bots for the runtime. The decision
// logic is deliberately simple; these exist to exercise the event
// contract, not to make money.
package strategy

import (
	"log/slog"
	"time"

	"github.com/openoutcry/botrunner/internal/domain"
	"github.com/openoutcry/botrunner/internal/runtime"
	"github.com/openoutcry/botrunner/internal/trader"
)

// Quoter joins the best bid with single-lot orders, cancelling its
// previous quotes first. It reacts to order updates at most once per
// minInterval and stops bidding once its position reaches maxPosition.
type Quoter struct {
	instrument  domain.InstrumentID
	maxPosition int64
	minInterval time.Duration

	// SnapshotPath, when set before the runtime starts, makes the
	// replica dump its book after every applied event.
	SnapshotPath string

	state      *trader.State
	start      time.Time
	lastAction time.Time
	traded     bool
}

func NewQuoter(instrument domain.InstrumentID, maxPosition int64, minInterval time.Duration) *Quoter {
	return &Quoter{
		instrument:  instrument,
		maxPosition: maxPosition,
		minInterval: minInterval,
	}
}

// State exposes the quoter's replica. Only safe to read after the
// runtime has shut down; while running, the worker owns it.
func (q *Quoter) State() *trader.State { return q.state }

func (q *Quoter) Init(s *runtime.Session) {
	q.state = trader.NewState(s.TraderID())
	if q.SnapshotPath != "" {
		q.state.SetSnapshotPath(q.SnapshotPath)
	}
	q.start = time.Now()
}

func (q *Quoter) OnTradeUpdate(u domain.TradeUpdate, s *runtime.Session) {
	q.state.OnTrade(u)
	if q.state.Submitted(u.RestingOrderID) || q.state.Submitted(u.AggressingOrderID) {
		q.traded = true
	}
}

func (q *Quoter) OnOrderUpdate(u domain.OrderUpdate, s *runtime.Session) {
	q.state.OnOrderAccepted(u)

	// Our own accepts loop back on the feed; reacting to them would
	// requote forever.
	if q.state.Submitted(u.OrderID) {
		return
	}

	now := time.Now()
	if now.Sub(q.lastAction) < q.minInterval {
		return
	}
	q.lastAction = now

	for id := range q.state.OpenOrders() {
		s.PlaceCancel(domain.Cancel{
			Instrument: q.instrument,
			OrderID:    id,
		})
	}

	bestBid := q.state.BestPrice(q.instrument, domain.SideBuy)
	if bestBid == 0 || q.state.Position(q.instrument) >= q.maxPosition {
		return
	}
	q.place(s, domain.Order{
		Instrument: q.instrument,
		Price:      bestBid,
		Quantity:   1,
		Side:       domain.SideBuy,
	})
}

func (q *Quoter) OnCancelUpdate(u domain.CancelUpdate, s *runtime.Session) {
	q.state.OnCancel(u)
}

func (q *Quoter) OnRejectOrderUpdate(u domain.RejectOrderUpdate, s *runtime.Session) {
	s.Logger().Warn("order rejected",
		slog.Uint64("order_id", uint64(u.OrderID)),
		slog.String("reason", u.Reason.String()),
	)
}

func (q *Quoter) OnRejectCancelUpdate(u domain.RejectCancelUpdate, s *runtime.Session) {
	// Cancelling an already-gone order is routine and not worth noise.
	if u.Reason == domain.RejectInvalidOrderID {
		return
	}
	s.Logger().Warn("cancel rejected",
		slog.Uint64("order_id", uint64(u.OrderID)),
		slog.String("reason", u.Reason.String()),
	)
}

func (q *Quoter) OnPacketStart(s *runtime.Session) {
	q.traded = false
}

func (q *Quoter) OnPacketEnd(s *runtime.Session) {
	if !q.traded {
		return
	}
	_, _, pnl := q.state.PositionAndPnL()
	elapsed := time.Since(q.start).Seconds()
	perVolume := 0.0
	if v := q.state.Volume(); v > 0 {
		perVolume = pnl / float64(v)
	}
	s.Logger().Info("traded",
		slog.Float64("pnl", pnl),
		slog.Int64("position", q.state.Position(q.instrument)),
		slog.Float64("pnl_per_second", pnl/elapsed),
		slog.Float64("pnl_per_volume", perVolume),
	)
}

// place submits an order and records the assigned id on the replica
// before any further event is handled, so loop-back fills on the id
// are attributed correctly.
func (q *Quoter) place(s *runtime.Session, o domain.Order) {
	id, err := s.PlaceOrder(o)
	if err != nil {
		return
	}
	o.OrderID = id
	o.TraderID = s.TraderID()
	q.state.OnOrderSubmitted(o)
}
