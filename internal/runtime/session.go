package runtime

import (
	"log/slog"

	"github.com/openoutcry/botrunner/internal/domain"
)

// Session is one strategy's worker context. All callbacks for the
// strategy run on the session's goroutine, strictly in delivery order;
// packets from different exchange cycles never interleave.
type Session struct {
	traderID domain.TraderID
	strategy Strategy
	rt       *Runtime
	queue    *packetQueue
	logger   *slog.Logger
	done     chan struct{}
}

// TraderID returns the trader id this session was registered under.
func (s *Session) TraderID() domain.TraderID { return s.traderID }

// PlaceOrder submits an order request to the exchange. The runtime
// assigns the order id and returns it immediately; fills arrive later
// as ordinary update events. The caller must record the returned id
// (TraderState.OnOrderSubmitted) before handling any further events so
// that loop-back activity on the id is attributed correctly. Safe to
// call from inside any handler.
func (s *Session) PlaceOrder(o domain.Order) (domain.OrderID, error) {
	o.TraderID = s.traderID
	return s.rt.PlaceOrder(o)
}

// PlaceCancel submits a cancel request to the exchange. Safe to call
// from inside any handler.
func (s *Session) PlaceCancel(c domain.Cancel) error {
	c.TraderID = s.traderID
	return s.rt.PlaceCancel(c)
}

// Logger returns a logger scoped to this session's trader.
func (s *Session) Logger() *slog.Logger { return s.logger }

// deliver enqueues a packet for this session's worker. Never blocks.
func (s *Session) deliver(p domain.Packet) {
	s.queue.push(p)
}

// run is the worker loop: initialize once, then dispatch packets until
// the queue closes and drains.
func (s *Session) run() {
	defer close(s.done)
	s.strategy.Init(s)
	for {
		p, ok := s.queue.pop()
		if !ok {
			return
		}
		s.dispatch(p)
	}
}

// dispatch frames one packet and applies its updates in order. Once a
// packet begins delivering it runs to completion.
func (s *Session) dispatch(p domain.Packet) {
	s.strategy.OnPacketStart(s)
	for _, u := range p.Updates {
		switch u := u.(type) {
		case domain.TradeUpdate:
			s.strategy.OnTradeUpdate(u, s)
		case domain.OrderUpdate:
			s.strategy.OnOrderUpdate(u, s)
		case domain.CancelUpdate:
			s.strategy.OnCancelUpdate(u, s)
		case domain.RejectOrderUpdate:
			s.strategy.OnRejectOrderUpdate(u, s)
		case domain.RejectCancelUpdate:
			s.strategy.OnRejectCancelUpdate(u, s)
		}
	}
	s.strategy.OnPacketEnd(s)
}
