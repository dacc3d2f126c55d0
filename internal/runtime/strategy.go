package runtime

import "github.com/openoutcry/botrunner/internal/domain"

// Strategy is the callback set a trading bot implements. The runtime
// invokes every method on the strategy's own worker goroutine, in event
// order, framed by packet start/end around each exchange cycle.
//
// Embed NopStrategy to get no-op defaults for everything except the
// three mandatory handlers (trade, order, cancel).
type Strategy interface {
	// Init runs once on the worker before any packet is delivered.
	Init(s *Session)

	OnTradeUpdate(u domain.TradeUpdate, s *Session)
	OnOrderUpdate(u domain.OrderUpdate, s *Session)
	OnCancelUpdate(u domain.CancelUpdate, s *Session)

	OnRejectOrderUpdate(u domain.RejectOrderUpdate, s *Session)
	OnRejectCancelUpdate(u domain.RejectCancelUpdate, s *Session)

	// OnPacketStart and OnPacketEnd bracket one atomic batch of
	// exchange events. Deferring reactions to OnPacketEnd sees the
	// cycle's full effect instead of a partial view.
	OnPacketStart(s *Session)
	OnPacketEnd(s *Session)
}

// NopStrategy provides no-op implementations of the optional callbacks.
// A minimal strategy embeds it and implements only the trade, order,
// and cancel handlers.
type NopStrategy struct{}

func (NopStrategy) Init(*Session)                                            {}
func (NopStrategy) OnRejectOrderUpdate(domain.RejectOrderUpdate, *Session)   {}
func (NopStrategy) OnRejectCancelUpdate(domain.RejectCancelUpdate, *Session) {}
func (NopStrategy) OnPacketStart(*Session)                                   {}
func (NopStrategy) OnPacketEnd(*Session)                                     {}
