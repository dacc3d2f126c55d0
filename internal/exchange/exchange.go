// Package exchange implements a simulated exchange: a price-time
// matching engine with pre-trade risk checks, producing one packet of
// update events per processing cycle and broadcasting it to every
// subscriber. From the runtime's point of view this is the external
// collaborator behind the request and feed interfaces.
package exchange

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/openoutcry/botrunner/internal/book"
	"github.com/openoutcry/botrunner/internal/domain"
)

// Subscriber receives every packet the exchange produces, in cycle
// order. Deliver must not block.
type Subscriber interface {
	Deliver(p domain.Packet)
}

// Limits holds the exchange's pre-trade risk configuration. Zero
// values disable the corresponding check.
type Limits struct {
	Instruments     int     // number of valid instrument ids (0 = all 256)
	MaxOpenOrders   int     // per trader, resting orders
	PositionLimit   int64   // per trader per instrument, absolute
	PnLLimit        float64 // per trader, maximum tolerated loss
	RatePerSecond   float64 // per trader, sustained request rate
	RateBurst       float64 // per trader, burst allowance
}

// account is the exchange-side risk state for one registered trader.
type account struct {
	cash      float64
	positions [domain.NumInstruments]int64
	open      map[domain.OrderID]struct{}
	limiter   *rateLimiter
}

// Exchange matches orders and broadcasts the resulting update packets.
// All processing happens under one lock, so packets are globally
// ordered exactly as requests were processed.
type Exchange struct {
	mu       sync.Mutex
	limits   Limits
	books    [domain.NumInstruments]*book.Book
	accounts map[domain.TraderID]*account
	usedIDs  map[domain.OrderID]struct{}
	subs     []Subscriber
	seq      uint64

	// lastTradePrice seeds the PnL-limit mark for instruments without a
	// two-sided quote, mirroring the trader-side fallback.
	lastTradePrice float64

	trades *TradeLog
	logger *slog.Logger
}

// New creates an Exchange with the given limits.
func New(limits Limits, logger *slog.Logger) *Exchange {
	if limits.Instruments <= 0 || limits.Instruments > domain.NumInstruments {
		limits.Instruments = domain.NumInstruments
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchange{
		limits:         limits,
		accounts:       make(map[domain.TraderID]*account),
		usedIDs:        make(map[domain.OrderID]struct{}),
		lastTradePrice: 100.0,
		trades:         NewTradeLog(),
		logger:         logger,
	}
}

// RegisterTrader opens an account. Requests from unregistered traders
// are rejected with an invalid-trader reason.
func (e *Exchange) RegisterTrader(id domain.TraderID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.accounts[id]; ok {
		return
	}
	e.accounts[id] = &account{
		open:    make(map[domain.OrderID]struct{}),
		limiter: newRateLimiter(e.limits.RatePerSecond, e.limits.RateBurst),
	}
}

// Subscribe adds a packet recipient. Subscribers registered before any
// request see every packet.
func (e *Exchange) Subscribe(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, sub)
}

// Trades returns the executed-trade log for an instrument.
func (e *Exchange) Trades(instrument domain.InstrumentID) []TradeRecord {
	return e.trades.ByInstrument(instrument)
}

// WriteBookSnapshot dumps an instrument's book in the diagnostic text
// format, annotating the given trader's resting orders.
func (e *Exchange) WriteBookSnapshot(w io.Writer, instrument domain.InstrumentID, trader domain.TraderID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.book(instrument)
	mine := make(map[domain.OrderID]domain.Order)
	b.Walk(domain.SideBuy, collectOwned(trader, mine))
	b.Walk(domain.SideSell, collectOwned(trader, mine))
	return b.Snapshot(w, mine)
}

func collectOwned(trader domain.TraderID, mine map[domain.OrderID]domain.Order) func(book.Entry) bool {
	return func(en book.Entry) bool {
		if en.TraderID == trader {
			mine[en.OrderID] = domain.Order{OrderID: en.OrderID}
		}
		return true
	}
}

func (e *Exchange) book(instrument domain.InstrumentID) *book.Book {
	if e.books[instrument] == nil {
		e.books[instrument] = book.New(instrument)
	}
	return e.books[instrument]
}

// PlaceOrder runs one processing cycle for an order request: validate,
// risk-check, match, rest the remainder, broadcast the packet. It
// implements the runtime's Requester interface and never waits for
// anything downstream.
func (e *Exchange) PlaceOrder(o domain.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reason, ok := e.checkOrder(o); !ok {
		e.broadcast([]domain.Update{domain.RejectOrderUpdate{
			Instrument: o.Instrument,
			OrderID:    o.OrderID,
			Reason:     reason,
		}})
		return nil
	}
	e.usedIDs[o.OrderID] = struct{}{}

	updates := e.match(o)
	e.broadcast(updates)
	return nil
}

// checkOrder validates an order request against the protocol and the
// account's risk limits. It reports the reject reason when refused.
func (e *Exchange) checkOrder(o domain.Order) (domain.RejectReason, bool) {
	acct, ok := e.accounts[o.TraderID]
	if !ok {
		return domain.RejectInvalidTrader, false
	}
	if int(o.Instrument) >= e.limits.Instruments {
		return domain.RejectInvalidInstrument, false
	}
	if o.Quantity <= 0 || !domain.ValidTick(o.Price) ||
		(o.Side != domain.SideBuy && o.Side != domain.SideSell) {
		return domain.RejectInvalidParameters, false
	}
	if o.OrderID == 0 {
		return domain.RejectInvalidOrderID, false
	}
	if _, dup := e.usedIDs[o.OrderID]; dup {
		return domain.RejectInvalidOrderID, false
	}
	if !acct.limiter.allow(time.Now()) {
		return domain.RejectRateLimitExceeded, false
	}
	if e.limits.MaxOpenOrders > 0 && len(acct.open) >= e.limits.MaxOpenOrders {
		return domain.RejectOpenOrdersExceeded, false
	}
	if e.limits.PositionLimit > 0 {
		projected := acct.positions[o.Instrument]
		if o.Side == domain.SideBuy {
			projected += o.Quantity
		} else {
			projected -= o.Quantity
		}
		if projected > e.limits.PositionLimit || projected < -e.limits.PositionLimit {
			return domain.RejectPositionLimitExceeded, false
		}
	}
	if e.limits.PnLLimit > 0 && e.pnl(acct) < -e.limits.PnLLimit {
		return domain.RejectPnLLimitExceeded, false
	}
	return domain.RejectNone, true
}

// match runs the aggressive pass of one order against the opposite
// side, then rests any non-IOC remainder. Fills execute at the resting
// order's price.
func (e *Exchange) match(o domain.Order) []domain.Update {
	b := e.book(o.Instrument)
	executedAt := time.Now()

	var updates []domain.Update
	remaining := o.Quantity

	for remaining > 0 {
		best, found := b.Best(o.Side.Opposite())
		if !found {
			break
		}
		if o.Side == domain.SideBuy && o.Price < best.Price {
			break
		}
		if o.Side == domain.SideSell && o.Price > best.Price {
			break
		}

		fill := remaining
		if best.Quantity < fill {
			fill = best.Quantity
		}

		b.DecreaseQuantity(best.OrderID, fill)
		if fill == best.Quantity {
			if owner, ok := e.accounts[best.TraderID]; ok {
				delete(owner.open, best.OrderID)
			}
		}

		// Settle both sides: the aggressor moves with its own direction,
		// the resting owner opposite.
		delta := fill
		if o.Side == domain.SideSell {
			delta = -fill
		}
		e.applyFill(o.TraderID, o.Instrument, best.Price, delta)
		e.applyFill(best.TraderID, o.Instrument, best.Price, -delta)
		e.lastTradePrice = best.Price

		tu := domain.TradeUpdate{
			Instrument:        o.Instrument,
			Price:             best.Price,
			Quantity:          fill,
			RestingOrderID:    best.OrderID,
			AggressingOrderID: o.OrderID,
			Side:              o.Side,
		}
		updates = append(updates, tu)

		rec := e.trades.Append(tu, executedAt)
		e.logger.Debug("trade executed",
			slog.String("trade_id", rec.TradeID),
			slog.Int("instrument", int(o.Instrument)),
			slog.Float64("price", best.Price),
			slog.Int64("quantity", fill),
		)

		remaining -= fill
	}

	if remaining > 0 && !o.IOC {
		rest := o
		rest.Quantity = remaining
		b.Insert(rest)
		e.accounts[o.TraderID].open[o.OrderID] = struct{}{}
		updates = append(updates, domain.OrderUpdate{
			Instrument: o.Instrument,
			Price:      o.Price,
			Quantity:   remaining,
			OrderID:    o.OrderID,
			Side:       o.Side,
		})
	}

	return updates
}

func (e *Exchange) applyFill(trader domain.TraderID, instrument domain.InstrumentID, price float64, delta int64) {
	acct, ok := e.accounts[trader]
	if !ok {
		return
	}
	acct.cash -= price * float64(delta)
	acct.positions[instrument] += delta
}

// pnl marks an account at mid, falling back to the last trade print.
func (e *Exchange) pnl(acct *account) float64 {
	total := acct.cash
	for i, pos := range acct.positions {
		if pos == 0 {
			continue
		}
		mid := e.lastTradePrice
		if b := e.books[i]; b != nil {
			mid = b.MidPrice(e.lastTradePrice)
		}
		total += float64(pos) * mid
	}
	return total
}

// PlaceCancel runs one processing cycle for a cancel request. Cancels
// of ids that are unknown, already gone, or owned by someone else are
// rejected with an invalid-order-id reason.
func (e *Exchange) PlaceCancel(c domain.Cancel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reason, ok := e.checkCancel(c); !ok {
		e.broadcast([]domain.Update{domain.RejectCancelUpdate{
			Instrument: c.Instrument,
			OrderID:    c.OrderID,
			Reason:     reason,
		}})
		return nil
	}

	b := e.book(c.Instrument)
	_ = b.Cancel(c.OrderID)
	delete(e.accounts[c.TraderID].open, c.OrderID)

	e.broadcast([]domain.Update{domain.CancelUpdate{
		Instrument: c.Instrument,
		OrderID:    c.OrderID,
	}})
	return nil
}

func (e *Exchange) checkCancel(c domain.Cancel) (domain.RejectReason, bool) {
	acct, ok := e.accounts[c.TraderID]
	if !ok {
		return domain.RejectInvalidTrader, false
	}
	if int(c.Instrument) >= e.limits.Instruments {
		return domain.RejectInvalidInstrument, false
	}
	if !acct.limiter.allow(time.Now()) {
		return domain.RejectRateLimitExceeded, false
	}
	entry, resting := e.book(c.Instrument).Resting(c.OrderID)
	if !resting || entry.TraderID != c.TraderID {
		return domain.RejectInvalidOrderID, false
	}
	return domain.RejectNone, true
}

// broadcast seals one cycle's updates into a packet and fans it out.
// Runs under the exchange lock so subscribers observe packets in
// processing order.
func (e *Exchange) broadcast(updates []domain.Update) {
	if len(updates) == 0 {
		return
	}
	e.seq++
	p := domain.Packet{Seq: e.seq, Updates: updates}
	for _, sub := range e.subs {
		sub.Deliver(p)
	}
}
