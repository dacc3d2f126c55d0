// Package trader derives a single trader's view of the market — book
// replicas, position, cash, PnL, and still-resting own orders — purely
// from the exchange's update stream plus local submission bookkeeping.
package trader

import (
	"os"

	"github.com/openoutcry/botrunner/internal/book"
	"github.com/openoutcry/botrunner/internal/domain"
)

// State is the per-trader accounting machine. It is owned by one
// strategy worker and is not safe for concurrent use. Strategy code may
// read it and submit requests; only the event appliers mutate it.
type State struct {
	traderID domain.TraderID

	books     [domain.NumInstruments]*book.Book
	submitted map[domain.OrderID]struct{}
	open      map[domain.OrderID]domain.Order

	cash      float64
	positions [domain.NumInstruments]int64
	volume    int64

	// lastTradePrice is a single scalar shared across all instruments,
	// updated on every trade and used as the mid-price fallback in PnL.
	// Multi-instrument PnL can therefore fall back to another
	// instrument's last print. Known quirk, deliberately kept.
	lastTradePrice float64

	snapshotPath string
}

// NewState creates an empty State for the given trader.
func NewState(traderID domain.TraderID) *State {
	return &State{
		traderID:       traderID,
		submitted:      make(map[domain.OrderID]struct{}),
		open:           make(map[domain.OrderID]domain.Order),
		lastTradePrice: 100.0,
	}
}

// SetSnapshotPath enables a best-effort book dump to the given file
// after every applied event. Empty disables it.
func (s *State) SetSnapshotPath(path string) {
	s.snapshotPath = path
}

func (s *State) book(instrument domain.InstrumentID) *book.Book {
	if s.books[instrument] == nil {
		s.books[instrument] = book.New(instrument)
	}
	return s.books[instrument]
}

// OnOrderAccepted replays an order-accepted event into the instrument's
// book replica. An id this trader submitted is also tracked as open.
func (s *State) OnOrderAccepted(u domain.OrderUpdate) {
	o := domain.Order{
		Instrument: u.Instrument,
		Price:      u.Price,
		Quantity:   u.Quantity,
		Side:       u.Side,
		OrderID:    u.OrderID,
	}
	b := s.book(u.Instrument)
	b.Insert(o)
	s.snapshot(b)

	if _, ok := s.submitted[u.OrderID]; ok {
		o.TraderID = s.traderID
		s.open[u.OrderID] = o
	}
}

// OnTrade replays a trade event. In order: the last trade price is
// recorded unconditionally, the resting order's quantity is reduced in
// the book replica, the fill is classified against this trader's
// submitted set, and any own open order is decremented. A fill where
// both or neither side is ours never moves position or cash, which
// keeps genuine self-trades from double counting.
func (s *State) OnTrade(u domain.TradeUpdate) {
	s.lastTradePrice = u.Price

	b := s.book(u.Instrument)
	b.DecreaseQuantity(u.RestingOrderID, u.Quantity)
	s.snapshot(b)

	_, restingMine := s.submitted[u.RestingOrderID]
	_, aggressingMine := s.submitted[u.AggressingOrderID]

	switch {
	case restingMine:
		if !aggressingMine {
			s.volume += u.Quantity
			// We were the resting side, so our delta is opposite the
			// aggressor's direction.
			delta := u.Quantity
			if u.Side == domain.SideBuy {
				delta = -u.Quantity
			}
			s.applyFill(u.Instrument, u.Price, delta)
		}

		if o, ok := s.open[u.RestingOrderID]; ok {
			o.Quantity -= u.Quantity
			if o.Quantity <= 0 {
				delete(s.open, u.RestingOrderID)
			} else {
				s.open[u.RestingOrderID] = o
			}
		}

	case aggressingMine:
		s.volume += u.Quantity
		delta := -u.Quantity
		if u.Side == domain.SideBuy {
			delta = u.Quantity
		}
		s.applyFill(u.Instrument, u.Price, delta)
	}
}

// applyFill is the single mutation point for cash and position: both
// move together or not at all.
func (s *State) applyFill(instrument domain.InstrumentID, price float64, delta int64) {
	s.cash -= price * float64(delta)
	s.positions[instrument] += delta
}

// OnCancel replays a cancel event. The id leaves the book replica, the
// open-order index if present, and the submitted set unconditionally: a
// cancel terminates our interest in the id either way.
func (s *State) OnCancel(u domain.CancelUpdate) {
	b := s.book(u.Instrument)
	_ = b.Cancel(u.OrderID) // may already be gone after a full fill
	s.snapshot(b)

	delete(s.open, u.OrderID)
	delete(s.submitted, u.OrderID)
}

// OnOrderSubmitted records a placement this trader just issued. It must
// run synchronously at submission time, before the exchange
// acknowledges, so that events for the id are recognized as own
// activity even when they loop back within the same packet cycle.
func (s *State) OnOrderSubmitted(o domain.Order) {
	s.submitted[o.OrderID] = struct{}{}
}

// PositionAndPnL returns the per-instrument positions, the cash
// balance, and total PnL. PnL marks every position at its book's mid
// price, falling back to the shared last trade price for instruments
// without a two-sided quote.
func (s *State) PositionAndPnL() (positions []int64, cash float64, pnl float64) {
	positions = make([]int64, domain.NumInstruments)
	copy(positions, s.positions[:])

	pnl = s.cash
	for i, pos := range s.positions {
		if pos == 0 {
			continue
		}
		mid := s.lastTradePrice
		if b := s.books[i]; b != nil {
			mid = b.MidPrice(s.lastTradePrice)
		}
		pnl += float64(pos) * mid
	}
	return positions, s.cash, pnl
}

// Position returns the signed position for one instrument.
func (s *State) Position(instrument domain.InstrumentID) int64 {
	return s.positions[instrument]
}

// Cash returns the signed cash balance.
func (s *State) Cash() float64 { return s.cash }

// Volume returns the cumulative traded volume of own fills.
func (s *State) Volume() int64 { return s.volume }

// LastTradePrice returns the most recent trade print seen on any
// instrument.
func (s *State) LastTradePrice() float64 { return s.lastTradePrice }

// TraderID returns the owning trader's id.
func (s *State) TraderID() domain.TraderID { return s.traderID }

// Submitted reports whether this trader issued the given order id.
func (s *State) Submitted(id domain.OrderID) bool {
	_, ok := s.submitted[id]
	return ok
}

// OpenOrders returns a copy of the trader's still-resting own orders.
func (s *State) OpenOrders() map[domain.OrderID]domain.Order {
	out := make(map[domain.OrderID]domain.Order, len(s.open))
	for id, o := range s.open {
		out[id] = o
	}
	return out
}

// Levels groups the trader's open orders by price.
func (s *State) Levels() map[float64][]domain.Order {
	levels := make(map[float64][]domain.Order)
	for _, o := range s.open {
		levels[o.Price] = append(levels[o.Price], o)
	}
	return levels
}

// BestPrice returns the most aggressive resting price on a side of the
// instrument's replica, or 0 when empty.
func (s *State) BestPrice(instrument domain.InstrumentID, side domain.Side) float64 {
	return s.book(instrument).BestPrice(side)
}

// MidPrice returns the instrument's mid price, or defaultTo when either
// side has no quote.
func (s *State) MidPrice(instrument domain.InstrumentID, defaultTo float64) float64 {
	return s.book(instrument).MidPrice(defaultTo)
}

// QuoteSize returns the total resting quantity at the instrument's best
// price level on a side.
func (s *State) QuoteSize(instrument domain.InstrumentID, side domain.Side) int64 {
	return s.book(instrument).QuoteSize(side)
}

// Spread returns the instrument's best ask minus best bid, or 0 when
// either side is empty.
func (s *State) Spread(instrument domain.InstrumentID) float64 {
	return s.book(instrument).Spread()
}

// snapshot dumps the book to the configured path, if any. Best effort:
// a failed dump never disturbs a running strategy.
func (s *State) snapshot(b *book.Book) {
	if s.snapshotPath == "" {
		return
	}
	f, err := os.Create(s.snapshotPath)
	if err != nil {
		return
	}
	_ = b.Snapshot(f, s.open)
	_ = f.Close()
}
