package strategy

import (
	"math/rand"

	"github.com/openoutcry/botrunner/internal/domain"
	"github.com/openoutcry/botrunner/internal/runtime"
	"github.com/openoutcry/botrunner/internal/trader"
)

// Taker generates flow: on each order update it crosses the spread
// with a small immediate-or-cancel order with probability 1/chance.
// A chance of 1 takes on every update.
type Taker struct {
	runtime.NopStrategy

	instrument domain.InstrumentID
	chance     int
	rng        *rand.Rand

	state *trader.State
}

func NewTaker(instrument domain.InstrumentID, chance int, seed int64) *Taker {
	if chance < 1 {
		chance = 1
	}
	return &Taker{
		instrument: instrument,
		chance:     chance,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// State exposes the taker's replica. Only safe to read after the
// runtime has shut down.
func (t *Taker) State() *trader.State { return t.state }

func (t *Taker) Init(s *runtime.Session) {
	t.state = trader.NewState(s.TraderID())
}

func (t *Taker) OnTradeUpdate(u domain.TradeUpdate, s *runtime.Session) {
	t.state.OnTrade(u)
}

func (t *Taker) OnOrderUpdate(u domain.OrderUpdate, s *runtime.Session) {
	t.state.OnOrderAccepted(u)

	if t.rng.Intn(t.chance) != 0 {
		return
	}

	side := domain.SideBuy
	if t.rng.Intn(2) == 0 {
		side = domain.SideSell
	}
	price := t.state.BestPrice(t.instrument, side.Opposite())
	if price == 0 {
		return
	}

	o := domain.Order{
		Instrument: t.instrument,
		Price:      price,
		Quantity:   int64(1 + t.rng.Intn(3)),
		Side:       side,
		IOC:        true,
	}
	id, err := s.PlaceOrder(o)
	if err != nil {
		return
	}
	o.OrderID = id
	o.TraderID = s.TraderID()
	t.state.OnOrderSubmitted(o)
}

func (t *Taker) OnCancelUpdate(u domain.CancelUpdate, s *runtime.Session) {
	t.state.OnCancel(u)
}
