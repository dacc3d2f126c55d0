package trader

import (
	"math"
	"testing"

	"github.com/openoutcry/botrunner/internal/domain"
)

const inst = domain.InstrumentID(0)

func submitAndAccept(s *State, id domain.OrderID, side domain.Side, price float64, qty int64) {
	s.OnOrderSubmitted(domain.Order{
		Instrument: inst,
		Price:      price,
		Quantity:   qty,
		Side:       side,
		OrderID:    id,
		TraderID:   s.TraderID(),
	})
	s.OnOrderAccepted(domain.OrderUpdate{
		Instrument: inst,
		Price:      price,
		Quantity:   qty,
		OrderID:    id,
		Side:       side,
	})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestState_RestingBuyFill(t *testing.T) {
	s := NewState(7)
	// Our buy 10@10.00 rests; someone else's sell 5 hits it.
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 10)
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 10.00, Quantity: 5, OrderID: 2, Side: domain.SideSell})

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             10.00,
		Quantity:          5,
		RestingOrderID:    1,
		AggressingOrderID: 2,
		Side:              domain.SideSell,
	})

	if pos := s.Position(inst); pos != 5 {
		t.Errorf("expected position +5, got %d", pos)
	}
	if !almostEqual(s.Cash(), -50.00) {
		t.Errorf("expected cash -50.00, got %v", s.Cash())
	}
	if s.Volume() != 5 {
		t.Errorf("expected volume 5, got %d", s.Volume())
	}
	if remaining := s.OpenOrders()[1].Quantity; remaining != 5 {
		t.Errorf("expected open order 1 at quantity 5, got %d", remaining)
	}
}

func TestState_RestingSellFill(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideSell, 10.00, 10)

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             10.00,
		Quantity:          4,
		RestingOrderID:    1,
		AggressingOrderID: 2,
		Side:              domain.SideBuy,
	})

	if pos := s.Position(inst); pos != -4 {
		t.Errorf("expected position -4, got %d", pos)
	}
	if !almostEqual(s.Cash(), 40.00) {
		t.Errorf("expected cash +40.00, got %v", s.Cash())
	}
}

func TestState_AggressingBuyFill(t *testing.T) {
	s := NewState(7)
	// A stranger's sell rests; our buy aggresses into it.
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 9.50, Quantity: 3, OrderID: 10, Side: domain.SideSell})
	s.OnOrderSubmitted(domain.Order{Instrument: inst, Price: 9.50, Quantity: 3, Side: domain.SideBuy, OrderID: 11, TraderID: 7})

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             9.50,
		Quantity:          3,
		RestingOrderID:    10,
		AggressingOrderID: 11,
		Side:              domain.SideBuy,
	})

	if pos := s.Position(inst); pos != 3 {
		t.Errorf("expected position +3, got %d", pos)
	}
	if !almostEqual(s.Cash(), -28.50) {
		t.Errorf("expected cash -28.50, got %v", s.Cash())
	}
	if s.Volume() != 3 {
		t.Errorf("expected volume 3, got %d", s.Volume())
	}
}

func TestState_AggressingSellFill(t *testing.T) {
	s := NewState(7)
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 9.50, Quantity: 3, OrderID: 10, Side: domain.SideBuy})
	s.OnOrderSubmitted(domain.Order{Instrument: inst, Price: 9.50, Quantity: 3, Side: domain.SideSell, OrderID: 11, TraderID: 7})

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             9.50,
		Quantity:          3,
		RestingOrderID:    10,
		AggressingOrderID: 11,
		Side:              domain.SideSell,
	})

	if pos := s.Position(inst); pos != -3 {
		t.Errorf("expected position -3, got %d", pos)
	}
	if !almostEqual(s.Cash(), 28.50) {
		t.Errorf("expected cash +28.50, got %v", s.Cash())
	}
}

func TestState_SelfTradeNoDoubleCounting(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 10)
	s.OnOrderSubmitted(domain.Order{Instrument: inst, Price: 10.00, Quantity: 5, Side: domain.SideSell, OrderID: 2, TraderID: 7})

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             10.00,
		Quantity:          5,
		RestingOrderID:    1,
		AggressingOrderID: 2,
		Side:              domain.SideSell,
	})

	if pos := s.Position(inst); pos != 0 {
		t.Errorf("expected unchanged position on self-trade, got %d", pos)
	}
	if s.Cash() != 0 {
		t.Errorf("expected unchanged cash on self-trade, got %v", s.Cash())
	}
	if s.Volume() != 0 {
		t.Errorf("expected no volume on self-trade, got %d", s.Volume())
	}
	// The resting open order still shrinks.
	if remaining := s.OpenOrders()[1].Quantity; remaining != 5 {
		t.Errorf("expected open order 1 at quantity 5, got %d", remaining)
	}
}

func TestState_ThirdPartyTradeIgnored(t *testing.T) {
	s := NewState(7)
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 10.00, Quantity: 10, OrderID: 20, Side: domain.SideBuy})

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             10.00,
		Quantity:          4,
		RestingOrderID:    20,
		AggressingOrderID: 21,
		Side:              domain.SideSell,
	})

	if s.Position(inst) != 0 || s.Cash() != 0 || s.Volume() != 0 {
		t.Error("expected no accounting change for a trade between other parties")
	}
	// The replica still reflects the fill.
	if q := s.QuoteSize(inst, domain.SideBuy); q != 6 {
		t.Errorf("expected resting quantity 6 after third-party fill, got %d", q)
	}
}

func TestState_FullFillDropsOpenOrder(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 5)

	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             10.00,
		Quantity:          5,
		RestingOrderID:    1,
		AggressingOrderID: 2,
		Side:              domain.SideSell,
	})

	if _, ok := s.OpenOrders()[1]; ok {
		t.Error("expected fully filled order dropped from open orders")
	}
	// But submitted tracking survives until a cancel.
	if !s.Submitted(1) {
		t.Error("expected id 1 still in submitted after full fill")
	}
}

func TestState_OnCancel(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 5)

	s.OnCancel(domain.CancelUpdate{Instrument: inst, OrderID: 1})

	if _, ok := s.OpenOrders()[1]; ok {
		t.Error("expected canceled order gone from open orders")
	}
	if s.Submitted(1) {
		t.Error("expected canceled id gone from submitted")
	}
	if s.BestPrice(inst, domain.SideBuy) != 0 {
		t.Error("expected empty bid side after cancel")
	}
}

func TestState_CancelUnknownIsNoOp(t *testing.T) {
	s := NewState(7)
	s.OnCancel(domain.CancelUpdate{Instrument: inst, OrderID: 42})
	s.OnCancel(domain.CancelUpdate{Instrument: inst, OrderID: 42})
	if s.Cash() != 0 || s.Position(inst) != 0 {
		t.Error("expected no state change from cancels of unknown ids")
	}
}

func TestState_TradeOnGoneOrderTolerated(t *testing.T) {
	s := NewState(7)
	// A trade referencing an order the replica never saw must not panic
	// and must still record the print and own-side accounting.
	s.OnOrderSubmitted(domain.Order{OrderID: 5, TraderID: 7})
	s.OnTrade(domain.TradeUpdate{
		Instrument:        inst,
		Price:             11.00,
		Quantity:          2,
		RestingOrderID:    99,
		AggressingOrderID: 5,
		Side:              domain.SideBuy,
	})
	if s.LastTradePrice() != 11.00 {
		t.Errorf("expected last trade price 11.00, got %v", s.LastTradePrice())
	}
	if s.Position(inst) != 2 {
		t.Errorf("expected position +2, got %d", s.Position(inst))
	}
}

func TestState_OpenOrdersSubsetOfSubmitted(t *testing.T) {
	s := NewState(7)
	// An accepted order we never submitted goes to the replica only.
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 10, Quantity: 1, OrderID: 30, Side: domain.SideBuy})
	if len(s.OpenOrders()) != 0 {
		t.Error("expected no open orders for unsubmitted ids")
	}
	for id := range s.OpenOrders() {
		if !s.Submitted(id) {
			t.Errorf("open order %d not in submitted set", id)
		}
	}
}

func TestState_PnLWithoutTrades(t *testing.T) {
	s := NewState(7)
	// Book contents alone never move PnL.
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 10, Quantity: 5, OrderID: 1, Side: domain.SideBuy})
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 11, Quantity: 5, OrderID: 2, Side: domain.SideSell})

	_, cash, pnl := s.PositionAndPnL()
	if cash != 0 || pnl != 0 {
		t.Errorf("expected zero cash and pnl with no trades, got cash=%v pnl=%v", cash, pnl)
	}
}

func TestState_PnLMarksAtMid(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 5)
	s.OnTrade(domain.TradeUpdate{
		Instrument: inst, Price: 10.00, Quantity: 5,
		RestingOrderID: 1, AggressingOrderID: 2, Side: domain.SideSell,
	})

	// Two-sided quote at 9.9/10.1 marks the 5-lot at 10.0.
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 9.9, Quantity: 1, OrderID: 3, Side: domain.SideBuy})
	s.OnOrderAccepted(domain.OrderUpdate{Instrument: inst, Price: 10.1, Quantity: 1, OrderID: 4, Side: domain.SideSell})

	positions, cash, pnl := s.PositionAndPnL()
	if positions[inst] != 5 {
		t.Fatalf("expected position 5, got %d", positions[inst])
	}
	if !almostEqual(cash, -50.00) {
		t.Errorf("expected cash -50.00, got %v", cash)
	}
	if !almostEqual(pnl, 0.0) {
		t.Errorf("expected flat pnl at entry price mid, got %v", pnl)
	}
}

// The last-trade-price fallback is one scalar shared across all
// instruments: a print on any instrument becomes the PnL fallback for
// every instrument without a two-sided quote. The cross-instrument
// bleed is a known quirk of the accounting and is deliberately kept.
func TestState_SharedLastTradePriceFallback(t *testing.T) {
	s := NewState(7)

	// Take a position on instrument 0, whose book then empties.
	s.OnOrderSubmitted(domain.Order{OrderID: 1, TraderID: 7})
	s.OnTrade(domain.TradeUpdate{
		Instrument: 0, Price: 10.00, Quantity: 5,
		RestingOrderID: 99, AggressingOrderID: 1, Side: domain.SideBuy,
	})

	// A later print on instrument 3 moves the shared fallback.
	s.OnTrade(domain.TradeUpdate{
		Instrument: 3, Price: 50.00, Quantity: 1,
		RestingOrderID: 100, AggressingOrderID: 101, Side: domain.SideBuy,
	})

	_, _, pnl := s.PositionAndPnL()
	// Position of 5 on instrument 0 marks at instrument 3's print.
	want := -50.0 + 5*50.00
	if !almostEqual(pnl, want) {
		t.Errorf("expected pnl %v marked at the shared fallback, got %v", want, pnl)
	}
}

func TestState_Levels(t *testing.T) {
	s := NewState(7)
	submitAndAccept(s, 1, domain.SideBuy, 10.00, 5)
	submitAndAccept(s, 2, domain.SideBuy, 10.00, 3)
	submitAndAccept(s, 3, domain.SideBuy, 9.50, 1)

	levels := s.Levels()
	if len(levels) != 2 {
		t.Fatalf("expected 2 price levels, got %d", len(levels))
	}
	if len(levels[10.00]) != 2 || len(levels[9.50]) != 1 {
		t.Errorf("unexpected level grouping: %v", levels)
	}
}
