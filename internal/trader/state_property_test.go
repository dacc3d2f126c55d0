package trader

import (
	"math"
	"testing"

	"github.com/openoutcry/botrunner/internal/domain"
	"pgregory.net/rapid"
)

// Fill symmetry: over any sequence of fills, cash is exactly the
// negated sum of price×delta and position is the sum of deltas, where
// delta follows the side conventions (resting side opposite the
// aggressor, aggressing side with it). Self-trades and third-party
// trades contribute nothing.
func TestProperty_FillAccounting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewState(1)

		// Pre-register a pool of our own order ids.
		for id := domain.OrderID(1); id <= 10; id++ {
			s.OnOrderSubmitted(domain.Order{OrderID: id, TraderID: 1})
		}

		var wantCash float64
		var wantPos, wantVolume int64

		n := rapid.IntRange(1, 80).Draw(t, "numTrades")
		for i := 0; i < n; i++ {
			price := float64(rapid.IntRange(1, 200).Draw(t, "price"))
			qty := rapid.Int64Range(1, 50).Draw(t, "qty")
			side := rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "side")

			// Ids 1–10 are ours, 1000+ are strangers.
			resting := domain.OrderID(rapid.Int64Range(1, 10).Draw(t, "resting"))
			if rapid.Bool().Draw(t, "restingTheirs") {
				resting += 1000
			}
			aggressing := domain.OrderID(rapid.Int64Range(1, 10).Draw(t, "aggressing"))
			if rapid.Bool().Draw(t, "aggressingTheirs") {
				aggressing += 1000
			}

			restingMine := resting <= 10
			aggressingMine := aggressing <= 10

			var delta int64
			switch {
			case restingMine && !aggressingMine:
				if side == domain.SideBuy {
					delta = -qty
				} else {
					delta = qty
				}
			case aggressingMine && !restingMine:
				if side == domain.SideBuy {
					delta = qty
				} else {
					delta = -qty
				}
			}
			if delta != 0 {
				wantCash -= price * float64(delta)
				wantPos += delta
				wantVolume += qty
			}

			s.OnTrade(domain.TradeUpdate{
				Instrument:        0,
				Price:             price,
				Quantity:          qty,
				RestingOrderID:    resting,
				AggressingOrderID: aggressing,
				Side:              side,
			})
		}

		if math.Abs(s.Cash()-wantCash) > 1e-6 {
			t.Fatalf("cash %v, want %v", s.Cash(), wantCash)
		}
		if s.Position(0) != wantPos {
			t.Fatalf("position %d, want %d", s.Position(0), wantPos)
		}
		if s.Volume() != wantVolume {
			t.Fatalf("volume %d, want %d", s.Volume(), wantVolume)
		}
	})
}

// open_orders stays a subset of submitted across arbitrary event
// sequences.
func TestProperty_OpenOrdersSubsetOfSubmitted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewState(1)
		var next domain.OrderID
		var pending []domain.OrderID // submitted but not yet accepted

		n := rapid.IntRange(1, 100).Draw(t, "numEvents")
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "event") {
			case 0: // submit a new own order
				next++
				s.OnOrderSubmitted(domain.Order{OrderID: next, TraderID: 1})
				pending = append(pending, next)
			case 1: // accept a pending own id, or a stranger's
				var id domain.OrderID
				if len(pending) > 0 && rapid.Bool().Draw(t, "acceptOwn") {
					id = pending[0]
					pending = pending[1:]
				} else {
					next++
					id = next + 10000
				}
				s.OnOrderAccepted(domain.OrderUpdate{
					Instrument: 0,
					Price:      float64(rapid.IntRange(1, 50).Draw(t, "price")),
					Quantity:   rapid.Int64Range(1, 20).Draw(t, "qty"),
					OrderID:    id,
					Side:       rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "side"),
				})
			case 2: // trade against an arbitrary id
				s.OnTrade(domain.TradeUpdate{
					Instrument:        0,
					Price:             float64(rapid.IntRange(1, 50).Draw(t, "tprice")),
					Quantity:          rapid.Int64Range(1, 20).Draw(t, "tqty"),
					RestingOrderID:    domain.OrderID(rapid.Int64Range(0, int64(next)+1).Draw(t, "trest")),
					AggressingOrderID: domain.OrderID(rapid.Int64Range(0, int64(next)+1).Draw(t, "taggr")),
					Side:              rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "tside"),
				})
			case 3: // cancel an arbitrary id
				s.OnCancel(domain.CancelUpdate{
					Instrument: 0,
					OrderID:    domain.OrderID(rapid.Int64Range(0, int64(next)+1).Draw(t, "cid")),
				})
			}

			for id := range s.OpenOrders() {
				if !s.Submitted(id) {
					t.Fatalf("open order %d not in submitted set", id)
				}
			}
		}
	})
}
