package exchange

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openoutcry/botrunner/internal/domain"
)

// TradeRecord is one executed fill as kept in the exchange's trade log.
type TradeRecord struct {
	TradeID           string              `json:"trade_id"`
	Instrument        domain.InstrumentID `json:"instrument"`
	Price             float64             `json:"price"`
	Quantity          int64               `json:"quantity"`
	RestingOrderID    domain.OrderID      `json:"resting_order_id"`
	AggressingOrderID domain.OrderID      `json:"aggressing_order_id"`
	Side              domain.Side         `json:"side"`
	ExecutedAt        time.Time           `json:"executed_at"`
}

// TradeLog is a thread-safe in-memory log of executed trades keyed by
// instrument. Trades are append-only and chronological.
type TradeLog struct {
	mu     sync.RWMutex
	trades map[domain.InstrumentID][]TradeRecord
}

// NewTradeLog creates an empty TradeLog.
func NewTradeLog() *TradeLog {
	return &TradeLog{
		trades: make(map[domain.InstrumentID][]TradeRecord),
	}
}

// Append records a fill under a freshly assigned trade id.
func (l *TradeLog) Append(u domain.TradeUpdate, executedAt time.Time) TradeRecord {
	rec := TradeRecord{
		TradeID:           uuid.New().String(),
		Instrument:        u.Instrument,
		Price:             u.Price,
		Quantity:          u.Quantity,
		RestingOrderID:    u.RestingOrderID,
		AggressingOrderID: u.AggressingOrderID,
		Side:              u.Side,
		ExecutedAt:        executedAt,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades[u.Instrument] = append(l.trades[u.Instrument], rec)
	return rec
}

// ByInstrument returns the instrument's trades in chronological order.
// The returned slice is a copy.
func (l *TradeLog) ByInstrument(instrument domain.InstrumentID) []TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades := l.trades[instrument]
	out := make([]TradeRecord, len(trades))
	copy(out, trades)
	return out
}
