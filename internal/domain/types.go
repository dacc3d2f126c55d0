package domain

// InstrumentID identifies a tradable instrument. The id space is small
// and dense so per-instrument state can live in fixed-size tables.
type InstrumentID uint8

// NumInstruments is the size of the instrument id space.
const NumInstruments = 256

// OrderID is a globally unique order identifier. Zero means "not yet
// assigned" — the runtime allocates the real id at submission time.
type OrderID uint64

// TraderID identifies a trader/strategy account.
type TraderID uint64

// Side indicates whether an order is a bid (buy) or ask (sell).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a limit order request as submitted to the exchange.
type Order struct {
	Instrument InstrumentID `json:"instrument"`
	Price      float64      `json:"price"`
	Quantity   int64        `json:"quantity"`
	Side       Side         `json:"side"`
	IOC        bool         `json:"ioc"`
	OrderID    OrderID      `json:"order_id"`
	TraderID   TraderID     `json:"trader_id"`
}

// Cancel is a request to remove a resting order.
type Cancel struct {
	Instrument InstrumentID `json:"instrument"`
	OrderID    OrderID      `json:"order_id"`
	TraderID   TraderID     `json:"trader_id"`
}
