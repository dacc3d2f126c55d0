package domain

// Update is one of the five event payloads the exchange produces. The
// concrete types below are the only implementations.
type Update interface {
	updateTag()
}

// OrderUpdate reports an order accepted onto the exchange book. The
// quantity is the portion that rested (an aggressing order that partially
// filled rests with its remainder only).
type OrderUpdate struct {
	Instrument InstrumentID `json:"instrument"`
	Price      float64      `json:"price"`
	Quantity   int64        `json:"quantity"`
	OrderID    OrderID      `json:"order_id"`
	Side       Side         `json:"side"`
}

// TradeUpdate reports a fill between a resting order and an aggressing
// order. Side is the direction of the aggressing order.
type TradeUpdate struct {
	Instrument        InstrumentID `json:"instrument"`
	Price             float64      `json:"price"`
	Quantity          int64        `json:"quantity"`
	RestingOrderID    OrderID      `json:"resting_order_id"`
	AggressingOrderID OrderID      `json:"aggressing_order_id"`
	Side              Side         `json:"side"`
}

// CancelUpdate reports a resting order removed from the exchange book.
type CancelUpdate struct {
	Instrument InstrumentID `json:"instrument"`
	OrderID    OrderID      `json:"order_id"`
}

// RejectOrderUpdate reports an order request the exchange refused.
type RejectOrderUpdate struct {
	Instrument InstrumentID `json:"instrument"`
	OrderID    OrderID      `json:"order_id"`
	Reason     RejectReason `json:"reason"`
}

// RejectCancelUpdate reports a cancel request the exchange refused.
type RejectCancelUpdate struct {
	Instrument InstrumentID `json:"instrument"`
	OrderID    OrderID      `json:"order_id"`
	Reason     RejectReason `json:"reason"`
}

func (OrderUpdate) updateTag()        {}
func (TradeUpdate) updateTag()        {}
func (CancelUpdate) updateTag()       {}
func (RejectOrderUpdate) updateTag()  {}
func (RejectCancelUpdate) updateTag() {}

// Packet is one atomic batch of updates produced by a single exchange
// processing cycle. Updates are ordered and must be applied in order.
type Packet struct {
	Seq     uint64
	Updates []Update
}
