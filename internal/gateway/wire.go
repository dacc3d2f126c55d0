package gateway

import (
	"encoding/json"

	"github.com/openoutcry/botrunner/internal/domain"
)

// wirePacket is the JSON form of an exchange packet as streamed to
// websocket clients.
type wirePacket struct {
	Seq     uint64       `json:"seq"`
	Updates []wireUpdate `json:"updates"`
}

// wireUpdate is a tagged union: Type selects which fields are set.
type wireUpdate struct {
	Type              string              `json:"type"`
	Instrument        domain.InstrumentID `json:"instrument"`
	Price             float64             `json:"price,omitempty"`
	Quantity          int64               `json:"quantity,omitempty"`
	OrderID           domain.OrderID      `json:"order_id,omitempty"`
	RestingOrderID    domain.OrderID      `json:"resting_order_id,omitempty"`
	AggressingOrderID domain.OrderID      `json:"aggressing_order_id,omitempty"`
	Side              domain.Side         `json:"side,omitempty"`
	Reason            string              `json:"reason,omitempty"`
}

func encodePacket(p domain.Packet) ([]byte, error) {
	wp := wirePacket{Seq: p.Seq, Updates: make([]wireUpdate, 0, len(p.Updates))}
	for _, u := range p.Updates {
		switch v := u.(type) {
		case domain.OrderUpdate:
			wp.Updates = append(wp.Updates, wireUpdate{
				Type:       "order",
				Instrument: v.Instrument,
				Price:      v.Price,
				Quantity:   v.Quantity,
				OrderID:    v.OrderID,
				Side:       v.Side,
			})
		case domain.TradeUpdate:
			wp.Updates = append(wp.Updates, wireUpdate{
				Type:              "trade",
				Instrument:        v.Instrument,
				Price:             v.Price,
				Quantity:          v.Quantity,
				RestingOrderID:    v.RestingOrderID,
				AggressingOrderID: v.AggressingOrderID,
				Side:              v.Side,
			})
		case domain.CancelUpdate:
			wp.Updates = append(wp.Updates, wireUpdate{
				Type:       "cancel",
				Instrument: v.Instrument,
				OrderID:    v.OrderID,
			})
		case domain.RejectOrderUpdate:
			wp.Updates = append(wp.Updates, wireUpdate{
				Type:       "reject_order",
				Instrument: v.Instrument,
				OrderID:    v.OrderID,
				Reason:     v.Reason.String(),
			})
		case domain.RejectCancelUpdate:
			wp.Updates = append(wp.Updates, wireUpdate{
				Type:       "reject_cancel",
				Instrument: v.Instrument,
				OrderID:    v.OrderID,
				Reason:     v.Reason.String(),
			})
		}
	}
	return json.Marshal(wp)
}

// requestFrame is one inbound websocket message: an order or cancel
// request from a remote client.
type requestFrame struct {
	Op     string         `json:"op"`
	Order  *domain.Order  `json:"order,omitempty"`
	Cancel *domain.Cancel `json:"cancel,omitempty"`
}

// responseFrame acknowledges or refuses an inbound request. Protocol
// errors surface here; exchange rejects arrive in the packet stream.
type responseFrame struct {
	Op      string         `json:"op"`
	OrderID domain.OrderID `json:"order_id,omitempty"`
	Message string         `json:"message,omitempty"`
}
