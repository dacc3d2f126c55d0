package domain

// RejectReason enumerates exchange-reported reasons for refusing an
// order or cancel request.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectInvalidParameters
	RejectInvalidTrader
	RejectInvalidInstrument
	RejectInvalidOrderID
	RejectRateLimitExceeded
	RejectOpenOrdersExceeded
	RejectPositionLimitExceeded
	RejectPnLLimitExceeded
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "no_reason"
	case RejectInvalidParameters:
		return "invalid_parameters"
	case RejectInvalidTrader:
		return "invalid_trader"
	case RejectInvalidInstrument:
		return "invalid_instrument"
	case RejectInvalidOrderID:
		return "invalid_order_id"
	case RejectRateLimitExceeded:
		return "rate_limit_exceeded"
	case RejectOpenOrdersExceeded:
		return "open_orders_exceeded"
	case RejectPositionLimitExceeded:
		return "position_limit_exceeded"
	case RejectPnLLimitExceeded:
		return "pnl_limit_exceeded"
	}
	return "unknown"
}
