package domain

import "errors"

// Sentinel errors for local consistency faults. These are tolerated
// conditions: an update may reference an order the local replica already
// removed (e.g. a cancel racing with a full fill).
var (
	ErrOrderNotFound = errors.New("order_not_found")
	ErrRuntimeClosed = errors.New("runtime_closed")
	ErrSessionClosed = errors.New("session_closed")
	ErrUnknownTrader = errors.New("unknown_trader")
)
