// Package runtime connects strategies to an exchange: it runs one
// dedicated worker per registered strategy, delivers exchange packets
// to each worker in order, and serializes the shared request-submission
// path back to the exchange.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openoutcry/botrunner/internal/domain"
)

// Requester is the exchange-facing request path, an external
// collaborator from the runtime's point of view. Implementations must
// not block waiting for fills; fills come back as update events.
type Requester interface {
	PlaceOrder(domain.Order) error
	PlaceCancel(domain.Cancel) error
}

// Runtime owns the sessions and the shared submission path. Sessions
// run concurrently and share no state; a single mutex serializes
// submissions so concurrent strategies' requests never interleave
// mid-request, without ever blocking packet delivery.
type Runtime struct {
	req    Requester
	ids    *Allocator
	logger *slog.Logger

	submitMu sync.Mutex // guards ids + req, the submission path

	mu       sync.Mutex // guards sessions/lifecycle
	sessions []*Session
	started  bool
	closed   bool
}

// New creates a Runtime submitting through req, allocating order ids
// from ids.
func New(req Requester, ids *Allocator, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{req: req, ids: ids, logger: logger}
}

// Register adds a strategy under the given trader id. Must be called
// before Start.
func (rt *Runtime) Register(traderID domain.TraderID, strategy Strategy) *Session {
	s := &Session{
		traderID: traderID,
		strategy: strategy,
		rt:       rt,
		queue:    newPacketQueue(),
		logger:   rt.logger.With(slog.Uint64("trader_id", uint64(traderID))),
		done:     make(chan struct{}),
	}
	rt.mu.Lock()
	rt.sessions = append(rt.sessions, s)
	rt.mu.Unlock()
	return s
}

// Start launches one worker goroutine per registered session. Workers
// stop when ctx is cancelled and their queues drain.
func (rt *Runtime) Start(ctx context.Context) {
	rt.mu.Lock()
	if rt.started {
		rt.mu.Unlock()
		return
	}
	rt.started = true
	sessions := rt.sessions
	rt.mu.Unlock()

	for _, s := range sessions {
		go s.run()
	}
	go func() {
		<-ctx.Done()
		rt.Close()
	}()
}

// Close stops delivery. Already-queued packets still run to completion
// on their workers.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	sessions := rt.sessions
	rt.mu.Unlock()

	for _, s := range sessions {
		s.queue.close()
	}
}

// Wait blocks until every worker has drained and exited.
func (rt *Runtime) Wait() {
	rt.mu.Lock()
	sessions := rt.sessions
	rt.mu.Unlock()
	for _, s := range sessions {
		<-s.done
	}
}

// Deliver fans one packet out to every session's queue. It is the feed
// entry point for the exchange and never blocks on a slow strategy.
func (rt *Runtime) Deliver(p domain.Packet) {
	rt.mu.Lock()
	sessions := rt.sessions
	rt.mu.Unlock()
	for _, s := range sessions {
		s.deliver(p)
	}
}

// PlaceOrder allocates a fresh order id, forwards the request, and
// returns the id without waiting for any acknowledgment.
func (rt *Runtime) PlaceOrder(o domain.Order) (domain.OrderID, error) {
	rt.submitMu.Lock()
	defer rt.submitMu.Unlock()
	if rt.isClosed() {
		return 0, domain.ErrRuntimeClosed
	}
	o.OrderID = rt.ids.Next()
	if err := rt.req.PlaceOrder(o); err != nil {
		return 0, err
	}
	return o.OrderID, nil
}

// PlaceCancel forwards a cancel request.
func (rt *Runtime) PlaceCancel(c domain.Cancel) error {
	rt.submitMu.Lock()
	defer rt.submitMu.Unlock()
	if rt.isClosed() {
		return domain.ErrRuntimeClosed
	}
	return rt.req.PlaceCancel(c)
}

func (rt *Runtime) isClosed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.closed
}
