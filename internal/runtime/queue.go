package runtime

import (
	"sync"

	"github.com/openoutcry/botrunner/internal/domain"
)

// packetQueue is an unbounded FIFO of packets. Pushes never block, so a
// strategy that stalls inside a handler backs up only its own queue and
// never the delivery path feeding other sessions.
type packetQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []domain.Packet
	closed bool
}

func newPacketQueue() *packetQueue {
	q := &packetQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a packet. It reports false after close.
func (q *packetQueue) push(p domain.Packet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, p)
	q.cond.Signal()
	return true
}

// pop blocks until a packet is available or the queue is closed and
// drained.
func (q *packetQueue) pop() (domain.Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return domain.Packet{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return p, true
}

// close stops further pushes; queued packets remain poppable.
func (q *packetQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
